package services

import (
	"context"
	"fmt"
	"time"

	appconfig "habitlink-backend/internal/config"
	"habitlink-backend/internal/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Media namespaces and content types per kind
const (
	MediaKindImage = "image"
	MediaKindAudio = "audio"
)

var mediaKinds = map[string]struct {
	namespace   string
	ext         string
	contentType string
}{
	MediaKindImage: {"images", ".jpg", "image/jpeg"},
	MediaKindAudio: {"audio", ".m4a", "audio/mp4"},
}

// MediaService issues upload slots for chat media: a fresh random object
// name under the kind's namespace, a presigned PUT URL, and the durable
// reference the published message will carry.
type MediaService struct {
	s3Client     *s3.Client
	presign      *s3.PresignClient
	bucket       string
	region       string
	endpoint     string
	uploadExpiry time.Duration
	accessExpiry time.Duration
}

// NewMediaService creates a new media service
func NewMediaService(awsCfg appconfig.AWSConfig, mediaCfg appconfig.MediaConfig) (*MediaService, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(awsCfg.Region),
	}
	if awsCfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsCfg.AccessKey, awsCfg.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if awsCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(awsCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &MediaService{
		s3Client:     client,
		presign:      s3.NewPresignClient(client),
		bucket:       awsCfg.S3Bucket,
		region:       awsCfg.Region,
		endpoint:     awsCfg.Endpoint,
		uploadExpiry: time.Duration(mediaCfg.UploadExpirySeconds) * time.Second,
		accessExpiry: time.Duration(mediaCfg.AccessExpirySeconds) * time.Second,
	}, nil
}

// UploadSlot is one issued upload destination
type UploadSlot struct {
	UploadURL string `json:"upload_url"`
	Ref       string `json:"ref"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// CreateUpload issues an upload slot for the given media kind. Object
// names are fresh uuids, so concurrent uploads from either sender can
// never collide.
func (s *MediaService) CreateUpload(ctx context.Context, kind string) (*UploadSlot, error) {
	spec, ok := mediaKinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown media kind %q", kind)
	}

	key := fmt.Sprintf("%s/%s%s", spec.namespace, uuid.New().String(), spec.ext)

	request, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(spec.contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.uploadExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	metrics.UploadsIssued.Inc()

	return &UploadSlot{
		UploadURL: request.URL,
		Ref:       s.objectURL(key),
		Key:       key,
		ExpiresIn: int(s.uploadExpiry.Seconds()),
	}, nil
}

// objectURL resolves the durable fetchable reference for a stored object
func (s *MediaService) objectURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
