package client

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"

	"habitlink-backend/internal/models"
)

// Re-encode quality for picked images before upload
const jpegQuality = 85

// Publisher accepts a constructed message for delivery into the thread.
// A Subscription is the usual implementation.
type Publisher interface {
	Publish(msg Message) error
}

// SendImage runs the image pipeline: re-encode at the fixed quality,
// upload, resolve the durable reference, construct the image message,
// publish. Any failing step aborts before publish — a broken-link
// message is never sent. No retry.
func (c *Client) SendImage(ctx context.Context, img image.Image, pub Publisher) (*Message, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	slot, err := c.CreateUpload(ctx, "image")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload slot: %w", err)
	}

	if err := c.put(ctx, slot.UploadURL, "image/jpeg", buf.Bytes()); err != nil {
		return nil, fmt.Errorf("image upload failed: %w", err)
	}

	msg := models.NewImageMessage(c.UserID, slot.Ref)
	if err := pub.Publish(msg); err != nil {
		return nil, fmt.Errorf("failed to publish image message: %w", err)
	}
	return &msg, nil
}

// SendVoice runs the voice pipeline from a finished capture file,
// producing a voice message with its audio reference. Same
// abort-on-failure contract as SendImage.
func (c *Client) SendVoice(ctx context.Context, path string, pub Publisher) (*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture file: %w", err)
	}

	slot, err := c.CreateUpload(ctx, "audio")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload slot: %w", err)
	}

	if err := c.put(ctx, slot.UploadURL, "audio/mp4", data); err != nil {
		return nil, fmt.Errorf("voice upload failed: %w", err)
	}

	msg := models.NewVoiceMessage(c.UserID, slot.Ref)
	if err := pub.Publish(msg); err != nil {
		return nil, fmt.Errorf("failed to publish voice message: %w", err)
	}
	return &msg, nil
}

func (c *Client) put(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("upload failed: status %d", resp.StatusCode)
	}
	return nil
}
