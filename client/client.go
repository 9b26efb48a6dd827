// Package client is the Go SDK for a habitlink backend: message
// construction, live thread sync, media send pipelines, and the
// recording/playback state machines used around voice messages.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"habitlink-backend/internal/models"
)

// Re-exported model types so SDK consumers never import internals.
type (
	Message            = models.Message
	MessageType        = models.MessageType
	CheckinData        = models.CheckinData
	SummaryData        = models.SummaryData
	SummaryParticipant = models.SummaryParticipant
	PollData           = models.PollData
	Presence           = models.Presence
)

// Client talks to a habitlink backend on behalf of one user
type Client struct {
	BaseURL string
	Token   string
	UserID  string
	HTTP    *http.Client
}

// New creates a client for the given backend and user credentials
func New(baseURL, token, userID string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		UserID:  userID,
		HTTP:    http.DefaultClient,
	}
}

// UploadSlot is an issued upload destination: where to PUT the bytes
// and the durable reference a published message will carry.
type UploadSlot struct {
	UploadURL string `json:"upload_url"`
	Ref       string `json:"ref"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// CreateUpload requests a fresh upload slot for the given media kind
// (image or audio).
func (c *Client) CreateUpload(ctx context.Context, kind string) (*UploadSlot, error) {
	body, err := json.Marshal(map[string]string{"kind": kind})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/v1/media/upload", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload slot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload slot request failed: status %d", resp.StatusCode)
	}

	var slot UploadSlot
	if err := json.NewDecoder(resp.Body).Decode(&slot); err != nil {
		return nil, fmt.Errorf("failed to decode upload slot: %w", err)
	}
	return &slot, nil
}
