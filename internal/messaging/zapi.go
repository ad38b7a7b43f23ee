// Package messaging delivers outbound WhatsApp replies.
//
// This file implements the Z-API provider: a single POST of
// {phone, message} to the per-deployment instance URL.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// DefaultZAPITimeout bounds each send-message call.
const DefaultZAPITimeout = 10 * time.Second

// ZAPIOpts holds configuration options for the Z-API client.
type ZAPIOpts struct {
	InstanceID string
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// ZAPIOption defines a configuration option for the Z-API client.
type ZAPIOption func(*ZAPIOpts)

// WithInstanceID sets the Z-API instance identifier.
func WithInstanceID(id string) ZAPIOption {
	return func(o *ZAPIOpts) { o.InstanceID = id }
}

// WithToken sets the Z-API instance token.
func WithToken(token string) ZAPIOption {
	return func(o *ZAPIOpts) { o.Token = token }
}

// WithBaseURL overrides the full send-message URL (used in tests).
func WithBaseURL(url string) ZAPIOption {
	return func(o *ZAPIOpts) { o.BaseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) ZAPIOption {
	return func(o *ZAPIOpts) { o.HTTPClient = c }
}

// ZAPIClient sends WhatsApp messages through a Z-API instance.
type ZAPIClient struct {
	sendURL    string
	httpClient *http.Client
}

// zapiPayload is the send-message request body.
type zapiPayload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// NewZAPIClient creates a Z-API sender. Instance ID and token fall
// back to the ZAPI_INSTANCE_ID and ZAPI_TOKEN environment variables.
func NewZAPIClient(opts ...ZAPIOption) (*ZAPIClient, error) {
	var cfg ZAPIOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = os.Getenv("ZAPI_INSTANCE_ID")
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("ZAPI_TOKEN")
	}
	if cfg.BaseURL == "" {
		if cfg.InstanceID == "" || cfg.Token == "" {
			return nil, fmt.Errorf("instance ID and token must be provided")
		}
		cfg.BaseURL = fmt.Sprintf("https://api.z-api.io/instances/%s/token/%s/send-message", cfg.InstanceID, cfg.Token)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultZAPITimeout}
	}
	return &ZAPIClient{sendURL: cfg.BaseURL, httpClient: cfg.HTTPClient}, nil
}

// SendMessage posts one message to the instance's send-message URL.
// The response body is not inspected beyond the status code.
func (c *ZAPIClient) SendMessage(ctx context.Context, phone string, body string) error {
	payload, err := json.Marshal(zapiPayload{Phone: phone, Message: body})
	if err != nil {
		return fmt.Errorf("marshal send-message payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send-message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("ZAPIClient SendMessage failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to send message to %s: %w", phone, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		slog.Error("ZAPIClient SendMessage unexpected status", "status", resp.StatusCode, "phone", phone)
		return fmt.Errorf("z-api returned status %d for %s", resp.StatusCode, phone)
	}
	slog.Debug("ZAPIClient message sent", "phone", phone, "body_length", len(body))
	return nil
}
