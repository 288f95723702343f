// Package instagram is the HTTP client for the Instagram Graph messaging
// API. It only covers the message-send surface the automation engine
// needs; the provider is otherwise a black box.
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client sends messages through the Instagram Graph API
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// NewClient creates a new API client. The timeout applies per call; the
// delivery pipeline treats a timeout the same as a provider error.
func NewClient(baseURL, apiVersion string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Credentials authenticate one connected Instagram account
type Credentials struct {
	AccessToken    string
	PlatformUserID string
}

// Recipient addresses one message. Exactly one field is set: UserID for an
// ordinary direct message (followers only), CommentID for a private reply
// (any commenter, short post-comment window).
type Recipient struct {
	UserID    string
	CommentID string
}

func (r Recipient) payload() map[string]string {
	if r.CommentID != "" {
		return map[string]string{"comment_id": r.CommentID}
	}
	return map[string]string{"id": r.UserID}
}

// APIError is a non-2xx response from the provider
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instagram api error: status=%d code=%d subcode=%d message=%q",
		e.StatusCode, e.Code, e.Subcode, e.Message)
}

// IsNotFollowerError reports whether err is one of the permission error
// codes the provider returns when a direct message is sent to a user
// without a follow relationship. Any other error is NOT proof of
// non-follow; callers treat it conservatively as "assume followed".
func IsNotFollowerError(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	switch apiErr.Code {
	case 551, 10, 200:
		return true
	}
	return apiErr.Subcode == 1545041
}

// SendMessage posts one message to the send endpoint. A 2xx response is
// success; anything else is returned as *APIError.
func (c *Client) SendMessage(ctx context.Context, creds Credentials, to Recipient, msg Message) error {
	body := map[string]interface{}{
		"recipient": to.payload(),
		"message":   msg,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, creds.PlatformUserID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 400 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error APIError `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(raw, &envelope); err == nil {
		envelope.Error.StatusCode = resp.StatusCode
		apiErr = &envelope.Error
	}
	return apiErr
}
