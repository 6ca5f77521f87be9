// HTTP uploader.
//
// Maps the ingestion endpoint's response classes onto the coordinator's
// retry model: 2xx is an acknowledgment (the server answers identically for
// first delivery and idempotent replay), 4xx is a definitive rejection
// wrapped around ErrRejected, and everything else (5xx, transport errors,
// timeouts) is transient.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ReportPayload is the JSON body for POST /reports.
type ReportPayload struct {
	ClientID     string   `json:"client_id"`
	Category     string   `json:"category"`
	ServiceType  *string  `json:"service_type,omitempty"`
	Status       *string  `json:"status,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Description  string   `json:"description"`
	ImageURL     *string  `json:"image_url,omitempty"`
	InfraPointID *string  `json:"infra_point_id,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

// HTTPUploader posts queued reports to the ingestion endpoint.
type HTTPUploader struct {
	// BaseURL is the server root, e.g. "https://api.example.org/api/v1".
	BaseURL string
	// Client defaults to http.DefaultClient; per-attempt deadlines come from
	// the coordinator's context, not from Client.Timeout.
	Client *http.Client
}

// Upload implements Uploader.
func (u *HTTPUploader) Upload(ctx context.Context, item QueuedItem) error {
	payload := ReportPayload{
		ClientID:     item.ClientID,
		Category:     item.Category,
		ServiceType:  item.ServiceType,
		Status:       item.Status,
		Latitude:     item.Latitude,
		Longitude:    item.Longitude,
		Description:  item.Description,
		ImageURL:     item.ImageURL,
		InfraPointID: item.InfraPointID,
	}
	if !item.CreatedAt.IsZero() {
		payload.CreatedAt = item.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err) // unserializable payload can never succeed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.BaseURL+"/reports", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := u.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err // transport failure: retryable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRejected, readErrorMessage(resp.Body))
	default:
		// 5xx and 429: server-side or throttling blip, retry later.
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
}

// readErrorMessage extracts the error envelope's message, best effort.
func readErrorMessage(r io.Reader) string {
	var env struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	raw, err := io.ReadAll(io.LimitReader(r, 4<<10))
	if err != nil || json.Unmarshal(raw, &env) != nil || env.Message == "" {
		return "rejected"
	}
	if env.Code != "" {
		return env.Code + ": " + env.Message
	}
	return env.Message
}
