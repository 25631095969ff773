// Mastodon REST API implementation of [Sink]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/spotdiff/internal/formatter"
	"github.com/desertthunder/spotdiff/internal/shared"
)

// StatusLimit is the default maximum length of a Mastodon status.
const StatusLimit = 500

// MastodonService posts notices as statuses to a single account.
type MastodonService struct {
	host        string
	accessToken string
	visibility  string
	httpClient  *http.Client
}

// NewMastodonService creates a Mastodon sink for the account owning accessToken on host.
//
// host may be given with or without a scheme; https is assumed. Visibility defaults to "unlisted".
func NewMastodonService(host, accessToken, visibility string, client *http.Client) (*MastodonService, error) {
	if host == "" || accessToken == "" {
		return nil, fmt.Errorf("%w: mastodon host and access_token are required", shared.ErrMissingCredentials)
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	if visibility == "" {
		visibility = "unlisted"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &MastodonService{
		host:        strings.TrimSuffix(host, "/"),
		accessToken: accessToken,
		visibility:  visibility,
		httpClient:  client,
	}, nil
}

// Name returns the service name
func (m *MastodonService) Name() string {
	return "Mastodon"
}

// Targets returns the configured account as the only destination.
func (m *MastodonService) Targets(context.Context) ([]Target, error) {
	return []Target{{ID: m.host, Label: m.host}}, nil
}

// Send posts notice as a plain-text status.
func (m *MastodonService) Send(ctx context.Context, _ Target, notice *formatter.Notice) error {
	_, err := m.PostStatus(ctx, notice.PlainText(StatusLimit))
	return err
}

// Status is the subset of a created status that callers use.
type Status struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PostStatus publishes text with the configured visibility and returns the created status.
func (m *MastodonService) PostStatus(ctx context.Context, text string) (*Status, error) {
	form := url.Values{}
	form.Set("status", text)
	form.Set("visibility", m.visibility)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.host+"/api/v1/statuses", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+m.accessToken)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: mastodon status %d: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}

	return &status, nil
}
