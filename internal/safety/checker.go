// Package safety wraps the external destination-verification collaborator.
// The verdict is stored on the link record at creation time; it never blocks
// creation.
package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Checker classifies a destination URL as safe or unsafe.
type Checker interface {
	Verify(ctx context.Context, destination string) (bool, error)
}

// AllowAll is the fallback used when no verification endpoint is configured.
// Every destination is reported safe.
type AllowAll struct{}

func (AllowAll) Verify(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// HTTPChecker calls an external verification service:
// GET <endpoint>?url=<destination> returning {"safe": bool}.
type HTTPChecker struct {
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

// NewHTTPChecker creates a checker against the given endpoint with a bounded
// per-request timeout.
func NewHTTPChecker(endpoint string, timeout time.Duration, log *zap.Logger) *HTTPChecker {
	return &HTTPChecker{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

func (c *HTTPChecker) Verify(ctx context.Context, destination string) (bool, error) {
	reqURL := fmt.Sprintf("%s?url=%s", c.endpoint, url.QueryEscape(destination))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build verification request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verification service returned status %d", resp.StatusCode)
	}

	var verdict struct {
		Safe bool `json:"safe"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return false, fmt.Errorf("failed to decode verification response: %w", err)
	}

	c.log.Debug("destination verified", zap.Bool("safe", verdict.Safe))
	return verdict.Safe, nil
}
