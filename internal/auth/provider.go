package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ProviderClient fetches revocation watermarks from the identity provider's
// admin API.
type ProviderClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewProviderClient constructs a client with sane defaults.
func NewProviderClient(baseURL string) *ProviderClient {
	return &ProviderClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// TokensValidAfter implements RevocationChecker. A subject the provider has
// never revoked yields the zero time.
func (c *ProviderClient) TokensValidAfter(ctx context.Context, subject string) (time.Time, error) {
	endpoint := fmt.Sprintf("%s/v1/subjects/%s/tokens-valid-after", c.baseURL, url.PathEscape(subject))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return time.Time{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return time.Time{}, nil
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return time.Time{}, fmt.Errorf("identity provider error: %s", body)
	}

	var payload struct {
		ValidAfter time.Time `json:"valid_after"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return time.Time{}, err
	}
	return payload.ValidAfter, nil
}
