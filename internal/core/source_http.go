package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

// maxResponseBytes bounds a single backend response.
const maxResponseBytes = 32 << 20

// HTTPSource reads views from the backend REST API at {BaseURL}/api/v1/{path}.
type HTTPSource struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPSource creates an HTTPSource with its own client and timeout.
func NewHTTPSource(baseURL, token string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) Fetch(ctx context.Context, def ViewDefinition) ([]tablequery.Record, error) {
	endpoint, err := url.JoinPath(s.BaseURL, "api", "v1", def.Info.Path)
	if err != nil {
		return nil, fmt.Errorf("build url for %s: %w", def.Info.Key, err)
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", def.Info.Key, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, def.Info.Key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s: backend returned %s", ErrSourceUnavailable, def.Info.Key, resp.Status)
	}

	records, err := DecodeRecords(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", def.Info.Key, err)
	}
	return records, nil
}
