package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/opencomp/recordcache/internal/logger"
	"github.com/opencomp/recordcache/internal/records"
)

// Fetcher retrieves the full regional record list from the remote source.
// There is no partial or incremental fetch: one call returns everything or fails.
type Fetcher interface {
	FetchRegionalRecords(ctx context.Context) ([]records.Record, error)
}

// HTTPFetcher pulls records from a JSON endpoint with bounded retries.
type HTTPFetcher struct {
	url       string
	client    *retryablehttp.Client
	validator *validator.Validate
}

// NewHTTPFetcher creates a fetcher for the given source URL.
func NewHTTPFetcher(url string, timeout time.Duration, retryMax int) (*HTTPFetcher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("source url is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if retryMax < 0 {
		retryMax = 0
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.HTTPClient.Timeout = timeout
	client.Logger = logger.WithComponent("fetch")

	return &HTTPFetcher{url: url, client: client, validator: validator.New()}, nil
}

// FetchRegionalRecords GETs the source URL and decodes the full record list,
// preserving source order. Any validation failure rejects the whole payload:
// a partially valid list never reaches the cache.
func (f *HTTPFetcher) FetchRegionalRecords(ctx context.Context) ([]records.Record, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build records request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch regional records: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch regional records: unexpected status %d", resp.StatusCode)
	}

	var recs []records.Record
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode records payload: %w", err)
	}

	for i := range recs {
		if err := f.validator.Struct(&recs[i]); err != nil {
			return nil, fmt.Errorf("validate record %d: %w", i, err)
		}
	}

	return recs, nil
}
