package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AngelCh415/campaign-analyzer/internal/utils"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// errStatus is a non-2xx answer; 4xx answers other than 429 are not retried.
type errStatus struct{ code int }

func (e errStatus) Error() string { return fmt.Sprintf("non-2xx: %d", e.code) }

func (e errStatus) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// fetch GETs url and returns the body along with the response content type.
// Bodies over limit bytes fail with ErrTooLarge.
func fetch(ctx context.Context, c HTTPClient, url string, limit int64) ([]byte, string, error) {
	if url == "" {
		return nil, "", errors.New("empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, "", errStatus{resp.StatusCode}
	}
	b, err := readLimited(resp.Body, limit)
	if err != nil {
		return nil, "", err
	}
	return b, resp.Header.Get("Content-Type"), nil
}

// fetchWithRetry retries transport errors, 429 and 5xx answers. Oversized
// bodies are not retried.
func fetchWithRetry(ctx context.Context, c HTTPClient, bo utils.Backoff, url string, limit int64) (body []byte, contentType string, err error) {
	var permanent error
	err = bo.Do(ctx, func(int) error {
		var ferr error
		body, contentType, ferr = fetch(ctx, c, url, limit)
		var st errStatus
		if errors.Is(ferr, ErrTooLarge) || errors.As(ferr, &st) && !st.retryable() {
			permanent = ferr
			return nil
		}
		return ferr
	})
	if permanent != nil {
		return nil, "", permanent
	}
	return body, contentType, err
}
