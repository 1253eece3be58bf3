package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrDecode is returned when a 2xx response body cannot be decoded into the target type.
var ErrDecode = errors.New("httpclient: malformed response body")

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// StatusError reports a non-2xx response. Body holds the (possibly truncated) payload.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpclient: unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client represents the central HTTP client with retry capabilities
type Client struct {
	httpClient *retryablehttp.Client
}

// New initializes and returns a new Client with custom configurations
func New(timeout time.Duration, retries int) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Backoff = retryablehttp.LinearJitterBackoff
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	return &Client{
		httpClient: retryClient,
	}
}

// GETRequest sends a GET request to the specified URL and unmarshals the response into a generic type T
func GETRequest[T any](ctx context.Context, c *Client, url string, headers map[string]string) (T, error) {
	var result T

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return result, err
	}
	return do[T](c, req, headers)
}

// POSTRequest sends a POST request with a JSON body to the specified URL and unmarshals the response into a generic type T
func POSTRequest[T any](ctx context.Context, c *Client, url string, headers map[string]string, body any) (T, error) {
	var result T

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return result, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return result, err
	}
	req.Header.Set("Content-Type", "application/json")
	return do[T](c, req, headers)
}

func do[T any](c *Client, req *retryablehttp.Request, headers map[string]string) (T, error) {
	var result T

	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return result, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return result, nil
}
