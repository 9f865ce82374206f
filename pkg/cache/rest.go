package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// restRemote backs the shared tier with an Upstash-style REST key-value
// service:
//
//	GET  {base}/get/<key>                            -> {"result": <string|null>}
//	POST {base}/set/<key>/<urlencoded-value>?EX=<s>  -> {"result": "OK"}
//
// Both calls carry a bearer token.
type restRemote struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRESTRemote creates a REST-backed remote tier.
func NewRESTRemote(baseURL, token string) Remote {
	return &restRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// restResult is the response shape of both the get and set endpoints.
type restResult struct {
	Result *string `json:"result"`
	Error  string  `json:"error"`
}

func (r *restRemote) Get(ctx context.Context, key string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/get/%s", r.baseURL, url.PathEscape(key))

	result, err := r.do(ctx, http.MethodGet, reqURL)
	if err != nil {
		return nil, err
	}
	if result.Result == nil {
		return nil, ErrMiss
	}
	return []byte(*result.Result), nil
}

func (r *restRemote) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	ttlSeconds := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		ttlSeconds++
	}
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	reqURL := fmt.Sprintf("%s/set/%s/%s?EX=%d",
		r.baseURL, url.PathEscape(key), url.PathEscape(string(data)), ttlSeconds)

	_, err := r.do(ctx, http.MethodPost, reqURL)
	return err
}

func (r *restRemote) Ping(ctx context.Context) error {
	_, err := r.Get(ctx, "ping")
	if err != nil && err != ErrMiss {
		return err
	}
	return nil
}

func (r *restRemote) do(ctx context.Context, method, reqURL string) (*restResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kv request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read kv response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kv store returned status %d", resp.StatusCode)
	}

	var result restResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode kv response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("kv store error: %s", result.Error)
	}
	return &result, nil
}
