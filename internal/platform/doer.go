package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream requests.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_requests_total",
		Help: "Total upstream requests by platform and status",
	}, []string{"platform", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by platform",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"platform"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_errors_total",
		Help: "Total upstream errors by platform and code",
	}, []string{"platform", "code"})
)

const defaultUserAgent = "dashboard-api/1.0 (+https://github.com/imlucaa/dashboard-api)"

// maxBodyBytes bounds upstream response bodies.
const maxBodyBytes = 4 << 20

// Doer performs bounded JSON requests against upstream platforms. Every call
// carries an explicit timeout so a slow upstream never hangs a handler.
type Doer struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     zerolog.Logger
}

// NewDoer creates a Doer with the given per-request timeout.
func NewDoer(timeout time.Duration, logger zerolog.Logger) *Doer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Doer{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		userAgent:  defaultUserAgent,
		logger:     logger,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (d *Doer) SetHTTPClient(client *http.Client) {
	d.httpClient = client
}

// GetJSON performs a GET against url and decodes the JSON body into out.
// Failures come back as typed platform errors via Classify.
func (d *Doer) GetJSON(ctx context.Context, name, url string, headers map[string]string, out any) error {
	return d.requestJSON(ctx, name, http.MethodGet, url, nil, headers, out)
}

// PostForm performs a form POST (used by token endpoints) and decodes the
// JSON body into out.
func (d *Doer) PostForm(ctx context.Context, name, url string, body io.Reader, headers map[string]string, out any) error {
	return d.requestJSON(ctx, name, http.MethodPost, url, body, headers, out)
}

func (d *Doer) requestJSON(ctx context.Context, name, method, url string, body io.Reader, headers map[string]string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", name, err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	upstreamRequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		// The stdlib client reports its own deadline as a url.Error; fold
		// the context state in so Classify sees timeouts as timeouts.
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		platformErr := Classify(name, nil, err)
		upstreamRequestsTotal.WithLabelValues(name, "network_error").Inc()
		upstreamErrorsTotal.WithLabelValues(name, string(platformErr.Code)).Inc()
		d.logger.Warn().Err(err).Str("platform", name).Msg("Upstream request failed")
		return platformErr
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(name, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		platformErr := Classify(name, resp, nil)
		upstreamErrorsTotal.WithLabelValues(name, string(platformErr.Code)).Inc()
		d.logger.Warn().
			Str("platform", name).
			Int("status", resp.StatusCode).
			Str("code", string(platformErr.Code)).
			Msg("Upstream request error")
		return platformErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Classify(name, nil, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		upstreamErrorsTotal.WithLabelValues(name, string(CodeUpstream)).Inc()
		return &Error{
			Code:    CodeUpstream,
			Status:  http.StatusBadGateway,
			Message: fmt.Sprintf("%s returned malformed JSON", name),
			Err:     err,
		}
	}
	return nil
}
