package proxy

import (
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/imlucaa/dashboard-api/internal/platform"
)

// errorBody is the JSON error shape every route returns.
type errorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// writePayload writes a successful platform response with the cache headers.
// Stale responses carry a top-level "stale": true alongside the payload.
func writePayload(w http.ResponseWriter, res Resource, payload json.RawMessage, source Source, stale bool) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", fmt.Sprintf("s-maxage=%d, stale-while-revalidate=%d",
		int(res.Fresh.Seconds()), int(res.Stale.Seconds())))
	w.Header().Set(cacheHeaderName(res.Platform), string(source))

	body := payload
	if stale {
		body = injectStaleFlag(payload)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeError writes a typed platform error as JSON. Error responses are
// never cacheable.
func writeError(w http.ResponseWriter, platformErr *platform.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(platformErr.Status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:      platformErr.Message,
		Code:       string(platformErr.Code),
		RetryAfter: platformErr.RetryAfter,
	})
}

// writeLocalRateLimited writes the local limiter's 429.
func writeLocalRateLimited(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:      "too many requests",
		Code:       "RATE_LIMITED_LOCAL",
		RetryAfter: retryAfter,
	})
}

// cacheHeaderName builds the per-platform cache header, e.g. X-Steam-Cache.
func cacheHeaderName(name string) string {
	if name == "" {
		return "X-Cache"
	}
	return "X-" + strings.ToUpper(name[:1]) + strings.ToLower(name[1:]) + "-Cache"
}

// injectStaleFlag adds "stale": true to a serialized JSON object. Payloads
// that are not objects are wrapped instead of mutated.
func injectStaleFlag(payload json.RawMessage) json.RawMessage {
	var asMap map[string]any
	if err := json.Unmarshal(payload, &asMap); err == nil && asMap != nil {
		asMap["stale"] = true
		if out, err := json.Marshal(asMap); err == nil {
			return out
		}
	}
	out, err := json.Marshal(map[string]any{"data": payload, "stale": true})
	if err != nil {
		return payload
	}
	return out
}
