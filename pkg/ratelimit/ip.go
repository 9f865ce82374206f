package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownClient is the shared identity used when no client address can be
// derived. All unidentified clients share one bucket; that approximation is
// accepted for this use case.
const UnknownClient = "unknown"

// ClientIP derives the client identity from proxy headers: the first hop of
// X-Forwarded-For, then X-Real-IP, then UnknownClient.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return UnknownClient
}
