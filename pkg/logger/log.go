package logger

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"hubevents/pkg/httpx"
)

var sensitive = map[string]struct{}{
	"authorization":    {},
	"x-api-key":        {},
	"x-user-signature": {},
}

func redactHeaderValue(k, v string) string {
	if v == "" {
		return ""
	}
	if _, ok := sensitive[strings.ToLower(k)]; ok {
		return "<redacted>"
	}
	return v
}

// SafeHeaders returns a compact string representation of headers suitable for
// logging with sensitive values redacted.
func SafeHeaders(h http.Header) string {
	parts := make([]string, 0, len(h))
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		parts = append(parts, k+"="+redactHeaderValue(k, v[0]))
	}
	return strings.Join(parts, "; ")
}

// LogRequest logs a concise, safe summary of an incoming admin request. It
// takes the transport-agnostic httpx.Request so the same call site covers
// both the fasthttp and net/http adapters.
func LogRequest(r *httpx.Request) {
	if Log == nil {
		return
	}
	Log.Info("incoming_request",
		zap.String("method", r.Method),
		zap.String("path", r.Path),
		zap.String("remote", r.RemoteAddr),
		zap.String("headers", SafeHeaders(r.Header)),
	)
}
