package websocket

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/pscheid92/votepulse/internal/adapter/metrics"
)

// OriginPolicy lists the browser origins allowed to subscribe to the vote feed.
type OriginPolicy struct {
	AppURL string
	// Sites embedding the live tally, e.g. "https://ideas.example.org".
	EmbedOrigins   []string
	AllowLocalhost bool
}

// NewCheckOrigin returns a CheckOrigin function for the Centrifuge WebSocket handler.
// Requests without an Origin header come from non-browser clients and are allowed.
// wsMetrics may be nil.
func NewCheckOrigin(policy OriginPolicy, wsMetrics *metrics.WebSocketMetrics) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(policy.EmbedOrigins)+1)
	for _, raw := range append([]string{policy.AppURL}, policy.EmbedOrigins...) {
		origin := extractOrigin(raw)
		if origin == "" {
			slog.Warn("Ignoring malformed websocket origin", "origin", raw)
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		if policy.AllowLocalhost && isLocalhostOrigin(origin) {
			return true
		}

		if wsMetrics != nil {
			wsMetrics.RejectedOrigins.Inc()
		}
		slog.WarnContext(r.Context(), "WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
