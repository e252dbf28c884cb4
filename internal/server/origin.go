package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// originSet is the normalized allow-list the upgrader checks Origin headers
// against. A configured "*" allows everything.
type originSet struct {
	allowAll bool
	allowed  map[string]struct{}
	log      zerolog.Logger
}

func newOriginSet(origins []string, log zerolog.Logger) *originSet {
	set := &originSet{
		allowed: make(map[string]struct{}, len(origins)),
		log:     log,
	}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			set.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn().Str("origin", origin).Msg("ignoring invalid origin in configuration")
			continue
		}
		set.allowed[normalized] = struct{}{}
	}
	return set
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func (s *originSet) check(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" {
		// Non-browser clients send no Origin header.
		return true
	}

	normalized, ok := normalizeOrigin(header)
	if !ok {
		return false
	}
	if s.allowAll {
		return true
	}
	if _, exists := s.allowed[normalized]; exists {
		return true
	}

	s.log.Warn().Str("origin", header).Msg("blocked websocket connection from disallowed origin")
	return false
}
