package middleware

import (
	"crypto/subtle"
	"lyrics-sync-go/logcolors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ValidAPIKey reports whether provided matches expected. An empty expected
// key never matches.
func ValidAPIKey(provided, expected string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// publicPaths matches exact paths and "prefix*" patterns
type publicPaths struct {
	exact    map[string]bool
	prefixes []string
}

func newPublicPaths(paths []string) publicPaths {
	p := publicPaths{exact: make(map[string]bool)}
	for _, path := range paths {
		if prefix, ok := strings.CutSuffix(path, "*"); ok {
			p.prefixes = append(p.prefixes, prefix)
			continue
		}
		p.exact[path] = true
	}
	return p
}

func (p publicPaths) match(path string) bool {
	if p.exact[path] {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// APIKeyMiddleware requires a matching X-API-Key header on every path not
// listed in public. When required is false it is a no-op; when required is
// true but no key is configured it warns and lets requests through.
func APIKeyMiddleware(apiKey string, required bool, public []string) func(http.Handler) http.Handler {
	paths := newPublicPaths(public)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required || paths.match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if apiKey == "" {
				log.Warnf("%s API key required but not configured, allowing request", logcolors.LogAPIKey)
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			switch {
			case provided == "":
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, ClientIP(r), r.URL.Path)
				writeUnauthorized(w, `{"error":"API key required","message":"Provide a valid API key via X-API-Key header"}`)
			case !ValidAPIKey(provided, apiKey):
				log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, ClientIP(r), r.URL.Path)
				writeUnauthorized(w, `{"error":"Invalid API key","message":"The provided API key is not valid"}`)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(body))
}
