package main

import (
	"encoding/json"
	"lyrics-sync-go/middleware"
	"lyrics-sync-go/services/providers"
	"net/http"
)

// APIResponse sets the standard headers and writes JSON bodies.
// X-Cache-Status, X-Lyrics-Source, X-Auth-Mode and X-RateLimit-Type are
// derived from the request context and whatever the handler recorded.
type APIResponse struct {
	w           http.ResponseWriter
	r           *http.Request
	cacheStatus string
	source      providers.Source
	hasSource   bool
}

// Respond creates a response helper for one request
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetCacheStatus sets the X-Cache-Status header value
func (a *APIResponse) SetCacheStatus(status string) *APIResponse {
	a.cacheStatus = status
	return a
}

// SetSource sets the X-Lyrics-Source header; the empty source is sent as "none"
func (a *APIResponse) SetSource(src providers.Source) *APIResponse {
	a.source = src
	a.hasSource = true
	return a
}

func (a *APIResponse) writeHeaders() {
	h := a.w.Header()
	h.Set("Content-Type", "application/json")

	if a.cacheStatus != "" {
		h.Set("X-Cache-Status", a.cacheStatus)
	}
	if a.hasSource {
		src := string(a.source)
		if src == "" {
			src = "none"
		}
		h.Set("X-Lyrics-Source", src)
	}

	if key := a.r.Header.Get("X-API-Key"); key != "" {
		if middleware.ValidAPIKey(key, conf.Configuration.APIKey) {
			h.Set("X-Auth-Mode", "authenticated")
		} else {
			h.Set("X-Auth-Mode", "invalid")
		}
	}

	if tier, ok := middleware.LookupTier(a.r.Context()); ok {
		h.Set("X-RateLimit-Type", string(tier))
	}
}

// JSON writes headers and encodes data with 200 OK
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Status writes headers with statusCode and encodes data
func (a *APIResponse) Status(statusCode int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	return json.NewEncoder(a.w).Encode(data)
}

// Error writes a {"error": message} body with statusCode
func (a *APIResponse) Error(statusCode int, message string) error {
	return a.Status(statusCode, map[string]string{"error": message})
}
