package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	router.HandleFunc("/getLyrics", getLyrics).Methods(http.MethodGet)

	// Playback session
	router.HandleFunc("/now-playing", getNowPlaying).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/preference", setPreference).Methods(http.MethodGet, http.MethodPost)

	// Cache management, all behind CACHE_ACCESS_TOKEN
	router.HandleFunc("/cache", requireAuth(getCacheDump)).Methods(http.MethodGet)
	router.HandleFunc("/cache/lookup", requireAuth(cacheLookup)).Methods(http.MethodGet)
	router.HandleFunc("/cache/delete", requireAuth(deleteCacheEntry)).Methods(http.MethodPost, http.MethodDelete)
	router.HandleFunc("/cache/backup", requireAuth(backupCache)).Methods(http.MethodPost)
	router.HandleFunc("/cache/clear", requireAuth(clearCache)).Methods(http.MethodPost)
	router.HandleFunc("/cache/backups", requireAuth(listBackups)).Methods(http.MethodGet)

	// Health and stats
	router.HandleFunc("/health", getHealthStatus).Methods(http.MethodGet)
	router.HandleFunc("/stats", getStats).Methods(http.MethodGet)
	router.Handle("/metrics", metricsHandler()).Methods(http.MethodGet)

	// Circuit breakers
	router.HandleFunc("/circuit-breaker", requireAuth(getCircuitBreakerStatus)).Methods(http.MethodGet)
	router.HandleFunc("/circuit-breaker/reset", requireAuth(resetCircuitBreaker)).Methods(http.MethodPost)

	router.HandleFunc("/", helpHandler)
}

// newRouter returns a router with every route registered
func newRouter() *mux.Router {
	router := mux.NewRouter()
	setupRoutes(router)
	return router
}
