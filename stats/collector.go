package stats

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lyrics_sync"

var (
	requestsDesc = prometheus.NewDesc(namespace+"_requests_total",
		"Requests served, by endpoint group.", []string{"endpoint"}, nil)
	cacheDesc = prometheus.NewDesc(namespace+"_cache_lookups_total",
		"Lyrics cache lookups, by outcome.", []string{"outcome"}, nil)
	resolverDesc = prometheus.NewDesc(namespace+"_resolver_events_total",
		"Resolver events, by kind.", []string{"event"}, nil)
	providerDesc = prometheus.NewDesc(namespace+"_provider_attempts_total",
		"Provider attempts, by source and outcome.", []string{"source", "outcome"}, nil)
	rateLimitDesc = prometheus.NewDesc(namespace+"_rate_limit_total",
		"Requests per rate limit tier.", []string{"tier"}, nil)
	responsesDesc = prometheus.NewDesc(namespace+"_responses_total",
		"Responses by status class.", []string{"class"}, nil)
	responseTimeDesc = prometheus.NewDesc(namespace+"_response_time_seconds_avg",
		"Average response time.", nil, nil)
	uptimeDesc = prometheus.NewDesc(namespace+"_uptime_seconds",
		"Seconds since the server started.", nil, nil)
)

// Collector exposes a Stats as Prometheus metrics. Values are read from the
// counters on every scrape.
type Collector struct {
	stats *Stats
}

// NewCollector wraps s for registration with a prometheus.Registerer
func NewCollector(s *Stats) *Collector {
	return &Collector{stats: s}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		requestsDesc, cacheDesc, resolverDesc, providerDesc,
		rateLimitDesc, responsesDesc, responseTimeDesc, uptimeDesc,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats
	counter := func(desc *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}

	counter(requestsDesc, s.LyricsRequests.Load(), "lyrics")
	counter(requestsDesc, s.NowPlayingRequests.Load(), "now_playing")
	counter(requestsDesc, s.CacheRequests.Load(), "cache")
	counter(requestsDesc, s.OtherRequests.Load(), "other")

	counter(cacheDesc, s.CacheHits.Load(), "hit")
	counter(cacheDesc, s.CacheMisses.Load(), "miss")

	counter(resolverDesc, s.Resolutions.Load(), "resolution")
	counter(resolverDesc, s.InFlightJoins.Load(), "in_flight_join")
	counter(resolverDesc, s.Placeholders.Load(), "placeholder")
	counter(resolverDesc, s.StaleDiscards.Load(), "stale_discard")
	counter(resolverDesc, s.ResolveTimeouts.Load(), "timeout")
	counter(resolverDesc, s.ResolveCancelled.Load(), "cancelled")

	var sources []string
	s.providers.Range(func(k, _ any) bool {
		sources = append(sources, k.(string))
		return true
	})
	sort.Strings(sources)
	for _, source := range sources {
		p := s.provider(source)
		counter(providerDesc, p.Successes.Load(), source, "found")
		counter(providerDesc, p.Empty.Load(), source, "empty")
	}

	counter(rateLimitDesc, s.RateLimitNormal.Load(), "normal")
	counter(rateLimitDesc, s.RateLimitCached.Load(), "cached")
	counter(rateLimitDesc, s.RateLimitExceeded.Load(), "exceeded")

	counter(responsesDesc, s.Status2xx.Load(), "2xx")
	counter(responsesDesc, s.Status4xx.Load(), "4xx")
	counter(responsesDesc, s.Status5xx.Load(), "5xx")

	ch <- prometheus.MustNewConstMetric(responseTimeDesc, prometheus.GaugeValue, s.AvgResponseTime().Seconds())
	ch <- prometheus.MustNewConstMetric(uptimeDesc, prometheus.GaugeValue, s.Uptime().Seconds())
}
