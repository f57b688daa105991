package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Red    = "\033[31m"
	Yellow = "\033[33m"

	BrightGreen   = "\033[92m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"
)

// Cache-related log prefixes
const (
	LogCacheInit    = Blue + "[Cache:Init]" + Reset
	LogCache        = Blue + "[Cache]" + Reset
	LogCacheBackup  = Blue + "[Cache:Backup]" + Reset
	LogCacheClear   = Blue + "[Cache:Clear]" + Reset
	LogCacheBackups = Blue + "[Cache:Backups]" + Reset
	LogCacheLyrics  = Green + "[Cache:Lyrics]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
	LogAccess    = Cyan + "[Access]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// sourceColors rotate over provider names so each provider keeps one color
var sourceColors = []string{
	BrightGreen, BrightBlue, BrightMagenta, BrightCyan,
}

// Provider returns a bracketed, colored provider name for log messages.
// The same name always gets the same color.
func Provider(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	color := sourceColors[hash%len(sourceColors)]
	return color + "[" + name + "]" + Reset
}

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
)

// Resolution and playback log prefixes
const (
	LogResolver  = Purple + "[Resolver]" + Reset
	LogSession   = Cyan + "[Session]" + Reset
	LogPlayback  = Blue + "[Playback]" + Reset
	LogInFlight  = Cyan + "[InFlight]" + Reset
	LogStale     = Red + "[Stale]" + Reset
	LogStrategy  = Cyan + "[Strategy]" + Reset
	LogParser    = Cyan + "[Parser]" + Reset
	LogRequest   = Purple + "[Request]" + Reset
	LogSearch    = Blue + "[Search]" + Reset
	LogHTTP      = Cyan + "[HTTP]" + Reset
	LogMatch     = Green + "[Match]" + Reset
	LogSuccess   = Green + "[Success]" + Reset
	LogLyrics    = Blue + "[Lyrics]" + Reset
	LogFallback  = Cyan + "[Fallback]" + Reset
	LogNotFound  = Red + "[Not Found]" + Reset
	LogWarning   = Red + "[Warning]" + Reset
)
