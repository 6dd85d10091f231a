package ratelimit

import "time"

// Rule is the limit for requests matching Path and Method.
type Rule struct {
	Path   string        // exact path, or a prefix when it ends with "/"
	Method string        // HTTP method
	Limit  int           // maximum requests per window
	Window time.Duration // refill window
	Burst  int           // bucket capacity, defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled       bool
	DefaultLimit  int
	DefaultWindow time.Duration
	// IdleTTL drops buckets that saw no request for this long.
	IdleTTL time.Duration
	Rules   []Rule
}

// DefaultConfig limits ranking requests to rankPerHour per client and all
// other endpoints to defaultPerMinute.
func DefaultConfig(rankPerHour, defaultPerMinute int) *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  defaultPerMinute,
		DefaultWindow: time.Minute,
		IdleTTL:       time.Hour,
		Rules:         DefaultRules(rankPerHour),
	}
}

// DefaultRules returns the rules for oracle-backed endpoints. Both POST
// routes under /jobs/ run a full ranking request.
func DefaultRules(rankPerHour int) []Rule {
	burst := max(1, rankPerHour/10)
	return []Rule{
		{Path: "/jobs/", Method: "POST", Limit: rankPerHour, Window: time.Hour, Burst: burst},
	}
}
