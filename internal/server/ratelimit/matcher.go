package ratelimit

import "strings"

// unlimited marks endpoints that are never throttled.
var unlimited = Rule{}

// MatchRule returns the rule for a request, or nil when none applies.
// Exact paths win over prefixes; the health check is always unlimited.
func MatchRule(path, method string, rules []Rule) *Rule {
	if path == "/health" && method == "GET" {
		return &unlimited
	}

	for i := range rules {
		if rules[i].Path == path && rules[i].Method == method {
			return &rules[i]
		}
	}

	for i := range rules {
		r := &rules[i]
		if r.Method == method && strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			return r
		}
	}
	return nil
}
