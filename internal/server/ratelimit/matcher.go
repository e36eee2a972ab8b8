package ratelimit

import (
	"strings"
)

var unlimited = &EndpointConfig{Group: "unlimited"}

// MatchEndpoint finds the config for a request. Exact paths win over prefixes,
// and the longest matching prefix wins among prefixes. It returns nil when
// nothing matches so the caller can apply the default limit.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" {
		return unlimited
	}

	for i := range configs {
		if configs[i].Method == method && configs[i].Path == path {
			return &configs[i]
		}
	}

	var best *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method || !strings.HasSuffix(c.Path, "/") || !strings.HasPrefix(path, c.Path) {
			continue
		}
		if best == nil || len(c.Path) > len(best.Path) {
			best = c
		}
	}
	return best
}
