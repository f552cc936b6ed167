package websocket

import (
	"net/url"
	"strings"
)

// AllowList is an OriginValidator backed by a list of scheme://host[:port]
// origins. A "*" entry allows everything. Loopback origins are allowed when
// AllowLoopback is set.
type AllowList struct {
	Origins       []string
	AllowLoopback bool
}

// IsAllowedOrigin implements OriginValidator.
func (a AllowList) IsAllowedOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	if a.AllowLoopback {
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return true
		}
	}

	normalized := u.Scheme + "://" + strings.ToLower(u.Host)
	for _, allowed := range a.Origins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), normalized) {
			return true
		}
	}
	return false
}
