package netx

import (
	"fmt"
	"net/url"
	"strings"
)

// WebSocketURL turns an http(s) server address into the ws(s) URL of path.
// ws and wss addresses are accepted as they are. Any path already on base
// is replaced.
func WebSocketURL(base, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", base)
	}
	u.Path = "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// JoinURL appends prefix to base, keeping exactly one slash between them.
func JoinURL(base, prefix string) string {
	base = strings.TrimRight(base, "/")
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return base
	}
	return base + "/" + prefix
}
