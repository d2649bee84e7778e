package datasource

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// urlDSN builds a URL-style connection string for cfg. Query parameters
// are emitted in key order and empty values are dropped.
func urlDSN(scheme string, cfg Config, params map[string]string) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return "", fmt.Errorf("invalid port: %d", cfg.Port)
	}

	u := url.URL{Scheme: scheme, Host: cfg.Host}
	if cfg.Port > 0 {
		u.Host = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}
	switch {
	case cfg.Username != "" && cfg.Password != "":
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	case cfg.Username != "":
		u.User = url.User(cfg.Username)
	}
	if cfg.Database != "" {
		u.Path = "/" + cfg.Database
	}

	q := url.Values{}
	for _, m := range []map[string]string{params, cfg.Params} {
		for k, v := range m {
			if v != "" {
				q.Set(k, v)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
