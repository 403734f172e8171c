package http

import (
	"net"
	"net/http"
	"strings"
)

// ExtractClientIP resolves the caller's source address. The direct connection
// address is preferred; X-Forwarded-For is only a fallback for setups where
// the listener sees no usable peer address.
func ExtractClientIP(r *http.Request) string {
	if ip := remoteAddr(r); ip != "" {
		return ip
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	return "unknown"
}

// remoteAddr extracts the IP from RemoteAddr, stripping the port if present
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return ""
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
