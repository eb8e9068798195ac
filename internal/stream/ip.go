package stream

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// clientIP returns the address used to key the per-IP stream limit.
//
// With trustProxy, the first X-Forwarded-For entry and then X-Real-IP win over
// RemoteAddr. Parsed addresses are canonicalised so IPv4-mapped IPv6 clients
// share a slot with their IPv4 form.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		xff, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		if ip := strings.TrimSpace(xff); ip != "" {
			return canonicalIP(ip)
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return canonicalIP(ip)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return canonicalIP(host)
}

func canonicalIP(s string) string {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return s
	}
	return addr.Unmap().WithZone("").String()
}
