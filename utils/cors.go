package utils

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// LocalOrigins is the CORS_ORIGIN value that trusts only LAN/local origins.
const LocalOrigins = "local"

// IsAllowedOrigin checks whether an Origin header value is a local origin.
// It allows localhost, private/RFC1918 IPs, link-local IPs, .local hostnames,
// and single-label hostnames (no dots). Public internet origins are blocked.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()
	if hostname == "localhost" || strings.HasSuffix(hostname, ".local") {
		return true
	}
	if !strings.Contains(hostname, ".") {
		return true
	}
	if ip := net.ParseIP(hostname); ip != nil {
		return isPrivateIP(ip)
	}
	return false
}

var privateRanges = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("169.254.0.0/16"), // link-local IPv4
	mustParseCIDR("::1/128"),
	mustParseCIDR("fe80::/10"),
	mustParseCIDR("fc00::/7"),
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateRanges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDR(s string) *net.IPNet {
	_, network, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return network
}

// ResolveAllowedOrigin returns the Access-Control-Allow-Origin value for a
// request origin under the configured policy, or "" when nothing should be
// sent. policy is "*", "local", or a comma-separated list of origins.
func ResolveAllowedOrigin(policy, origin string) string {
	policy = strings.TrimSpace(policy)
	switch policy {
	case "", "*":
		return "*"
	case LocalOrigins:
		if IsAllowedOrigin(origin) {
			return origin
		}
		return ""
	}
	for _, allowed := range strings.Split(policy, ",") {
		if strings.TrimSpace(allowed) == origin && origin != "" {
			return origin
		}
	}
	return ""
}

// SetPermissiveCORS marks a proxied response as readable from any origin.
func SetPermissiveCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}
