package utils

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"

	"youtv/models"
)

const maxInputLength = 1000

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// URLPolicy is the SSRF guard applied to every caller-supplied URL before any
// network activity happens.
type URLPolicy struct {
	// BlockedHosts are compared against the whole hostname.
	BlockedHosts []string
	// BlockedIPPrefixes are compared against the start of the hostname.
	BlockedIPPrefixes []string
}

// Check validates rawURL and returns the parsed form. A failure wraps
// models.ErrBlockedURL.
func (p URLPolicy) Check(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBlockedURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q not allowed", models.ErrBlockedURL, parsed.Scheme)
	}
	host := normalizeHostname(parsed.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", models.ErrBlockedURL)
	}
	for _, blocked := range p.BlockedHosts {
		if b := strings.ToLower(strings.TrimSpace(blocked)); b != "" && host == b {
			return nil, fmt.Errorf("%w: host %s", models.ErrBlockedURL, host)
		}
	}
	for _, prefix := range p.BlockedIPPrefixes {
		if pre := strings.TrimSpace(prefix); pre != "" && strings.HasPrefix(host, pre) {
			return nil, fmt.Errorf("%w: host %s", models.ErrBlockedURL, host)
		}
	}
	return parsed, nil
}

// IsValidURL reports whether rawURL passes the policy.
func (p URLPolicy) IsValidURL(rawURL string) bool {
	_, err := p.Check(rawURL)
	return err == nil
}

// normalizeHostname lowercases and punycode-encodes a hostname for the
// denylist comparison. Hostnames that do not encode yield "".
func normalizeHostname(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	ascii, err := idna.Punycode.ToASCII(host)
	if err != nil {
		return ""
	}
	return ascii
}

// SanitizeInput trims s, strips angle brackets and caps its length.
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	if runes := []rune(s); len(runes) > maxInputLength {
		s = string(runes[:maxInputLength])
	}
	return s
}

// IsValidVideoID accepts 1-50 letters, digits, underscores or hyphens.
func IsValidVideoID(id string) bool {
	return len(id) > 0 && len(id) <= 50 && identifierPattern.MatchString(id)
}

// IsValidSourceCode accepts identifier-shaped codes and any custom_ code.
func IsValidSourceCode(code string) bool {
	if code == "" {
		return false
	}
	return identifierPattern.MatchString(code) || models.IsCustomSourceCode(code)
}

// FilterSensitiveHeaders copies src without the named headers. Names are
// matched case-insensitively.
func FilterSensitiveHeaders(src http.Header, names []string) http.Header {
	out := src.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out.Del(name)
		}
	}
	return out
}
