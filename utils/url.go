package utils

import (
	"net/url"
	"strings"
)

// EncodeURLWithSpaces re-encodes a URL whose path or query still carries raw
// spaces. Upstream playlists and decoded proxy targets routinely contain them.
func EncodeURLWithSpaces(u *url.URL) string {
	encoded := u.Scheme + "://" + u.Host + u.EscapedPath()
	if u.RawQuery != "" {
		encoded += "?" + strings.ReplaceAll(u.RawQuery, " ", "%20")
	}
	return encoded
}

// JoinQuery appends a query fragment such as "?ac=detail&ids=1" to a source
// base URL, switching to "&" when the base already carries a query.
func JoinQuery(base, fragment string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.Contains(base, "?") && strings.HasPrefix(fragment, "?") {
		return base + "&" + fragment[1:]
	}
	return base + fragment
}
