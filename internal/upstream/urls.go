package upstream

import (
	"net/url"
	"strconv"
	"strings"

	"youtv/utils"
)

// SearchURL builds the videolist query. Pages after the first use the
// paginated form.
func SearchURL(base, query string, page int) string {
	fragment := "?ac=videolist&wd=" + escape(query)
	if page > 1 {
		fragment += "&pg=" + strconv.Itoa(page)
	}
	return utils.JoinQuery(base, fragment)
}

// DetailURL builds the detail query for one id.
func DetailURL(base, id string) string {
	return utils.JoinQuery(base, "?ac=detail&ids="+escape(id))
}

// ProbeURL builds the lightweight list query used by health checks: category
// 1, first page, last 24 hours.
func ProbeURL(base string) string {
	return utils.JoinQuery(base, "?ac=list&t=1&pg=1&h=24")
}

// escape percent-encodes a query value with spaces as %20, which some
// upstreams require.
func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
