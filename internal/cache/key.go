package cache

import (
	"net/url"
	"sort"
	"strings"
)

// NormalizeURIKey returns a canonical cache key for a URI: surrounding
// whitespace removed, scheme and host lowercased, the fragment dropped and
// query parameters sorted. Text that does not parse as an absolute URI is
// only trimmed.
func NormalizeURIKey(uri string) string {
	uri = strings.TrimSpace(uri)
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return uri
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.RawQuery != "" {
		u.RawQuery = buildQueryPart(u.Query())
	}
	return u.String()
}

// buildQueryPart encodes query parameters with sorted keys and values.
func buildQueryPart(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		values := append([]string(nil), query[k]...)
		sort.Strings(values)
		for _, v := range values {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}
