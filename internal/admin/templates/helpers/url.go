package helpers

import (
	"net/url"
	"strings"
)

// SetRawQuery sets key=value on an encoded query string.
func SetRawQuery(rawQuery, key, value string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		values = url.Values{}
	}
	values.Set(key, value)
	return values.Encode()
}

// BuildURL joins path (stripping any existing query) with rawQuery.
func BuildURL(path, rawQuery string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

// JoinPath appends suffix to the admin base path.
func JoinPath(basePath, suffix string) string {
	base := strings.TrimRight(strings.TrimSpace(basePath), "/")
	if suffix == "" {
		if base == "" {
			return "/"
		}
		return base
	}
	if !strings.HasPrefix(suffix, "/") {
		suffix = "/" + suffix
	}
	return base + suffix
}
