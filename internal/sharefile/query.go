package sharefile

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query is an ordered set of query parameters. Unlike url.Values it keeps
// insertion order, which the API (and its tests) depend on.
type Query struct {
	keys []string
	vals []string
}

// Set appends key with v converted to its wire form. Booleans become
// "true"/"false", integers are decimal and times are unix seconds.
func (q *Query) Set(key string, v any) *Query {
	q.keys = append(q.keys, key)
	q.vals = append(q.vals, queryValue(v))

	return q
}

// Len returns the number of parameters.
func (q *Query) Len() int {
	return len(q.keys)
}

// Encode returns "k1=v1&k2=v2" in insertion order.
func (q *Query) Encode() string {
	if q == nil || len(q.keys) == 0 {
		return ""
	}

	var b strings.Builder

	for i, k := range q.keys {
		if i > 0 {
			b.WriteByte('&')
		}

		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(q.vals[i]))
	}

	return b.String()
}

func queryValue(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "true"
		}

		return "false"
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case time.Time:
		return strconv.FormatInt(x.Unix(), 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// withQuery appends an encoded query to endpoint, or returns endpoint
// unchanged when q is empty.
func withQuery(endpoint string, q *Query) string {
	enc := q.Encode()
	if enc == "" {
		return endpoint
	}

	return endpoint + "?" + enc
}

// pathValueEscaper covers the characters url.PathEscape leaves alone but
// that would end or alter a query value.
var pathValueEscaper = strings.NewReplacer("&", "%26", "+", "%2B", "=", "%3D")

// encodePathSegments escapes each segment of a slash-separated path so it is
// safe inside a query value while slashes stay readable.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = pathValueEscaper.Replace(url.PathEscape(seg))
	}

	return strings.Join(segments, "/")
}
