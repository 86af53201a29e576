package internal

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Params are the query parameters of a Job. Slices are sent comma-joined
// (key=a,b,c); nil values, empty strings, empty slices and zero times are
// omitted entirely.
type Params map[string]any

// Merge returns a new Params holding base overlaid with the given layers, later
// layers winning. None of the inputs are modified.
func Merge(base Params, layers ...Params) Params {
	out := make(Params, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// Encode renders the parameters as a query string with sorted keys.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v, ok := formatParam(p[k])
		if !ok {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(strings.ReplaceAll(url.QueryEscape(v), "%2C", ","))
	}
	return sb.String()
}

func formatParam(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case *string:
		if val == nil || *val == "" {
			return "", false
		}
		return *val, true
	case []string:
		if len(val) == 0 {
			return "", false
		}
		return strings.Join(val, ","), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	case time.Time:
		if val.IsZero() {
			return "", false
		}
		return val.UTC().Format(time.RFC3339), true
	case *time.Time:
		if val == nil || val.IsZero() {
			return "", false
		}
		return val.UTC().Format(time.RFC3339), true
	case fmt.Stringer:
		s := val.String()
		return s, s != ""
	default:
		return fmt.Sprint(val), true
	}
}
