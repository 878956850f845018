package action

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Param accessors tolerate the shapes JSON decoding produces from generation
// service output: numbers arrive as float64, dates as strings in several
// formats, and tags as []any.

// String returns the named parameter as a string.
func String(params map[string]any, field string) string {
	if v, ok := params[field].(string); ok {
		return v
	}
	return ""
}

// Int returns the named parameter as an int, accepting float64 and numeric strings.
func Int(params map[string]any, field string) (int, bool) {
	switch v := params[field].(type) {
	case float64:
		if math.Trunc(v) != v {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// dateLayouts are the date formats accepted from generation service output.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time returns the named parameter parsed as a timestamp.
func Time(params map[string]any, field string) (time.Time, error) {
	raw := String(params, field)
	if raw == "" {
		return time.Time{}, fmt.Errorf("parameter %s is not a date string", field)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parameter %s has unrecognized date format %q", field, raw)
}

// Strings returns the named parameter as a string slice, accepting []any.
func Strings(params map[string]any, field string) []string {
	switch v := params[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
