package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Helpers for probing decoded JSON. Every helper answers "absent" for a
// missing key, a wrong type or a non-finite number instead of failing.

func lookup(m map[string]interface{}, key string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// numberValue converts a decoded JSON value to a finite float64
func numberValue(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// wholeNumber floors f to an int, reporting false when it does not fit
func wholeNumber(f float64) (int, bool) {
	f = math.Floor(f)
	if f < float64(math.MinInt) || f >= float64(math.MaxInt) {
		return 0, false
	}
	return int(f), true
}

// firstNumber returns the first key in keys holding a usable number
func firstNumber(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := lookup(m, key); ok {
			if f, ok := numberValue(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// firstString returns the first key in keys holding a non-blank string
func firstString(m map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := lookup(m, key); ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}

// firstBool returns the first key in keys holding a boolean
func firstBool(m map[string]interface{}, keys ...string) (bool, bool) {
	for _, key := range keys {
		if v, ok := lookup(m, key); ok {
			if b, ok := v.(bool); ok {
				return b, true
			}
		}
	}
	return false, false
}

func objectValue(m map[string]interface{}, key string) (map[string]interface{}, bool) {
	v, ok := lookup(m, key)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

// refID resolves a reference that is either a string id or an embedded
// document carrying _id or id.
func refID(v interface{}) (string, bool) {
	switch ref := v.(type) {
	case string:
		if s := strings.TrimSpace(ref); s != "" {
			return s, true
		}
	case map[string]interface{}:
		return firstString(ref, "_id", "id")
	}
	return "", false
}

func equalsAny(s string, candidates ...string) bool {
	for _, c := range candidates {
		if strings.EqualFold(s, c) {
			return true
		}
	}
	return false
}
