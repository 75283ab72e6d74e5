package server

import "fmt"

// bodyString reads a string field, tolerating its absence.
func bodyString(body map[string]any, key string) string {
	v, ok := body[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// bodyInt reads a numeric field (JSON numbers decode as float64), tolerating
// its absence.
func bodyInt(body map[string]any, key string) (int, bool) {
	v, ok := body[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func bodyIntOr(body map[string]any, key string, def int) int {
	n, ok := bodyInt(body, key)
	if !ok {
		return def
	}
	return n
}

// bodyIntPtr reads an optional page index, distinguishing "absent/null"
// (nil) from a provided value, per get_packet_page's page=NULL semantics.
func bodyIntPtr(body map[string]any, key string) *int {
	v, ok := body[key]
	if !ok || v == nil {
		return nil
	}
	n, ok := bodyInt(body, key)
	if !ok {
		return nil
	}
	return &n
}

func bodyColumns(body map[string]any, key string) ([]any, error) {
	v, ok := body[key]
	if !ok {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("server: %q must be an array", key)
	}
	return arr, nil
}
