package server

import (
	"fmt"
	"strings"
)

// errConnectionRequired is returned by the dispatcher when a command
// requiring a connection is invoked with no active Database Session.
var errConnectionRequired = fmt.Errorf("no active database connection")

// requireFields checks that every name in fields is present in body with a
// non-empty value, joining the names of any missing fields the same way
// original_source/core/runner.py's _handle_connect does: a single name on
// its own, or a comma-separated list with "and" before the last one.
// Grounded on original_source/core/utils/decorators.py's requires-style
// precondition check, reimplemented as a plain helper function since Go
// has no decorator syntax.
func requireFields(body map[string]any, fields ...string) error {
	var missing []string
	for _, f := range fields {
		v, ok := body[f]
		if !ok || isEmptyValue(v) {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if len(missing) == 1 {
		return fmt.Errorf("missing required parameter: %s", missing[0])
	}
	return fmt.Errorf("missing required parameters: %s", joinWithAnd(missing))
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}

// joinWithAnd renders ["a","b","c"] as "a, b, and c", matching
// original_source's f"{', '.join(missing[:-1])}, and {missing[-1]}".
func joinWithAnd(items []string) string {
	if len(items) == 1 {
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
