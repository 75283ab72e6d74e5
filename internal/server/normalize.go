package server

import (
	"encoding/json"
	"fmt"

	"github.com/iancoleman/strcase"
)

// normalizeBody decodes raw into a map and rewrites its top-level keys from
// camelCase to snake_case, per spec.md §4.5 ("Field names inside body are
// auto-normalized from camelCase to snake_case before dispatch"). Nested
// objects are left untouched — spec.md's command bodies are all flat, and
// DESIGN.md records this as a non-recursive walk.
func normalizeBody(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("server: decoding request body: %w", err)
	}

	out := make(map[string]any, len(decoded))
	for k, v := range decoded {
		out[strcase.ToSnake(k)] = v
	}
	return out, nil
}
