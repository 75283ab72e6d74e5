package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBodyConvertsTopLevelKeys(t *testing.T) {
	body, err := normalizeBody(json.RawMessage(`{"noOfEntries": 50, "pageSize": 10, "name": "teachers"}`))
	require.NoError(t, err)
	assert.Equal(t, float64(50), body["no_of_entries"])
	assert.Equal(t, float64(10), body["page_size"])
	assert.Equal(t, "teachers", body["name"])
}

func TestNormalizeBodyIsNonRecursive(t *testing.T) {
	body, err := normalizeBody(json.RawMessage(`{"columnSpec": {"generatorKind": "faker"}}`))
	require.NoError(t, err)
	nested, ok := body["column_spec"].(map[string]any)
	require.True(t, ok)
	_, stillCamel := nested["generatorKind"]
	assert.True(t, stillCamel, "nested keys must not be rewritten")
}

func TestNormalizeBodyEmpty(t *testing.T) {
	body, err := normalizeBody(nil)
	require.NoError(t, err)
	assert.Empty(t, body)
}
