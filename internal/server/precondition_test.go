package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireFieldsSingleMissing(t *testing.T) {
	err := requireFields(map[string]any{"host": "h"}, "host", "user")
	assert.EqualError(t, err, "missing required parameter: user")
}

func TestRequireFieldsMultipleMissingJoinedWithAnd(t *testing.T) {
	err := requireFields(map[string]any{}, "host", "user", "port")
	assert.EqualError(t, err, "missing required parameters: host, user, and port")
}

func TestRequireFieldsTwoMissing(t *testing.T) {
	err := requireFields(map[string]any{}, "host", "user")
	assert.EqualError(t, err, "missing required parameters: host, and user")
}

func TestRequireFieldsEmptyStringCountsAsMissing(t *testing.T) {
	err := requireFields(map[string]any{"name": ""}, "name")
	assert.Error(t, err)
}

func TestRequireFieldsAllPresent(t *testing.T) {
	err := requireFields(map[string]any{"host": "h", "user": "u"}, "host", "user")
	assert.NoError(t, err)
}
