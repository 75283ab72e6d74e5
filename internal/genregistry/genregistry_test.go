package genregistry

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzafarm/datasmith/internal/core"
)

func TestConstantKind_StreamsVerbatim(t *testing.T) {
	k := constantKind{}
	gctx := &GenContext{Column: &core.ColumnMetadata{Name: "dept"}, Spec: "CS"}
	v, err := k.Stream(context.Background(), gctx)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "CS", *v)
}

func TestRegexKind_ValidateRejectsBadPattern(t *testing.T) {
	k := regexKind{}
	_, err := k.Validate("(unterminated")
	assert.Error(t, err)
}

func TestRegexKind_StreamMatchesPattern(t *testing.T) {
	k := regexKind{}
	pattern := "^(CS|MECH|CIVIL|IT)$"
	_, err := k.Validate(pattern)
	require.NoError(t, err)

	re := regexp.MustCompile(pattern)
	gctx := &GenContext{Column: &core.ColumnMetadata{}, Spec: pattern}
	for i := 0; i < 20; i++ {
		v, err := k.Stream(context.Background(), gctx)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.True(t, re.MatchString(*v), "value %q should match %q", *v, pattern)
	}
}

func TestCapString_Truncates(t *testing.T) {
	length := int64(3)
	col := &core.ColumnMetadata{Length: &length}
	assert.Equal(t, "hel", capString(col, "hello"))
	assert.Equal(t, "hi", capString(col, "hi"))
}

func TestCapNumeric_ClampsToPrecisionScale(t *testing.T) {
	precision := int64(4)
	scale := int64(2)
	col := &core.ColumnMetadata{Precision: &precision, Scale: &scale}
	// max representable is 99.99
	assert.Equal(t, "99.99", capNumeric(col, "12345.678"))
	assert.Equal(t, "-99.99", capNumeric(col, "-500"))
	assert.Equal(t, "12.34", capNumeric(col, "12.34"))
}

func TestValidatePrecisionScale_RejectsScaleExceedingPrecision(t *testing.T) {
	p, s := int64(2), int64(3)
	err := validatePrecisionScale(&p, &s)
	assert.Error(t, err)
}

func TestForeignKind_ParsesTableColumn(t *testing.T) {
	k := foreignKind{}
	_, err := k.Validate("teachers.teacher_id")
	assert.NoError(t, err)

	_, err = k.Validate("badspec")
	assert.Error(t, err)
}

func TestFakerKind_ValidateRejectsUnknownMethod(t *testing.T) {
	k := fakerKind{}
	_, err := k.Validate("not_a_real_method")
	assert.Error(t, err)
}

func TestFakerKind_StreamProducesValue(t *testing.T) {
	k := fakerKind{}
	_, err := k.Validate("name")
	require.NoError(t, err)

	v, err := k.Stream(context.Background(), &GenContext{Column: &core.ColumnMetadata{}, Spec: "name"})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.NotEmpty(t, *v)
}
