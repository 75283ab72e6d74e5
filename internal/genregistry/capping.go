package genregistry

import (
	"fmt"
	"math"
	"strconv"

	"github.com/mzafarm/datasmith/internal/core"
)

// validatePrecisionScale rejects scale > precision at validate time, per
// spec.md §4.3's numeric-capping rule.
func validatePrecisionScale(precision, scale *int64) error {
	if precision != nil && scale != nil && *scale > *precision {
		return fmt.Errorf("genregistry: scale %d exceeds precision %d", *scale, *precision)
	}
	return nil
}

// capString truncates s to col.Length runes when set.
func capString(col *core.ColumnMetadata, s string) string {
	if col.Length == nil {
		return s
	}
	n := int(*col.Length)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// capNumeric clamps a numeric string to ±(10^(precision-scale)-1).(9*scale)
// given col.Precision/Scale, per spec.md §4.3.
func capNumeric(col *core.ColumnMetadata, s string) string {
	if col.Precision == nil {
		return s
	}
	precision := *col.Precision
	scale := int64(0)
	if col.Scale != nil {
		scale = *col.Scale
	}
	if precision-scale <= 0 {
		return s
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}

	bound := math.Pow(10, float64(precision-scale)) - 1
	// bound currently represents the integer-part bound; fractional digits
	// are all 9s up to scale, i.e. bound.999...
	fraction := 1 - math.Pow(10, -float64(scale))
	limit := bound + fraction

	clamped := f
	if clamped > limit {
		clamped = limit
	}
	if clamped < -limit {
		clamped = -limit
	}

	return strconv.FormatFloat(clamped, 'f', int(scale), 64)
}
