package genregistry

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"regexp/syntax"
	"strings"
)

// regexKind treats the generator spec as a pattern and samples a string
// matching it. No groundable third-party pattern-to-string generator
// exists anywhere in the retrieved example pack (see DESIGN.md) so this
// walks the stdlib regexp/syntax AST directly.
type regexKind struct{}

func (regexKind) Validate(spec string) (int, error) {
	if _, err := regexp.Compile(spec); err != nil {
		return 0, fmt.Errorf("genregistry: invalid regex %q: %w", spec, err)
	}
	if _, err := syntax.Parse(spec, syntax.Perl); err != nil {
		return 0, fmt.Errorf("genregistry: invalid regex %q: %w", spec, err)
	}
	return 0, nil
}

func (regexKind) Stream(_ context.Context, gctx *GenContext) (*string, error) {
	re, err := syntax.Parse(gctx.Spec, syntax.Perl)
	if err != nil {
		return nil, fmt.Errorf("genregistry: invalid regex %q: %w", gctx.Spec, err)
	}
	var sb strings.Builder
	sampleRegexp(re, &sb)
	v := capString(gctx.Column, sb.String())
	return &v, nil
}

// maxRepeat bounds unbounded repetition (*, +, {n,}) to a small count so
// sampling always terminates; a {n,m} range wider than maxRepeat is capped
// at n+maxRepeat as well.
const maxRepeat = 6

// sampleRegexp walks a parsed regexp AST and writes one string matching it.
func sampleRegexp(re *syntax.Regexp, sb *strings.Builder) {
	switch re.Op {
	case syntax.OpLiteral:
		for _, r := range re.Rune {
			sb.WriteRune(r)
		}
	case syntax.OpCharClass:
		sb.WriteRune(sampleCharClass(re.Rune))
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		sb.WriteRune(rune('a' + rand.Intn(26)))
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			sampleRegexp(sub, sb)
		}
	case syntax.OpAlternate:
		if len(re.Sub) > 0 {
			sampleRegexp(re.Sub[rand.Intn(len(re.Sub))], sb)
		}
	case syntax.OpStar:
		n := rand.Intn(maxRepeat + 1)
		for i := 0; i < n; i++ {
			sampleRegexp(re.Sub[0], sb)
		}
	case syntax.OpPlus:
		n := 1 + rand.Intn(maxRepeat)
		for i := 0; i < n; i++ {
			sampleRegexp(re.Sub[0], sb)
		}
	case syntax.OpQuest:
		if rand.Intn(2) == 0 {
			sampleRegexp(re.Sub[0], sb)
		}
	case syntax.OpRepeat:
		min := re.Min
		max := re.Max
		if max < 0 || max > min+maxRepeat {
			max = min + maxRepeat
		}
		n := min
		if max > min {
			n = min + rand.Intn(max-min+1)
		}
		for i := 0; i < n; i++ {
			sampleRegexp(re.Sub[0], sb)
		}
	case syntax.OpCapture:
		if len(re.Sub) > 0 {
			sampleRegexp(re.Sub[0], sb)
		}
	case syntax.OpBeginLine, syntax.OpEndLine, syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary, syntax.OpEmptyMatch:
		// zero-width; nothing to emit
	default:
		// Unsupported op (e.g. backreference-like constructs Go's RE2
		// doesn't support anyway) — emit nothing rather than fail the
		// whole sample.
	}
}

// sampleCharClass picks a uniformly random rune from a syntax.Regexp's
// Rune pair-list (each pair is an inclusive [lo, hi] range).
func sampleCharClass(ranges []rune) rune {
	var total int64
	for i := 0; i < len(ranges); i += 2 {
		total += int64(ranges[i+1]-ranges[i]) + 1
	}
	if total <= 0 {
		return '?'
	}
	pick := rand.Int63n(total)
	for i := 0; i < len(ranges); i += 2 {
		span := int64(ranges[i+1]-ranges[i]) + 1
		if pick < span {
			return ranges[i] + rune(pick)
		}
		pick -= span
	}
	return ranges[0]
}
