package depsort

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mzafarm/datasmith/internal/core"
)

func strPtr(s string) *string { return &s }

func TestSort_NoCycle(t *testing.T) {
	a := &core.TableMetadata{Name: "a"}
	b := &core.TableMetadata{
		Name: "b",
		Columns: []*core.ColumnMetadata{
			{Name: "a_id", ForeignKey: core.ForeignKeyRef{Table: "a", Column: "id"}, Nullable: false},
		},
	}

	order := Sort([]*core.TableMetadata{b, a})
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestSort_BreaksCycleByScore(t *testing.T) {
	// A's FK column is nullable, no default -> score 1.
	// B's FK column is non-nullable, no default -> score +inf.
	// The A->B edge (score 1) is removed, leaving order A, B.
	a := &core.TableMetadata{
		Name: "A",
		Columns: []*core.ColumnMetadata{
			{Name: "b_id", ForeignKey: core.ForeignKeyRef{Table: "B", Column: "id"}, Nullable: true},
		},
	}
	b := &core.TableMetadata{
		Name: "B",
		Columns: []*core.ColumnMetadata{
			{Name: "a_id", ForeignKey: core.ForeignKeyRef{Table: "A", Column: "id"}, Nullable: false},
		},
	}

	order := Sort([]*core.TableMetadata{a, b})
	assert.Equal(t, []string{"A", "B"}, order)
}

func TestSort_PrefersLowerScoreEdgeForRemoval(t *testing.T) {
	a := &core.TableMetadata{
		Name: "A",
		Columns: []*core.ColumnMetadata{
			{Name: "b_id", ForeignKey: core.ForeignKeyRef{Table: "B", Column: "id"}, Nullable: true, Default: strPtr("NULL")},
		},
	}
	b := &core.TableMetadata{
		Name: "B",
		Columns: []*core.ColumnMetadata{
			{Name: "a_id", ForeignKey: core.ForeignKeyRef{Table: "A", Column: "id"}, Nullable: true},
		},
	}

	// A's FK to B has score 0 (nullable+default), B's FK to A has score 1
	// (nullable only). The lower-scored edge (A's FK to B) is removed; B
	// still references A, so A must precede B.
	order := Sort([]*core.TableMetadata{a, b})
	assert.Equal(t, []string{"A", "B"}, order)
}

func TestBuildEdges_IgnoresTablesOutsideSet(t *testing.T) {
	a := &core.TableMetadata{
		Name: "a",
		Columns: []*core.ColumnMetadata{
			{Name: "ext_id", ForeignKey: core.ForeignKeyRef{Table: "outside", Column: "id"}},
		},
	}
	edges := BuildEdges([]*core.TableMetadata{a})
	assert.Empty(t, edges)
}
