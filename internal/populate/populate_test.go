package populate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzafarm/datasmith/internal/core"
)

// fakeSource implements genregistry.ExistingValueSource for tests.
type fakeSource struct {
	values map[string][]string
}

func (f *fakeSource) ExistingValues(_ context.Context, table, column string) ([]string, error) {
	return f.values[table+"."+column], nil
}

func TestBuildPacket_FakerRegexPythonAutoincrement(t *testing.T) {
	meta := &core.TableMetadata{
		Name: "teachers",
		Columns: []*core.ColumnMetadata{
			{Name: "teacher_id", AutoIncrement: true, Nullable: false},
			{Name: "full_name", Nullable: false},
			{Name: "department", Nullable: false},
			{Name: "salary", Nullable: false},
		},
	}

	spec := &core.TableSpec{
		Name:        "teachers",
		NoOfEntries: 50,
		Columns: []core.ColumnSpec{
			{Name: "teacher_id", Type: core.GeneratorAutoincrement},
			{Name: "full_name", Type: core.GeneratorFaker, Generator: "name"},
			{Name: "department", Type: core.GeneratorRegex, Generator: "^(CS|MECH|CIVIL|IT)$"},
			{
				Name: "salary", Type: core.GeneratorPython, Order: 1,
				Generator: "func generator(columns map[string]string) string { return \"45000\" }",
			},
		},
	}

	p := New(&fakeSource{})
	_, packet, err := p.BuildPacket(context.Background(), meta, spec, nil)
	require.NoError(t, err)

	assert.Equal(t, 50, packet.TotalEntries)
	assert.Len(t, packet.Entries, 50)
	assert.Empty(t, packet.Errors)

	for _, row := range packet.Entries {
		assert.Nil(t, row[0], "autoincrement column must stay NULL")
		assert.NotNil(t, row[1])
		require.NotNil(t, row[2])
		assert.Contains(t, []string{"CS", "MECH", "CIVIL", "IT"}, *row[2])
		require.NotNil(t, row[3])
		assert.Equal(t, "45000", *row[3])
	}
}

func TestBuildPacket_UniqueExhaustionReportsWarningWhenNullable(t *testing.T) {
	meta := &core.TableMetadata{
		Name: "t",
		Columns: []*core.ColumnMetadata{
			{Name: "code", Unique: true, Nullable: true},
		},
	}
	spec := &core.TableSpec{
		Name:        "t",
		NoOfEntries: 10,
		Columns: []core.ColumnSpec{
			{Name: "code", Type: core.GeneratorRegex, Generator: "^[A-B]$"},
		},
	}

	p := New(&fakeSource{})
	_, packet, err := p.BuildPacket(context.Background(), meta, spec, nil)
	require.NoError(t, err)

	require.NotEmpty(t, packet.Errors)
	assert.Equal(t, core.SeverityWarning, packet.Errors[0].Type)
}

func TestBuildPacket_ForeignSamplesFromExistingValues(t *testing.T) {
	meta := &core.TableMetadata{
		Name: "classes",
		Columns: []*core.ColumnMetadata{
			{Name: "teacher_id", ForeignKey: core.ForeignKeyRef{Table: "teachers", Column: "teacher_id"}},
		},
	}
	spec := &core.TableSpec{
		Name:        "classes",
		NoOfEntries: 50,
		Columns: []core.ColumnSpec{
			{Name: "teacher_id", Type: core.GeneratorForeign, Generator: "teachers.teacher_id"},
		},
	}

	src := &fakeSource{values: map[string][]string{"teachers.teacher_id": {"1", "2", "3"}}}
	p := New(src)
	_, packet, err := p.BuildPacket(context.Background(), meta, spec, nil)
	require.NoError(t, err)
	require.Empty(t, packet.Errors)

	for _, row := range packet.Entries {
		require.NotNil(t, row[0])
		assert.Contains(t, []string{"1", "2", "3"}, *row[0])
	}
}

func TestBuildPacket_ForeignEmptySourceWarnsWhenNullable(t *testing.T) {
	meta := &core.TableMetadata{
		Name: "classes",
		Columns: []*core.ColumnMetadata{
			{Name: "teacher_id", Nullable: true, ForeignKey: core.ForeignKeyRef{Table: "teachers", Column: "teacher_id"}},
		},
	}
	spec := &core.TableSpec{
		Name:        "classes",
		NoOfEntries: 5,
		Columns: []core.ColumnSpec{
			{Name: "teacher_id", Type: core.GeneratorForeign, Generator: "teachers.teacher_id"},
		},
	}

	src := &fakeSource{values: map[string][]string{}}
	p := New(src)
	_, packet, err := p.BuildPacket(context.Background(), meta, spec, nil)
	require.NoError(t, err)

	require.Len(t, packet.Errors, 1)
	assert.Equal(t, core.SeverityWarning, packet.Errors[0].Type)
	assert.Equal(t, "teacher_id", packet.Errors[0].Column)

	for _, row := range packet.Entries {
		assert.Nil(t, row[0])
	}
}

func TestBuildPacket_ForeignEmptySourceErrorsWhenNotNullable(t *testing.T) {
	meta := &core.TableMetadata{
		Name: "classes",
		Columns: []*core.ColumnMetadata{
			{Name: "teacher_id", Nullable: false, ForeignKey: core.ForeignKeyRef{Table: "teachers", Column: "teacher_id"}},
		},
	}
	spec := &core.TableSpec{
		Name:        "classes",
		NoOfEntries: 5,
		Columns: []core.ColumnSpec{
			{Name: "teacher_id", Type: core.GeneratorForeign, Generator: "teachers.teacher_id"},
		},
	}

	src := &fakeSource{values: map[string][]string{}}
	p := New(src)
	_, packet, err := p.BuildPacket(context.Background(), meta, spec, nil)
	require.NoError(t, err)

	require.Len(t, packet.Errors, 1)
	assert.Equal(t, core.SeverityError, packet.Errors[0].Type)
	assert.Equal(t, "teacher_id", packet.Errors[0].Column)
}

func TestPacketCache_PaginateAndGetPage(t *testing.T) {
	mk := func(s string) *string { return &s }
	packet := &core.TablePacket{
		ID:           "abc",
		Columns:      []string{"x"},
		Entries:      [][]*string{{mk("1")}, {mk("2")}, {mk("3")}},
		PageSize:     2,
		TotalEntries: 3,
	}

	cache := NewPacketCache()
	first := cache.Paginate(packet)
	assert.Equal(t, 0, first.Page)
	assert.Equal(t, 2, first.TotalPages)
	assert.Len(t, first.Entries, 2)

	second, err := cache.GetPage("abc", intPtr(1))
	require.NoError(t, err)
	assert.Len(t, second.Entries, 1)

	full, err := cache.GetPage("abc", nil)
	require.NoError(t, err)
	assert.Len(t, full.Entries, 3)

	_, err = cache.GetPage("missing", nil)
	assert.Error(t, err)
}

func intPtr(i int) *int { return &i }
