// Package core contains the single source of truth for the schema metadata,
// generator specifications, and result packets that the rest of the
// datasmith toolchain operates on.
package core

import (
	"fmt"
	"strings"
)

// Dialect identifies a supported SQL dialect.
type Dialect string

const (
	DialectMySQL   Dialect = "mysql"
	DialectMariaDB Dialect = "mariadb"
	DialectTiDB    Dialect = "tidb"
)

// SupportedDialects returns a slice of all supported dialect values.
func SupportedDialects() []Dialect {
	return []Dialect{DialectMySQL, DialectMariaDB, DialectTiDB}
}

// ValidDialect reports whether d is a recognized dialect string.
func ValidDialect(d string) bool {
	for _, supported := range SupportedDialects() {
		if strings.EqualFold(string(supported), d) {
			return true
		}
	}
	return false
}

// ForeignKeyRef identifies the (table, column) target of a foreign key.
// The zero value means "no foreign key".
type ForeignKeyRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// IsZero reports whether r carries no foreign key reference.
func (r ForeignKeyRef) IsZero() bool {
	return r.Table == "" && r.Column == ""
}

// ColumnMetadata is the introspected contract of a single column.
type ColumnMetadata struct {
	Name          string         `json:"name"`
	SQLType       string         `json:"sqlTypeString"`
	PrimaryKey    bool           `json:"primaryKey"`
	Nullable      bool           `json:"nullable"`
	Unique        bool           `json:"unique"`
	MultiUnique   []string       `json:"multiUnique,omitempty"`
	Default       *string        `json:"default,omitempty"`
	AutoIncrement bool           `json:"autoincrement"`
	Computed      bool           `json:"computed"`
	ForeignKey    ForeignKeyRef  `json:"foreignKeys,omitempty"`
	Length        *int64         `json:"length,omitempty"`
	Precision     *int64         `json:"precision,omitempty"`
	Scale         *int64         `json:"scale,omitempty"`
}

// HasForeignKey reports whether the column references another table's column.
func (c *ColumnMetadata) HasForeignKey() bool {
	return !c.ForeignKey.IsZero()
}

// TableMetadata describes a table: its name, the distinct tables it
// references through foreign keys, and its ordered columns.
type TableMetadata struct {
	Name    string            `json:"name"`
	Parents []string          `json:"parents"`
	Columns []*ColumnMetadata `json:"columns"`
}

// Column looks up a column by name, panicking if it is absent — callers are
// expected to only ask for columns that the metadata itself enumerated.
func (t *TableMetadata) Column(name string) *ColumnMetadata {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	panic(fmt.Sprintf("core: column %q not found in table %q", name, t.Name))
}

// GeneratorKind enumerates the closed set of generator types a ColumnSpec
// may declare.
type GeneratorKind string

const (
	GeneratorFaker         GeneratorKind = "faker"
	GeneratorRegex         GeneratorKind = "regex"
	GeneratorForeign       GeneratorKind = "foreign"
	GeneratorPython        GeneratorKind = "python"
	GeneratorAutoincrement GeneratorKind = "autoincrement"
	GeneratorComputed      GeneratorKind = "computed"
	GeneratorNull          GeneratorKind = "null"
	GeneratorConstant      GeneratorKind = "constant"
)

// ColumnSpec is the user's intent for populating one column.
type ColumnSpec struct {
	Name      string        `json:"name"`
	Generator string        `json:"generator"`
	Type      GeneratorKind `json:"type"`
	// Order is an explicit ordering hint for python generators, replacing
	// the decorator-based order(N) syntax of the source this spec distills.
	Order int `json:"order,omitempty"`
}

// TableSpec is the user's full intent for generating one table's rows.
type TableSpec struct {
	DBID        int64        `json:"dbId"`
	Name        string       `json:"name"`
	NoOfEntries int          `json:"noOfEntries"`
	PageSize    int          `json:"pageSize"`
	Columns     []ColumnSpec `json:"columns"`
}

// NormalizedPageSize returns PageSize or the default of 100 when unset.
func (t *TableSpec) NormalizedPageSize() int {
	if t.PageSize <= 0 {
		return 100
	}
	return t.PageSize
}

// ErrorSeverity distinguishes recoverable warnings from hard errors.
type ErrorSeverity string

const (
	SeverityWarning ErrorSeverity = "warning"
	SeverityError   ErrorSeverity = "error"
)

// ErrorPacket reports a per-column problem encountered while generating or
// validating a TableSpec.
type ErrorPacket struct {
	Type   ErrorSeverity `json:"type"`
	Column string        `json:"column,omitempty"`
	Msg    string        `json:"msg,omitempty"`
}

// TablePacket is a generated, paginated result batch.
type TablePacket struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Entries [][]*string `json:"entries"`
	Errors  []ErrorPacket `json:"errors"`

	Page        int `json:"page"`
	PageSize    int `json:"pageSize"`
	TotalPages  int `json:"totalPages"`
	TotalEntries int `json:"totalEntries"`
}

// DbCreds is a saved connection credential. Password is obfuscated (base64
// of the UTF-8 bytes), not encrypted — see internal/store.
type DbCreds struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Host     string  `json:"host"`
	Port     int     `json:"port"`
	User     string  `json:"user"`
	Password string  `json:"password"`
	Dialect  Dialect `json:"dialect"`
}

// UsageStat is the pending-inserts ledger entry for one (db, table) pair.
type UsageStat struct {
	DBID         int64  `json:"dbId"`
	TableName    string `json:"tableName"`
	NewRows      int    `json:"newRows"`
	LastAccessed int64  `json:"lastAccessed"`
}
