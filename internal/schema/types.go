package schema

import (
	"context"
	"fmt"
)

type Column struct {
	Name     string
	Type     string
	Nullable bool
	Default  *string
}

type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// ForeignKey is one constraint; Columns[i] references ReferredColumns[i].
type ForeignKey struct {
	Name            string
	Columns         []string
	ReferredTable   string
	ReferredColumns []string
}

// SampleRow keeps the column order reported by the database.
type SampleRow struct {
	Columns []string
	Values  []any
}

// Inspector is the reflection capability of one open database handle.
// An empty schema name means the connection's current schema.
type Inspector interface {
	DefaultSchema(ctx context.Context) (string, error)
	TableNames(ctx context.Context, schema string) ([]string, error)
	RowCount(ctx context.Context, schema, table string) (int64, error)
	PrimaryKey(ctx context.Context, schema, table string) ([]string, error)
	UniqueConstraints(ctx context.Context, schema, table string) ([][]string, error)
	Indexes(ctx context.Context, schema, table string) ([]Index, error)
	Columns(ctx context.Context, schema, table string) ([]Column, error)
	ForeignKeys(ctx context.Context, schema, table string) ([]ForeignKey, error)
	// SampleRows returns at most limit rows; nil columns selects every column.
	SampleRows(ctx context.Context, schema, table string, columns []string, limit int) ([]SampleRow, error)
	Close() error
}

// Opener acquires an Inspector for the configured database.
type Opener interface {
	Open(ctx context.Context) (Inspector, error)
	// Dialect is the vendor family: mysql, postgresql, oracle or sqlserver.
	Dialect() string
}

// Outcome records whether one introspection feature succeeded.
type Outcome[T any] struct {
	Value T
	Err   error
}

func (o Outcome[T]) OK() bool { return o.Err == nil }

// FeatureError is the reason one feature of one table could not be read.
type FeatureError struct {
	Table   string
	Feature string
	Err     error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Table, e.Feature, e.Err)
}

func (e *FeatureError) Unwrap() error { return e.Err }

func outcome[T any](v T, err error) Outcome[T] {
	return Outcome[T]{Value: v, Err: err}
}

// ForeignEdge is a single column reference, table.column -> ref_table.ref_column.
type ForeignEdge struct {
	Table     string
	Column    string
	RefTable  string
	RefColumn string
}

// TableReport is everything gathered about one table. Column, foreign key and
// sample sections are already restricted to the filter; key and index
// sections are not.
type TableReport struct {
	Name              string
	RowCount          Outcome[int64]
	PrimaryKey        Outcome[[]string]
	UniqueConstraints Outcome[[][]string]
	Indexes           Outcome[[]Index]
	Columns           Outcome[[]Column]
	ForeignKeys       Outcome[[]ForeignEdge]
	Samples           Outcome[[]SampleRow]
}

type Snapshot struct {
	Dialect string
	Schema  string
	Tables  []TableReport
}
