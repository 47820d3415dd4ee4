package schema

import (
	"context"
	"errors"
	"sync"
)

type fakeTable struct {
	rows    int64
	pk      []string
	unique  [][]string
	indexes []Index
	columns []Column
	fks     []ForeignKey
	samples []SampleRow
}

// fakeInspector serves fixed catalog data; failing names features that
// return an error ("tables", "row_count", "indexes", ...).
type fakeInspector struct {
	schema  string
	order   []string
	tables  map[string]fakeTable
	failing map[string]bool

	mu          sync.Mutex
	sampleCalls [][]string
	closed      int
}

var errFake = errors.New("boom")

func (f *fakeInspector) fail(feature string) error {
	if f.failing[feature] {
		return errFake
	}
	return nil
}

func (f *fakeInspector) DefaultSchema(context.Context) (string, error) {
	return f.schema, f.fail("default_schema")
}

func (f *fakeInspector) TableNames(context.Context, string) ([]string, error) {
	if err := f.fail("tables"); err != nil {
		return nil, err
	}
	return f.order, nil
}

func (f *fakeInspector) RowCount(_ context.Context, _, table string) (int64, error) {
	return f.tables[table].rows, f.fail("row_count")
}

func (f *fakeInspector) PrimaryKey(_ context.Context, _, table string) ([]string, error) {
	return f.tables[table].pk, f.fail("primary_key")
}

func (f *fakeInspector) UniqueConstraints(_ context.Context, _, table string) ([][]string, error) {
	return f.tables[table].unique, f.fail("unique")
}

func (f *fakeInspector) Indexes(_ context.Context, _, table string) ([]Index, error) {
	if err := f.fail("indexes"); err != nil {
		return nil, err
	}
	return f.tables[table].indexes, nil
}

func (f *fakeInspector) Columns(_ context.Context, _, table string) ([]Column, error) {
	if err := f.fail("columns"); err != nil {
		return nil, err
	}
	return f.tables[table].columns, nil
}

func (f *fakeInspector) ForeignKeys(_ context.Context, _, table string) ([]ForeignKey, error) {
	if err := f.fail("foreign_keys"); err != nil {
		return nil, err
	}
	return f.tables[table].fks, nil
}

func (f *fakeInspector) SampleRows(_ context.Context, _, table string, columns []string, limit int) ([]SampleRow, error) {
	f.mu.Lock()
	f.sampleCalls = append(f.sampleCalls, columns)
	f.mu.Unlock()
	if err := f.fail("samples"); err != nil {
		return nil, err
	}
	var out []SampleRow
	for _, row := range f.tables[table].samples {
		if len(out) == limit {
			break
		}
		out = append(out, project(row, columns))
	}
	return out, nil
}

func (f *fakeInspector) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func project(row SampleRow, columns []string) SampleRow {
	if columns == nil {
		return row
	}
	out := SampleRow{}
	for _, want := range columns {
		for i, c := range row.Columns {
			if c == want {
				out.Columns = append(out.Columns, c)
				out.Values = append(out.Values, row.Values[i])
			}
		}
	}
	return out
}

type fakeOpener struct {
	insp    *fakeInspector
	err     error
	dialect string

	mu    sync.Mutex
	opens int
}

func (o *fakeOpener) Open(context.Context) (Inspector, error) {
	o.mu.Lock()
	o.opens++
	o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	return o.insp, nil
}

func (o *fakeOpener) Dialect() string {
	if o.dialect == "" {
		return "postgresql"
	}
	return o.dialect
}

func strptr(s string) *string { return &s }

func shopInspector() *fakeInspector {
	return &fakeInspector{
		schema: "public",
		order:  []string{"customers", "orders"},
		tables: map[string]fakeTable{
			"customers": {
				rows: 2,
				pk:   []string{"id"},
				unique: [][]string{
					{"email"},
				},
				columns: []Column{
					{Name: "id", Type: "integer"},
					{Name: "name", Type: "text"},
					{Name: "email", Type: "text", Nullable: true},
				},
				samples: []SampleRow{
					{Columns: []string{"id", "name", "email"}, Values: []any{int64(1), "Jonas", nil}},
					{Columns: []string{"id", "name", "email"}, Values: []any{int64(2), []byte("Ada"), "ada@example.com"}},
				},
			},
			"orders": {
				rows: 3,
				pk:   []string{"id"},
				indexes: []Index{
					{Name: "orders_customer_idx", Columns: []string{"customer_id"}},
					{Name: "orders_ref_key", Columns: []string{"reference"}, Unique: true},
				},
				columns: []Column{
					{Name: "id", Type: "integer"},
					{Name: "customer_id", Type: "integer"},
					{Name: "total", Type: "numeric(10,2)", Default: strptr("0")},
					{Name: "reference", Type: "text"},
				},
				fks: []ForeignKey{
					{Name: "orders_customer_fk", Columns: []string{"customer_id"}, ReferredTable: "customers", ReferredColumns: []string{"id"}},
				},
				samples: []SampleRow{
					{Columns: []string{"id", "customer_id", "total", "reference"}, Values: []any{int64(10), int64(1), 19.5, "A-1"}},
				},
			},
		},
	}
}
