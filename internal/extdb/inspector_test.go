package extdb

import (
	"context"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"askdb.dev/askdb/internal/schema"
)

func mockInspector(t *testing.T, vendor Vendor) (*Inspector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewInspector(db, vendor), mock
}

func TestInspectorTablesAndColumns(t *testing.T) {
	insp, mock := mockInspector(t, MySQL)
	ctx := context.Background()

	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers").AddRow("orders"))
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("shop", "customers").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "column_type", "is_nullable", "column_default"}).
			AddRow("id", "int", "NO", nil).
			AddRow("status", "varchar(16)", "YES", "active"))

	tables, err := insp.TableNames(ctx, "shop")
	if err != nil {
		t.Fatalf("TableNames() error = %v", err)
	}
	if !reflect.DeepEqual(tables, []string{"customers", "orders"}) {
		t.Errorf("TableNames() = %v", tables)
	}

	cols, err := insp.Columns(ctx, "shop", "customers")
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if len(cols) != 2 || cols[0].Nullable || cols[0].Default != nil {
		t.Fatalf("Columns() = %+v", cols)
	}
	if !cols[1].Nullable || cols[1].Default == nil || *cols[1].Default != "active" {
		t.Errorf("status column = %+v", cols[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestInspectorKeysAndIndexes(t *testing.T) {
	insp, mock := mockInspector(t, PostgreSQL)
	ctx := context.Background()

	mock.ExpectQuery("PRIMARY KEY").
		WithArgs("public", "order_items").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("order_items_pkey", "order_id").
			AddRow("order_items_pkey", "line_no"))
	mock.ExpectQuery("'UNIQUE'").
		WithArgs("public", "order_items").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("uq_sku", "sku").
			AddRow("uq_ref", "order_id").
			AddRow("uq_ref", "ref"))
	mock.ExpectQuery("FROM pg_index").
		WithArgs("public", "order_items").
		WillReturnRows(sqlmock.NewRows([]string{"relname", "attname", "indisunique"}).
			AddRow("idx_created", "created_at", false).
			AddRow("idx_status_sku", "status", false).
			AddRow("idx_status_sku", "sku", false).
			AddRow("uq_sku", "sku", true))
	mock.ExpectQuery("FROM pg_constraint").
		WithArgs("public", "order_items").
		WillReturnRows(sqlmock.NewRows([]string{"conname", "attname", "relname", "attname"}).
			AddRow("fk_order", "order_id", "orders", "id"))

	pk, err := insp.PrimaryKey(ctx, "public", "order_items")
	if err != nil || !reflect.DeepEqual(pk, []string{"order_id", "line_no"}) {
		t.Fatalf("PrimaryKey() = %v, %v", pk, err)
	}
	uq, err := insp.UniqueConstraints(ctx, "public", "order_items")
	if err != nil || !reflect.DeepEqual(uq, [][]string{{"sku"}, {"order_id", "ref"}}) {
		t.Fatalf("UniqueConstraints() = %v, %v", uq, err)
	}
	idx, err := insp.Indexes(ctx, "public", "order_items")
	if err != nil {
		t.Fatalf("Indexes() error = %v", err)
	}
	want := []schema.Index{
		{Name: "idx_created", Columns: []string{"created_at"}},
		{Name: "idx_status_sku", Columns: []string{"status", "sku"}},
		{Name: "uq_sku", Columns: []string{"sku"}, Unique: true},
	}
	if !reflect.DeepEqual(idx, want) {
		t.Errorf("Indexes() = %+v, want %+v", idx, want)
	}
	fks, err := insp.ForeignKeys(ctx, "public", "order_items")
	if err != nil {
		t.Fatalf("ForeignKeys() error = %v", err)
	}
	if len(fks) != 1 || fks[0].ReferredTable != "orders" || !reflect.DeepEqual(fks[0].ReferredColumns, []string{"id"}) {
		t.Errorf("ForeignKeys() = %+v", fks)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestInspectorRowCountAndSamples(t *testing.T) {
	insp, mock := mockInspector(t, PostgreSQL)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "public"."orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery(`SELECT "id", "total" FROM "public"."orders" LIMIT 3`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "total"}).AddRow(int64(1), []byte("9.90")))

	n, err := insp.RowCount(ctx, "public", "orders")
	if err != nil || n != 7 {
		t.Fatalf("RowCount() = %d, %v", n, err)
	}
	rows, err := insp.SampleRows(ctx, "public", "orders", []string{"id", "total"}, 3)
	if err != nil {
		t.Fatalf("SampleRows() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Values[1] != "9.90" || !reflect.DeepEqual(rows[0].Columns, []string{"id", "total"}) {
		t.Errorf("SampleRows() = %+v", rows)
	}
}

func TestInspectorThroughIntrospector(t *testing.T) {
	c, mock := mockConnector(t, MySQL)
	mock.ExpectQuery(`SELECT DATABASE\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"db"}).AddRow("shop"))
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectClose()

	got := schema.NewIntrospector(NewSchemaOpener(c), nil).Describe(context.Background(), nil)
	if got != "Schema unavailable (failed to list tables): "+sqlmock.ErrCancelled.Error() {
		t.Errorf("Describe() = %q", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("inspector connection not released: %v", err)
	}
}
