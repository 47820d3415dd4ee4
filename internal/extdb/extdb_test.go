package extdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"askdb.dev/askdb/internal/config"
)

func mockConnector(t *testing.T, vendor Vendor, matchers ...sqlmock.QueryMatcher) (*Connector, sqlmock.Sqlmock) {
	t.Helper()
	matcher := sqlmock.QueryMatcherRegexp
	if len(matchers) > 0 {
		matcher = matchers[0]
	}
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	c := &Connector{
		vendor:         vendor,
		settings:       config.DBSettings{Host: "db.internal", Port: 3306, User: "reader", Password: "s3cret", Database: "shop"},
		connectTimeout: time.Second,
		open:           func(string, string) (*sql.DB, error) { return db, nil },
	}
	return c, mock
}

func TestParseVendor(t *testing.T) {
	tests := []struct {
		in      string
		want    Vendor
		wantErr bool
	}{
		{"mysql", MySQL, false},
		{"PostgreSQL", PostgreSQL, false},
		{"postgres", PostgreSQL, false},
		{"oracle", Oracle, false},
		{"sqlserver", SQLServer, false},
		{"mssql", SQLServer, false},
		{"sqlite", "", true},
	}
	for _, tt := range tests {
		got, err := ParseVendor(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseVendor(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestSelectLimit(t *testing.T) {
	tests := []struct {
		vendor Vendor
		cols   []string
		want   string
	}{
		{MySQL, nil, "SELECT * FROM customers LIMIT 10"},
		{PostgreSQL, []string{"id", "name"}, `SELECT "id", "name" FROM customers LIMIT 10`},
		{SQLServer, []string{"id"}, "SELECT TOP 10 [id] FROM customers"},
		{Oracle, nil, "SELECT * FROM customers FETCH FIRST 10 ROWS ONLY"},
	}
	for _, tt := range tests {
		if got := tt.vendor.SelectLimit("customers", tt.cols, 10); got != tt.want {
			t.Errorf("%s SelectLimit() = %q, want %q", tt.vendor, got, tt.want)
		}
	}
}

func TestQualify(t *testing.T) {
	if got := MySQL.Qualify("", "order"); got != "`order`" {
		t.Errorf("Qualify() = %q", got)
	}
	if got := PostgreSQL.Qualify("public", `we"ird`); got != `"public"."we""ird"` {
		t.Errorf("Qualify() = %q", got)
	}
	if got := SQLServer.Qualify("dbo", "orders"); got != "[dbo].[orders]" {
		t.Errorf("Qualify() = %q", got)
	}
}

func TestConnectorDSN(t *testing.T) {
	base := config.ExternalDBConfig{
		MySQL:          config.DBSettings{Host: "db", Port: 3306, User: "u", Password: "p", Database: "shop"},
		Postgres:       config.DBSettings{Host: "db", Port: 5432, User: "u", Password: "p", Database: "shop"},
		Oracle:         config.DBSettings{Host: "db", Port: 1521, User: "u", Password: "p", Database: "XEPDB1"},
		SQLServer:      config.DBSettings{Host: "db", Port: 1433, User: "u", Password: "p", Database: "shop"},
		ConnectTimeout: 5 * time.Second,
	}
	tests := []struct {
		typ      string
		contains []string
	}{
		{"mysql", []string{"u:p@tcp(db:3306)/shop", "timeout=5s"}},
		{"postgresql", []string{"postgres://u:p@db:5432/shop", "connect_timeout=5"}},
		{"oracle", []string{"oracle://", "db:1521", "XEPDB1"}},
		{"sqlserver", []string{"sqlserver://u:p@db:1433", "database=shop", "connection+timeout=5", "TrustServerCertificate=true"}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			cfg := base
			cfg.Type = tt.typ
			c, err := NewConnector(cfg)
			if err != nil {
				t.Fatalf("NewConnector() error = %v", err)
			}
			dsn, err := c.DSN()
			if err != nil {
				t.Fatalf("DSN() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(dsn, want) {
					t.Errorf("DSN() = %q, missing %q", dsn, want)
				}
			}
		})
	}
}

func TestConnectorDSNRequiresHost(t *testing.T) {
	c, err := NewConnector(config.ExternalDBConfig{Type: "mysql"})
	if err != nil {
		t.Fatalf("NewConnector() error = %v", err)
	}
	if _, err := c.DSN(); err == nil {
		t.Fatal("DSN() error = nil, want missing host error")
	}
}

func TestConnectorUsesSettingsOfVendorAlias(t *testing.T) {
	for _, alias := range []string{"postgres", "PG"} {
		c, err := NewConnector(config.ExternalDBConfig{
			Type:     alias,
			MySQL:    config.DBSettings{Host: "mysql.internal", Port: 3306},
			Postgres: config.DBSettings{Host: "pg.internal", Port: 5432, User: "reader", Database: "shop"},
		})
		if err != nil {
			t.Fatalf("NewConnector(%q) error = %v", alias, err)
		}
		if c.Vendor() != PostgreSQL {
			t.Errorf("Vendor() = %q, want postgresql", c.Vendor())
		}
		dsn, err := c.DSN()
		if err != nil {
			t.Fatalf("DSN() error = %v", err)
		}
		if !strings.Contains(dsn, "pg.internal:5432/shop") || strings.Contains(dsn, "mysql.internal") {
			t.Errorf("DSN() = %q, want the postgres settings", dsn)
		}
	}

	c, err := NewConnector(config.ExternalDBConfig{
		Type:      "mssql",
		MySQL:     config.DBSettings{Host: "mysql.internal", Port: 3306},
		SQLServer: config.DBSettings{Host: "sql.internal", Port: 1433, Database: "shop"},
	})
	if err != nil {
		t.Fatalf("NewConnector(mssql) error = %v", err)
	}
	dsn, err := c.DSN()
	if err != nil {
		t.Fatalf("DSN() error = %v", err)
	}
	if !strings.Contains(dsn, "sql.internal:1433") {
		t.Errorf("DSN() = %q, want the sqlserver settings", dsn)
	}
}

func TestConnectorDriverName(t *testing.T) {
	c := &Connector{vendor: SQLServer, settings: config.DBSettings{Driver: "ODBC Driver 17 for SQL Server"}}
	if got := c.driverName(); got != "sqlserver" {
		t.Errorf("driverName() = %q, want sqlserver", got)
	}
	c.settings.Driver = "mssql"
	if got := c.driverName(); got != "mssql" {
		t.Errorf("driverName() = %q, want mssql", got)
	}
}

func TestExecuteReturnsRowsAndReleasesConnection(t *testing.T) {
	c, mock := mockConnector(t, MySQL)
	mock.ExpectQuery("SELECT name, total FROM orders").
		WillReturnRows(sqlmock.NewRows([]string{"name", "total"}).
			AddRow([]byte("Jon"), int64(42)).
			AddRow("Ada", nil))
	mock.ExpectClose()

	res, err := NewExecutor(c, 0, nil).Execute(context.Background(), "SELECT name, total FROM orders")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("len(result) = %d, want 2", len(res))
	}
	if res[0]["name"] != "Jon" || res[0]["total"] != int64(42) {
		t.Errorf("row 0 = %v", res[0])
	}
	if res[1]["total"] != nil {
		t.Errorf("row 1 total = %v, want nil", res[1]["total"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestExecuteEmptyResult(t *testing.T) {
	c, mock := mockConnector(t, PostgreSQL)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectClose()

	res, err := NewExecutor(c, time.Second, nil).Execute(context.Background(), "SELECT id FROM customers WHERE name LIKE '%x%'")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Fatalf("Execute() = %#v, want empty non-nil result", res)
	}
}

func TestExecuteWrapsFailures(t *testing.T) {
	c, mock := mockConnector(t, MySQL)
	cause := errors.New("You have an error in your SQL syntax")
	mock.ExpectQuery("SELEC").WillReturnError(cause)
	mock.ExpectClose()

	_, err := NewExecutor(c, 0, nil).Execute(context.Background(), "SELEC * FRM x")
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want *ExecutionError", err)
	}
	if execErr.SQL != "SELEC * FRM x" || !errors.Is(err, cause) {
		t.Errorf("ExecutionError = %+v", execErr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("connection not released: %v", err)
	}
}

func TestExecuteConnectionFailure(t *testing.T) {
	c := &Connector{
		vendor:         MySQL,
		settings:       config.DBSettings{Host: "db", Port: 3306},
		connectTimeout: time.Second,
		open:           func(string, string) (*sql.DB, error) { return nil, errors.New("no driver") },
	}
	_, err := NewExecutor(c, 0, nil).Execute(context.Background(), "SELECT 1")
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want *ExecutionError", err)
	}
}

func TestExecutorSampleRowsUsesVendorLimit(t *testing.T) {
	c, mock := mockConnector(t, SQLServer, sqlmock.QueryMatcherEqual)
	mock.ExpectQuery("SELECT TOP 10 * FROM customers").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectClose()

	res, err := NewExecutor(c, 0, nil).SampleRows(context.Background(), "customers", 10)
	if err != nil {
		t.Fatalf("SampleRows() error = %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("len(SampleRows()) = %d, want 1", len(res))
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{true, int64(1), "UNIQUE", []byte("1")} {
		if !truthy(v) {
			t.Errorf("truthy(%v) = false", v)
		}
	}
	for _, v := range []any{false, int64(0), "NONUNIQUE", nil} {
		if truthy(v) {
			t.Errorf("truthy(%v) = true", v)
		}
	}
}
