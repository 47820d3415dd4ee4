package extdb

import (
	"fmt"
	"strings"

	"askdb.dev/askdb/internal/config"
)

// Vendor is the family of the external database.
type Vendor string

const (
	MySQL      Vendor = "mysql"
	PostgreSQL Vendor = "postgresql"
	Oracle     Vendor = "oracle"
	SQLServer  Vendor = "sqlserver"
)

func ParseVendor(s string) (Vendor, error) {
	switch v := Vendor(config.NormalizeDBType(s)); v {
	case MySQL, PostgreSQL, Oracle, SQLServer:
		return v, nil
	default:
		return "", fmt.Errorf("unsupported database type %q", s)
	}
}

// DisplayName is the product name used in prompts.
func (v Vendor) DisplayName() string {
	switch v {
	case PostgreSQL:
		return "PostgreSQL"
	case Oracle:
		return "Oracle"
	case SQLServer:
		return "SQL Server"
	default:
		return "MySQL"
	}
}

// DriverName is the database/sql driver registered for the vendor.
func (v Vendor) DriverName() string {
	switch v {
	case PostgreSQL:
		return "pgx"
	case Oracle:
		return "oracle"
	case SQLServer:
		return "sqlserver"
	default:
		return "mysql"
	}
}

func (v Vendor) QuoteIdent(name string) string {
	switch v {
	case MySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case SQLServer:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// Qualify returns schema.table with both parts quoted, or just the table when
// schema is empty.
func (v Vendor) Qualify(schema, table string) string {
	if schema == "" {
		return v.QuoteIdent(table)
	}
	return v.QuoteIdent(schema) + "." + v.QuoteIdent(table)
}

// SelectLimit builds SELECT <columns> FROM <from> restricted to n rows.
// from is used as given; columns empty means *.
func (v Vendor) SelectLimit(from string, columns []string, n int) string {
	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = v.QuoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}
	switch v {
	case SQLServer:
		return fmt.Sprintf("SELECT TOP %d %s FROM %s", n, cols, from)
	case Oracle:
		return fmt.Sprintf("SELECT %s FROM %s FETCH FIRST %d ROWS ONLY", cols, from, n)
	default:
		return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", cols, from, n)
	}
}
