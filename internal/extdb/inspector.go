package extdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"askdb.dev/askdb/internal/schema"
)

// catalog holds the reflection queries of one vendor. Every query that takes
// arguments takes (schema, table) in that order; an empty schema means the
// connection's current schema.
type catalog struct {
	defaultSchema string
	tables        string
	columns       string
	primaryKey    string
	unique        string
	indexes       string
	foreignKeys   string
}

const (
	mysqlSchema  = "COALESCE(NULLIF(?, ''), DATABASE())"
	pgSchema     = "COALESCE(NULLIF($1, ''), current_schema())"
	oracleSchema = "NVL(:1, SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA'))"
	mssqlSchema  = "COALESCE(NULLIF(@p1, ''), SCHEMA_NAME())"
)

func infoSchemaKeys(schemaExpr, tableArg, kind string) string {
	return `SELECT tc.constraint_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
 AND tc.table_name = kcu.table_name
WHERE tc.constraint_type = '` + kind + `' AND tc.table_schema = ` + schemaExpr + ` AND tc.table_name = ` + tableArg + `
ORDER BY tc.constraint_name, kcu.ordinal_position`
}

func oracleKeys(kind string) string {
	return `SELECT c.constraint_name, cc.column_name
FROM all_constraints c
JOIN all_cons_columns cc ON cc.owner = c.owner AND cc.constraint_name = c.constraint_name
WHERE c.constraint_type = '` + kind + `' AND c.owner = ` + oracleSchema + ` AND c.table_name = :2
ORDER BY c.constraint_name, cc.position`
}

var catalogs = map[Vendor]catalog{
	MySQL: {
		defaultSchema: "SELECT DATABASE()",
		tables: `SELECT table_name FROM information_schema.tables
WHERE table_schema = ` + mysqlSchema + ` AND table_type = 'BASE TABLE'
ORDER BY table_name`,
		columns: `SELECT column_name, column_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = ` + mysqlSchema + ` AND table_name = ?
ORDER BY ordinal_position`,
		primaryKey: infoSchemaKeys(mysqlSchema, "?", "PRIMARY KEY"),
		unique:     infoSchemaKeys(mysqlSchema, "?", "UNIQUE"),
		indexes: `SELECT index_name, column_name, CASE WHEN non_unique = 0 THEN 1 ELSE 0 END
FROM information_schema.statistics
WHERE table_schema = ` + mysqlSchema + ` AND table_name = ? AND index_name <> 'PRIMARY'
ORDER BY index_name, seq_in_index`,
		foreignKeys: `SELECT constraint_name, column_name, referenced_table_name, referenced_column_name
FROM information_schema.key_column_usage
WHERE table_schema = ` + mysqlSchema + ` AND table_name = ? AND referenced_table_name IS NOT NULL
ORDER BY constraint_name, ordinal_position`,
	},
	PostgreSQL: {
		defaultSchema: "SELECT current_schema()",
		tables: `SELECT table_name FROM information_schema.tables
WHERE table_schema = ` + pgSchema + ` AND table_type = 'BASE TABLE'
ORDER BY table_name`,
		columns: `SELECT column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = ` + pgSchema + ` AND table_name = $2
ORDER BY ordinal_position`,
		primaryKey: infoSchemaKeys(pgSchema, "$2", "PRIMARY KEY"),
		unique:     infoSchemaKeys(pgSchema, "$2", "UNIQUE"),
		indexes: `SELECT i.relname, a.attname, ix.indisunique
FROM pg_index ix
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
WHERE NOT ix.indisprimary AND n.nspname = ` + pgSchema + ` AND t.relname = $2
ORDER BY i.relname, array_position(ix.indkey::int2[], a.attnum)`,
		foreignKeys: `SELECT con.conname, a.attname, rt.relname, ra.attname
FROM pg_constraint con
JOIN pg_class t ON t.oid = con.conrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_class rt ON rt.oid = con.confrelid
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(col, refcol, ord)
JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.col
JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refcol
WHERE con.contype = 'f' AND n.nspname = ` + pgSchema + ` AND t.relname = $2
ORDER BY con.conname, k.ord`,
	},
	Oracle: {
		defaultSchema: "SELECT SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA') FROM DUAL",
		tables:        `SELECT table_name FROM all_tables WHERE owner = ` + oracleSchema + ` ORDER BY table_name`,
		columns: `SELECT column_name, data_type, nullable, data_default
FROM all_tab_columns
WHERE owner = ` + oracleSchema + ` AND table_name = :2
ORDER BY column_id`,
		primaryKey: oracleKeys("P"),
		unique:     oracleKeys("U"),
		indexes: `SELECT i.index_name, ic.column_name, i.uniqueness
FROM all_indexes i
JOIN all_ind_columns ic ON ic.index_owner = i.owner AND ic.index_name = i.index_name
WHERE i.table_owner = ` + oracleSchema + ` AND i.table_name = :2
  AND NOT EXISTS (
    SELECT 1 FROM all_constraints c
    WHERE c.owner = i.table_owner AND c.index_name = i.index_name AND c.constraint_type = 'P')
ORDER BY i.index_name, ic.column_position`,
		foreignKeys: `SELECT c.constraint_name, cc.column_name, rc.table_name, rcc.column_name
FROM all_constraints c
JOIN all_cons_columns cc ON cc.owner = c.owner AND cc.constraint_name = c.constraint_name
JOIN all_constraints rc ON rc.owner = c.r_owner AND rc.constraint_name = c.r_constraint_name
JOIN all_cons_columns rcc ON rcc.owner = rc.owner AND rcc.constraint_name = rc.constraint_name AND rcc.position = cc.position
WHERE c.constraint_type = 'R' AND c.owner = ` + oracleSchema + ` AND c.table_name = :2
ORDER BY c.constraint_name, cc.position`,
	},
	SQLServer: {
		defaultSchema: "SELECT SCHEMA_NAME()",
		tables: `SELECT table_name FROM information_schema.tables
WHERE table_schema = ` + mssqlSchema + ` AND table_type = 'BASE TABLE'
ORDER BY table_name`,
		columns: `SELECT column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = ` + mssqlSchema + ` AND table_name = @p2
ORDER BY ordinal_position`,
		primaryKey: infoSchemaKeys(mssqlSchema, "@p2", "PRIMARY KEY"),
		unique:     infoSchemaKeys(mssqlSchema, "@p2", "UNIQUE"),
		indexes: `SELECT i.name, c.name, i.is_unique
FROM sys.indexes i
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
WHERE i.object_id = OBJECT_ID(QUOTENAME(` + mssqlSchema + `) + '.' + QUOTENAME(@p2))
  AND i.is_primary_key = 0 AND i.type > 0
ORDER BY i.name, ic.key_ordinal`,
		foreignKeys: `SELECT fk.name, pc.name, rt.name, rc.name
FROM sys.foreign_keys fk
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
WHERE fk.parent_object_id = OBJECT_ID(QUOTENAME(` + mssqlSchema + `) + '.' + QUOTENAME(@p2))
ORDER BY fk.name, fkc.constraint_column_id`,
	},
}

// Inspector reflects one open connection. It implements schema.Inspector.
type Inspector struct {
	db      *sql.DB
	vendor  Vendor
	catalog catalog
}

func NewInspector(db *sql.DB, vendor Vendor) *Inspector {
	return &Inspector{db: db, vendor: vendor, catalog: catalogs[vendor]}
}

var _ schema.Inspector = (*Inspector)(nil)

func (i *Inspector) Close() error { return i.db.Close() }

func (i *Inspector) DefaultSchema(ctx context.Context) (string, error) {
	var name sql.NullString
	if err := i.db.QueryRowContext(ctx, i.catalog.defaultSchema).Scan(&name); err != nil {
		return "", err
	}
	return name.String, nil
}

func (i *Inspector) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, i.catalog.tables, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (i *Inspector) RowCount(ctx context.Context, schemaName, table string) (int64, error) {
	var n int64
	query := "SELECT COUNT(*) FROM " + i.vendor.Qualify(schemaName, table)
	err := i.db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}

func (i *Inspector) Columns(ctx context.Context, schemaName, table string) ([]schema.Column, error) {
	rows, err := i.db.QueryContext(ctx, i.catalog.columns, schemaName, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var (
			c        schema.Column
			nullable string
			def      sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Type, &nullable, &def); err != nil {
			return nil, err
		}
		switch strings.ToUpper(nullable) {
		case "YES", "Y":
			c.Nullable = true
		}
		if def.Valid {
			d := strings.TrimSpace(def.String)
			c.Default = &d
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (i *Inspector) PrimaryKey(ctx context.Context, schemaName, table string) ([]string, error) {
	groups, err := i.keyGroups(ctx, i.catalog.primaryKey, schemaName, table)
	if err != nil || len(groups) == 0 {
		return nil, err
	}
	return groups[0], nil
}

func (i *Inspector) UniqueConstraints(ctx context.Context, schemaName, table string) ([][]string, error) {
	return i.keyGroups(ctx, i.catalog.unique, schemaName, table)
}

// keyGroups reads (constraint, column) rows into one column list per constraint.
func (i *Inspector) keyGroups(ctx context.Context, query, schemaName, table string) ([][]string, error) {
	rows, err := i.db.QueryContext(ctx, query, schemaName, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		groups [][]string
		last   string
	)
	for rows.Next() {
		var name, col string
		if err := rows.Scan(&name, &col); err != nil {
			return nil, err
		}
		if len(groups) == 0 || name != last {
			groups = append(groups, nil)
			last = name
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], col)
	}
	return groups, rows.Err()
}

func (i *Inspector) Indexes(ctx context.Context, schemaName, table string) ([]schema.Index, error) {
	rows, err := i.db.QueryContext(ctx, i.catalog.indexes, schemaName, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var idx []schema.Index
	for rows.Next() {
		var (
			name, col string
			unique    any
		)
		if err := rows.Scan(&name, &col, &unique); err != nil {
			return nil, err
		}
		if len(idx) == 0 || idx[len(idx)-1].Name != name {
			idx = append(idx, schema.Index{Name: name, Unique: truthy(unique)})
		}
		last := &idx[len(idx)-1]
		last.Columns = append(last.Columns, col)
	}
	return idx, rows.Err()
}

func (i *Inspector) ForeignKeys(ctx context.Context, schemaName, table string) ([]schema.ForeignKey, error) {
	rows, err := i.db.QueryContext(ctx, i.catalog.foreignKeys, schemaName, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		var name, col, refTable, refCol string
		if err := rows.Scan(&name, &col, &refTable, &refCol); err != nil {
			return nil, err
		}
		if len(fks) == 0 || fks[len(fks)-1].Name != name {
			fks = append(fks, schema.ForeignKey{Name: name, ReferredTable: refTable})
		}
		last := &fks[len(fks)-1]
		last.Columns = append(last.Columns, col)
		last.ReferredColumns = append(last.ReferredColumns, refCol)
	}
	return fks, rows.Err()
}

func (i *Inspector) SampleRows(ctx context.Context, schemaName, table string, columns []string, limit int) ([]schema.SampleRow, error) {
	query := i.vendor.SelectLimit(i.vendor.Qualify(schemaName, table), columns, limit)
	cols, values, err := queryAll(ctx, i.db, query)
	if err != nil {
		return nil, err
	}
	out := make([]schema.SampleRow, 0, len(values))
	for _, vals := range values {
		out = append(out, schema.SampleRow{Columns: cols, Values: vals})
	}
	return out, nil
}

// truthy reads the uniqueness flag, which vendors report as bool, 0/1 or text.
func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case []byte:
		return truthy(string(val))
	case string:
		switch strings.ToUpper(strings.TrimSpace(val)) {
		case "1", "TRUE", "YES", "Y", "UNIQUE":
			return true
		}
	}
	return false
}

// SchemaOpener hands out Inspectors on fresh connections for the schema
// package.
type SchemaOpener struct {
	connector *Connector
}

func NewSchemaOpener(connector *Connector) *SchemaOpener {
	return &SchemaOpener{connector: connector}
}

func (o *SchemaOpener) Open(ctx context.Context) (schema.Inspector, error) {
	db, err := o.connector.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open inspector: %w", err)
	}
	return NewInspector(db, o.connector.Vendor()), nil
}

func (o *SchemaOpener) Dialect() string { return string(o.connector.Vendor()) }
