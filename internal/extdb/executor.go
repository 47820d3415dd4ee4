package extdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"askdb.dev/askdb/internal/logger"
	"askdb.dev/askdb/internal/utils"
)

// Row maps a column name to its value.
type Row map[string]any

// QueryResult is the ordered row set of one statement. Empty means no rows.
type QueryResult []Row

// ExecutionError wraps any failure to run a generated statement, including
// failing to reach the database.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sql execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

type Executor struct {
	connector    *Connector
	queryTimeout time.Duration
	logger       *logger.Logger
}

// NewExecutor builds an executor. A zero queryTimeout leaves statements bound
// only by the caller's context and the driver.
func NewExecutor(connector *Connector, queryTimeout time.Duration, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Executor{connector: connector, queryTimeout: queryTimeout, logger: log}
}

func (e *Executor) Vendor() Vendor { return e.connector.Vendor() }

// Execute runs one statement on a fresh connection that is always released.
func (e *Executor) Execute(ctx context.Context, query string) (QueryResult, error) {
	db, err := e.connector.Open(ctx)
	if err != nil {
		return nil, &ExecutionError{SQL: query, Err: err}
	}
	defer db.Close()

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	cols, values, err := queryAll(ctx, db, query)
	if err != nil {
		return nil, &ExecutionError{SQL: query, Err: err}
	}
	e.logger.Debug("sql executed", "rows", len(values), "duration", time.Since(start).String())

	result := make(QueryResult, 0, len(values))
	for _, vals := range values {
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		result = append(result, row)
	}
	return result, nil
}

// SampleRows returns up to n rows of table. The name is used as written in
// the generated SQL, unquoted, so it resolves the same way.
func (e *Executor) SampleRows(ctx context.Context, table string, n int) (QueryResult, error) {
	return e.Execute(ctx, e.Vendor().SelectLimit(table, nil, n))
}

// queryAll reads every row with driver values normalised.
func queryAll(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, [][]any, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i, v := range vals {
			vals[i] = utils.NormalizeValue(v)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, out, nil
}
