package schema

import (
	"context"
	"fmt"
	"sort"

	"askdb.dev/askdb/internal/logger"
)

const sampleRowLimit = 3

// UnavailableError is returned when no table list could be obtained. Its
// message is short on purpose: it ends up inside the LLM prompt.
type UnavailableError struct {
	Stage string
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("Schema unavailable (%s): %v", e.Stage, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

type Introspector struct {
	opener Opener
	logger *logger.Logger
}

func NewIntrospector(opener Opener, log *logger.Logger) *Introspector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Introspector{opener: opener, logger: log}
}

func (i *Introspector) Dialect() string {
	return i.opener.Dialect()
}

// Describe renders the schema as prompt text. It never fails: a database that
// cannot be reached is rendered as a single unavailability line.
func (i *Introspector) Describe(ctx context.Context, filter Filter) string {
	snap, err := i.Snapshot(ctx, filter)
	if err != nil {
		return err.Error()
	}
	return Render(snap)
}

// Snapshot gathers the structured description. Only a failure to open the
// database or list its tables is returned as an error; every other failure is
// kept in the corresponding Outcome.
func (i *Introspector) Snapshot(ctx context.Context, filter Filter) (*Snapshot, error) {
	insp, err := i.opener.Open(ctx)
	if err != nil {
		return nil, &UnavailableError{Stage: "connection/reflection error", Err: err}
	}
	defer func() {
		if cerr := insp.Close(); cerr != nil {
			i.logger.Warn("closing schema inspector", "error", cerr)
		}
	}()

	target := i.resolveSchema(ctx, insp)

	all, err := insp.TableNames(ctx, target)
	if err != nil {
		return nil, &UnavailableError{Stage: "failed to list tables", Err: err}
	}

	snap := &Snapshot{Dialect: i.opener.Dialect(), Schema: target}
	for _, table := range all {
		if !filter.Includes(table) {
			continue
		}
		snap.Tables = append(snap.Tables, i.inspectTable(ctx, insp, target, table, filter.Allowed(table)))
	}
	return snap, nil
}

func (i *Introspector) resolveSchema(ctx context.Context, insp Inspector) string {
	if name, err := insp.DefaultSchema(ctx); err == nil && name != "" {
		return name
	}
	return defaultSchemaFor(i.opener.Dialect())
}

// defaultSchemaFor is used when the database does not report its own default.
// MySQL has no schema separate from the database and Oracle uses the current
// user, so both resolve to the connection's own namespace.
func defaultSchemaFor(dialect string) string {
	switch dialect {
	case "postgresql":
		return "public"
	case "sqlserver":
		return "dbo"
	default:
		return ""
	}
}

func (i *Introspector) inspectTable(ctx context.Context, insp Inspector, target, table string, allowed map[string]bool) TableReport {
	r := TableReport{Name: table}
	log := i.logger.With("table", table)

	r.RowCount = outcome(insp.RowCount(ctx, target, table))
	r.PrimaryKey = outcome(insp.PrimaryKey(ctx, target, table))
	r.UniqueConstraints = outcome(insp.UniqueConstraints(ctx, target, table))
	r.Indexes = outcome(insp.Indexes(ctx, target, table))

	cols, err := insp.Columns(ctx, target, table)
	r.Columns = Outcome[[]Column]{Err: err}
	if err == nil {
		r.Columns.Value = filterColumns(cols, allowed)
	}

	fks, err := insp.ForeignKeys(ctx, target, table)
	r.ForeignKeys = Outcome[[]ForeignEdge]{Err: err}
	if err == nil {
		r.ForeignKeys.Value = foreignEdges(table, fks, allowed)
	}

	r.Samples = i.samples(ctx, insp, target, table, cols, allowed)

	for _, f := range []struct {
		name string
		err  *error
	}{
		{"row_count", &r.RowCount.Err},
		{"primary_key", &r.PrimaryKey.Err},
		{"unique", &r.UniqueConstraints.Err},
		{"indexes", &r.Indexes.Err},
		{"columns", &r.Columns.Err},
		{"foreign_keys", &r.ForeignKeys.Err},
		{"samples", &r.Samples.Err},
	} {
		if *f.err == nil {
			continue
		}
		log.Debug("introspection feature skipped", "feature", f.name, "error", *f.err)
		*f.err = &FeatureError{Table: table, Feature: f.name, Err: *f.err}
	}
	return r
}

func (i *Introspector) samples(ctx context.Context, insp Inspector, target, table string, cols []Column, allowed map[string]bool) Outcome[[]SampleRow] {
	if allowed == nil {
		return outcome(insp.SampleRows(ctx, target, table, nil, sampleRowLimit))
	}

	var selected []string
	if len(cols) > 0 {
		for _, c := range cols {
			if allowed[c.Name] {
				selected = append(selected, c.Name)
			}
		}
	} else {
		for name := range allowed {
			selected = append(selected, name)
		}
		sort.Strings(selected)
	}
	if len(selected) == 0 {
		return Outcome[[]SampleRow]{}
	}
	return outcome(insp.SampleRows(ctx, target, table, selected, sampleRowLimit))
}

func filterColumns(cols []Column, allowed map[string]bool) []Column {
	if allowed == nil {
		return cols
	}
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		if allowed[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

func foreignEdges(table string, fks []ForeignKey, allowed map[string]bool) []ForeignEdge {
	var edges []ForeignEdge
	for _, fk := range fks {
		ref := fk.ReferredTable
		if ref == "" {
			ref = "?"
		}
		for idx, col := range fk.Columns {
			if allowed != nil && !allowed[col] {
				continue
			}
			refCol := "?"
			if idx < len(fk.ReferredColumns) {
				refCol = fk.ReferredColumns[idx]
			}
			edges = append(edges, ForeignEdge{Table: table, Column: col, RefTable: ref, RefColumn: refCol})
		}
	}
	return edges
}
