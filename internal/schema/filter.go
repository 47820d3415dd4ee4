package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Filter restricts introspection to some tables. A nil Filter selects every
// table; a table mapped to an empty column list selects all of its columns.
type Filter map[string][]string

// ParseFilter decodes {"table": ["col", ...] | null, ...}. Blank input is no filter.
func ParseFilter(raw string) (Filter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var f Filter
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("invalid schema filter: %w", err)
	}
	return f, nil
}

func (f Filter) Includes(table string) bool {
	if f == nil {
		return true
	}
	_, ok := f[table]
	return ok
}

// Allowed returns the permitted columns of table, or nil when all are permitted.
func (f Filter) Allowed(table string) map[string]bool {
	if f == nil {
		return nil
	}
	cols := f[table]
	if len(cols) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(cols))
	for _, c := range cols {
		allowed[c] = true
	}
	return allowed
}

// Key is a canonical string form, stable across map iteration order.
func (f Filter) Key() string {
	if f == nil {
		return "*"
	}
	tables := make([]string, 0, len(f))
	for t := range f {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	var b strings.Builder
	for i, t := range tables {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(t)
		b.WriteByte('=')
		cols := append([]string(nil), f[t]...)
		if len(cols) == 0 {
			b.WriteByte('*')
			continue
		}
		sort.Strings(cols)
		b.WriteString(strings.Join(cols, ","))
	}
	return b.String()
}
