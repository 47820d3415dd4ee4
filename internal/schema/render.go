package schema

import (
	"fmt"
	"sort"
	"strings"

	"askdb.dev/askdb/internal/utils"
)

// Render turns a snapshot into the schema description embedded in prompts.
// Sections whose Outcome failed are left out.
func Render(s *Snapshot) string {
	var lines []string
	var relations []ForeignEdge

	for _, t := range s.Tables {
		lines = append(lines, "Table: "+t.Name)
		if t.RowCount.OK() {
			lines = append(lines, fmt.Sprintf("  Row count: %d", t.RowCount.Value))
		}
		if t.PrimaryKey.OK() && len(t.PrimaryKey.Value) > 0 {
			lines = append(lines, "  Primary Key: "+strings.Join(t.PrimaryKey.Value, ", "))
		}

		unique, uniqueCols := uniqueSets(t)
		if len(unique) > 0 {
			lines = append(lines, "  Unique: "+strings.Join(unique, "; "))
		}
		if idx := indexSets(t); len(idx) > 0 {
			lines = append(lines, "  Indexes: "+strings.Join(idx, "; "))
		}

		if t.Columns.OK() {
			for _, c := range t.Columns.Value {
				lines = append(lines, columnLine(c, uniqueCols[c.Name]))
			}
		}

		if t.ForeignKeys.OK() && len(t.ForeignKeys.Value) > 0 {
			lines = append(lines, "  Foreign Keys:")
			for _, e := range t.ForeignKeys.Value {
				lines = append(lines, fmt.Sprintf("    %s -> %s.%s", e.Column, e.RefTable, e.RefColumn))
			}
			relations = append(relations, t.ForeignKeys.Value...)
		}

		if t.Samples.OK() && len(t.Samples.Value) > 0 {
			lines = append(lines, "  Sample rows:")
			for _, row := range t.Samples.Value {
				lines = append(lines, "    "+sampleLine(row))
			}
		}
	}

	if len(relations) > 0 {
		lines = append(lines, "", "Relations between tables:")
		for _, e := range relations {
			lines = append(lines, fmt.Sprintf("  %s.%s -> %s.%s", e.Table, e.Column, e.RefTable, e.RefColumn))
		}
	}
	return strings.Join(lines, "\n")
}

func columnLine(c Column, unique bool) string {
	var b strings.Builder
	b.WriteString("  Column: ")
	b.WriteString(c.Name)
	b.WriteByte(' ')
	b.WriteString(c.Type)
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*c.Default)
	}
	if unique {
		b.WriteString(" UNIQUE")
	}
	return b.String()
}

func sampleLine(row SampleRow) string {
	parts := make([]string, 0, len(row.Columns))
	for i, col := range row.Columns {
		var v any
		if i < len(row.Values) {
			v = row.Values[i]
		}
		parts = append(parts, col+": "+utils.FormatValue(v))
	}
	return strings.Join(parts, ", ")
}

// uniqueSets merges unique constraints with unique indexes, since some
// engines report one and not the other. It also returns every column that
// takes part in any of them, composite sets included.
func uniqueSets(t TableReport) ([]string, map[string]bool) {
	seen := make(map[string]bool)
	cols := make(map[string]bool)
	add := func(set []string) {
		if len(set) == 0 {
			return
		}
		seen[strings.Join(set, ", ")] = true
		for _, c := range set {
			cols[c] = true
		}
	}
	if t.UniqueConstraints.OK() {
		for _, set := range t.UniqueConstraints.Value {
			add(set)
		}
	}
	if t.Indexes.OK() {
		for _, idx := range t.Indexes.Value {
			if idx.Unique {
				add(idx.Columns)
			}
		}
	}
	return sortedKeys(seen), cols
}

func indexSets(t TableReport) []string {
	if !t.Indexes.OK() {
		return nil
	}
	seen := make(map[string]bool)
	for _, idx := range t.Indexes.Value {
		if !idx.Unique && len(idx.Columns) > 0 {
			seen[strings.Join(idx.Columns, ", ")] = true
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
