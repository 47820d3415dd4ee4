package core

import (
	"regexp"
	"strings"
)

// TableExtractor finds the tables a SQL statement reads from.
type TableExtractor interface {
	Tables(sql string) []string
}

var (
	fromTablePattern = regexp.MustCompile(`(?i)\bfrom\s+([\w.]+)`)
	joinTablePattern = regexp.MustCompile(`(?i)\bjoin\s+([\w.]+)`)
)

// RegexTableExtractor scans FROM clauses, falling back to JOIN clauses when no
// FROM target is found. It is a heuristic, not a parser.
type RegexTableExtractor struct{}

func (RegexTableExtractor) Tables(sql string) []string {
	if tables := matchTables(fromTablePattern, sql); len(tables) > 0 {
		return tables
	}
	return matchTables(joinTablePattern, sql)
}

// matchTables returns distinct names in first-seen order, compared
// case-insensitively.
func matchTables(re *regexp.Regexp, sql string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range re.FindAllStringSubmatch(sql, -1) {
		key := strings.ToLower(m[1])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m[1])
	}
	return out
}
