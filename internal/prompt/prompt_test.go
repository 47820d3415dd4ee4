package prompt

import (
	"strings"
	"testing"
)

const schemaText = "Table: customers\n  Column: id integer NOT NULL"

func TestSQLSystemPrompt(t *testing.T) {
	b := NewBuilder("PostgreSQL", "", "")
	got := b.SQLSystemPrompt(schemaText)

	for _, want := range []string{
		schemaText,
		"complete PostgreSQL SQL",
		"Only run SELECT statements",
		"Use IN",
		"Never use LIMIT inside subqueries used with IN, ALL, ANY or SOME",
		"LIKE '%value%'",
		"ask the user for clarification",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("SQLSystemPrompt() missing %q", want)
		}
	}
	if strings.Contains(got, "Business specific rules") {
		t.Error("SQLSystemPrompt() has business rules section without configuration")
	}
}

func TestSQLSystemPromptBusinessRules(t *testing.T) {
	b := NewBuilder("", "  Orders with status 9 are cancelled.  ", "")
	got := b.SQLSystemPrompt(schemaText)
	if !strings.HasSuffix(got, "\n\nBusiness specific rules:\nOrders with status 9 are cancelled.\n") {
		t.Errorf("SQLSystemPrompt() suffix = %q", got[len(got)-80:])
	}
	if !strings.Contains(got, "complete MySQL SQL") {
		t.Error("empty dialect should default to MySQL")
	}
}

func TestSQLInstruction(t *testing.T) {
	b := NewBuilder("Oracle", "", "")
	got := b.SQLInstruction("How many customers are there?", schemaText)
	for _, want := range []string{
		"User question: How many customers are there?",
		schemaText,
		"single SQL SELECT",
		"standard Oracle",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("SQLInstruction() missing %q", want)
		}
	}
}

func TestAnswerSystemPrompt(t *testing.T) {
	plain := NewBuilder("MySQL", "", "").AnswerSystemPrompt()
	if !strings.Contains(plain, "NEVER include SQL") || !strings.Contains(plain, "Markdown") {
		t.Errorf("AnswerSystemPrompt() = %q", plain)
	}

	styled := NewBuilder("MySQL", "", "Answer in Portuguese.").AnswerSystemPrompt()
	if styled != plain+"\nAnswer in Portuguese." {
		t.Errorf("AnswerSystemPrompt() with style = %q", styled)
	}
}

func TestPromptsAreDeterministic(t *testing.T) {
	b := NewBuilder("SQL Server", "rule", "style")
	if b.SQLSystemPrompt(schemaText) != b.SQLSystemPrompt(schemaText) {
		t.Error("SQLSystemPrompt() not deterministic")
	}
	if b.AnswerSystemPrompt() != b.AnswerSystemPrompt() {
		t.Error("AnswerSystemPrompt() not deterministic")
	}
}

func TestFuzzyRetryInstruction(t *testing.T) {
	got := NewBuilder("MySQL", "", "").FuzzyRetryInstruction(
		"SELECT * FROM customers WHERE name = 'Jon'",
		`{"customers":[{"id":1,"name":"Jonas"}]}`,
	)
	for _, want := range []string{
		"SELECT * FROM customers WHERE name = 'Jon'",
		`"name":"Jonas"`,
		"%word%",
		"return only plain SQL",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FuzzyRetryInstruction() missing %q", want)
		}
	}
}
