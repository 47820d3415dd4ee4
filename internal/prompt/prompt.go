package prompt

import (
	"fmt"
	"strings"
)

// Builder produces the prompt texts. It performs no I/O; the optional suffixes
// come from configuration at startup.
type Builder struct {
	// Dialect is the product name the SQL must target, e.g. "PostgreSQL".
	Dialect       string
	BusinessRules string
	AnswerStyle   string
}

func NewBuilder(dialect, businessRules, answerStyle string) *Builder {
	if dialect == "" {
		dialect = "MySQL"
	}
	return &Builder{
		Dialect:       dialect,
		BusinessRules: strings.TrimSpace(businessRules),
		AnswerStyle:   strings.TrimSpace(answerStyle),
	}
}

// SQLSystemPrompt sets the SQL generation rules around the schema description.
func (b *Builder) SQLSystemPrompt(schema string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are an assistant that answers questions about a relational database. Always write valid, complete %[1]s SQL. Only run SELECT statements and never modify data. Database structure:

%[2]s

Rules:
- Always write complete SQL and never leave out required parts (for example, always name the column in ORDER BY).
- Never use %[1]s reserved words (such as 'order') as identifiers unless they are quoted.
- Never include markdown code fences (`+"```sql or ```"+`).
- Return only plain SQL, ready to execute.
- NEVER use columns or tables that do not appear exactly as written in the schema and sample data above. Never invent column, table or relationship names.
- Check column and table names against the sample rows before writing SQL. When unsure, only use columns and tables that appear in the samples.
- Join tables only through the explicit foreign keys in the schema. Never assume a relationship that is not stated.
- When the question names something, filter the target table by that name with WHERE col LIKE '%%value%%'. Never assume an id is known; look it up by the value first.
- In subqueries, never use '=' when the subquery can return more than one row. Use IN, or make sure it returns a single row with LIMIT 1 or the %[1]s equivalent.
- Never use LIMIT inside subqueries used with IN, ALL, ANY or SOME. Rewrite with a JOIN or a CTE (WITH), or limit only the outer query.
- If nothing is found, try an approximate search (LIKE '%%word%%') or suggest alternatives based on the real data.
- If the requested column or table does not exist, tell the user it does not exist and ask them to check or give more detail.
- If the question is unclear, or no valid SQL can be written with the information available, ask the user for clarification.
- If the question has nothing to do with this database, politely say you cannot help with that.
- You are talking to an end user. Do not say things like "you did not give me enough data", "I have no access to the database" or "I cannot run SQL". Answer clearly and objectively from the SELECT result or from this prompt.

When you receive a question, write the SQL, wait for its result, and only then answer clearly and objectively from the result.
`, b.Dialect, schema)

	if b.BusinessRules != "" {
		sb.WriteString("\n\nBusiness specific rules:\n")
		sb.WriteString(b.BusinessRules)
		sb.WriteString("\n")
	}
	return sb.String()
}

// SQLInstruction is the per-question user message asking for one SELECT.
func (b *Builder) SQLInstruction(question, schema string) string {
	return fmt.Sprintf(`
Below is the database structure:
%[2]s

User question: %[3]s

Write a single SQL SELECT statement, with no explanation, following these rules:
- Use only columns, tables and relationships present in the schema and samples above.
- Do not use LIMIT inside subqueries used with IN/ALL/ANY/SOME; if you need a limit, rewrite with JOIN/CTE or limit the outer query.
- In subqueries that can return multiple values, use IN instead of '='.
- Avoid functions or features not supported by standard %[1]s.
- For custom orderings (for example highest priority first), use CASE with the real values.
- To find records by a name given in the question, filter with LIKE '%%value%%'.
- Do not include markdown (`+"```"+`) or comments; return only executable SQL.
`, b.Dialect, schema, question)
}

// AnswerSystemPrompt sets the style of the final natural language answer.
func (b *Builder) AnswerSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString(`You write clear answers for end users, in the language the user writes in.
Format in simple Markdown (headings, lists, bold when useful).
NEVER include SQL, code snippets or code blocks.
Base the answer only on the result of the query that was already executed and on the question.
If there are no results, explain it in a friendly way and suggest what the user can check (name, filters, spelling, more details).
If something is uncertain, ask for clarification briefly and politely.
Do not end the answer by offering more help or further actions; be direct and objective.
Do not invent information that is not in the query result, the question or this prompt. If you do not have the information, say you cannot help with that or ask for more details.
Do not describe your own next steps. Only answer the question, or ask for information that a regular business user can provide, not the technical person who set you up.
Never say you are an AI or that you lack access to the data.`)

	if b.AnswerStyle != "" {
		sb.WriteString("\n")
		sb.WriteString(b.AnswerStyle)
	}
	return sb.String()
}

// FuzzyRetryInstruction asks for an approximate query after failedSQL
// returned no rows. samples is the rendered sample data per table.
func (b *Builder) FuzzyRetryInstruction(failedSQL, samples string) string {
	return fmt.Sprintf(`The SQL query below returned no results:
%s
Here are real sample rows from the tables involved: %s
Write a new %s SQL query that searches by approximation (using LIKE, %%word%%, or similarity functions) or adapt the query to find records related to the question. Do not explain, return only plain SQL.`,
		failedSQL, samples, b.Dialect)
}
