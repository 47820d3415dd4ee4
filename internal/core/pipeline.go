package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"askdb.dev/askdb/internal/extdb"
	"askdb.dev/askdb/internal/llm"
	"askdb.dev/askdb/internal/logger"
	"askdb.dev/askdb/internal/metrics"
	"askdb.dev/askdb/internal/prompt"
	"askdb.dev/askdb/internal/schema"
	"askdb.dev/askdb/internal/utils"
)

const (
	fuzzySampleRows = 10

	PrimaryClarification = "Your question was not clear or a valid query could not be generated. " +
		"Could you rephrase it or give more details?"
	FuzzyClarification = "No results were found and an approximate search could not be performed right now."
)

// Outcome is the result of one pipeline run. Clarification is set only when
// no usable result was obtained; then Answer equals it and Result is nil.
type Outcome struct {
	Answer        string            `json:"answer"`
	SQL           string            `json:"sql"`
	Result        extdb.QueryResult `json:"result"`
	Clarification *string           `json:"clarification"`
}

// SQLModel is the LLM side of the pipeline.
type SQLModel interface {
	GenerateSQL(ctx context.Context, question, schemaPrompt string, history []llm.Message) (string, error)
	SynthesizeAnswer(ctx context.Context, question string, result extdb.QueryResult) (string, error)
}

// QueryRunner executes generated SQL against the external database.
type QueryRunner interface {
	Execute(ctx context.Context, sql string) (extdb.QueryResult, error)
	SampleRows(ctx context.Context, table string, n int) (extdb.QueryResult, error)
}

type Pipeline struct {
	schema  schema.Describer
	filter  schema.Filter
	prompts *prompt.Builder
	model   SQLModel
	runner  QueryRunner
	tables  TableExtractor
	logger  *logger.Logger
}

func NewPipeline(describer schema.Describer, filter schema.Filter, prompts *prompt.Builder, model SQLModel, runner QueryRunner, tables TableExtractor, log *logger.Logger) *Pipeline {
	if tables == nil {
		tables = RegexTableExtractor{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		schema:  describer,
		filter:  filter,
		prompts: prompts,
		model:   model,
		runner:  runner,
		tables:  tables,
		logger:  log,
	}
}

// Ask answers question with at most one fuzzy retry. SQL execution failures
// become clarifications; LLM failures are returned as errors.
func (p *Pipeline) Ask(ctx context.Context, question string, history []llm.Message) (*Outcome, error) {
	log := p.logger.With("run_id", uuid.NewString())

	schemaText := p.schema.Describe(ctx, p.filter)
	systemPrompt := p.prompts.SQLSystemPrompt(schemaText)

	raw, err := p.model.GenerateSQL(ctx, p.prompts.SQLInstruction(question, schemaText), systemPrompt, history)
	if err != nil {
		metrics.ObservePipelineOutcome(metrics.OutcomeError)
		return nil, err
	}
	sql := utils.StripCodeFences(raw)
	log.Debug("generated sql", "sql", sql)

	result, err := p.runner.Execute(ctx, sql)
	metrics.ObserveSQLExecution("primary", err)
	if err != nil {
		log.Warn("generated sql failed", "sql", sql, "error", err)
		metrics.ObservePipelineOutcome(metrics.OutcomeClarificationPrimary)
		return clarify(sql, PrimaryClarification), nil
	}

	if len(result) > 0 {
		return p.answer(ctx, log, question, sql, result, metrics.OutcomeAnswered)
	}

	fuzzySQL, err := p.fuzzySQL(ctx, log, systemPrompt, sql, history)
	if err != nil {
		metrics.ObservePipelineOutcome(metrics.OutcomeError)
		return nil, err
	}

	fuzzyResult, err := p.runner.Execute(ctx, fuzzySQL)
	metrics.ObserveSQLExecution("fuzzy", err)
	if err != nil {
		log.Warn("fuzzy sql failed", "sql", fuzzySQL, "error", err)
		metrics.ObservePipelineOutcome(metrics.OutcomeClarificationFuzzy)
		return clarify(fuzzySQL, FuzzyClarification), nil
	}
	return p.answer(ctx, log, question, fuzzySQL, fuzzyResult, metrics.OutcomeFuzzyAnswered)
}

// fuzzySQL samples the tables of the empty query and asks for an approximate one.
func (p *Pipeline) fuzzySQL(ctx context.Context, log *logger.Logger, systemPrompt, failedSQL string, history []llm.Message) (string, error) {
	samples := make(map[string]extdb.QueryResult)
	for _, table := range p.tables.Tables(failedSQL) {
		rows, err := p.runner.SampleRows(ctx, table, fuzzySampleRows)
		if err != nil {
			log.Debug("sampling table failed", "table", table, "error", err)
			rows = extdb.QueryResult{}
		}
		samples[table] = rows
	}

	encoded, err := json.Marshal(samples)
	if err != nil {
		return "", fmt.Errorf("failed to encode sample rows: %w", err)
	}

	raw, err := p.model.GenerateSQL(ctx, p.prompts.FuzzyRetryInstruction(failedSQL, string(encoded)), systemPrompt, history)
	if err != nil {
		return "", err
	}
	sql := utils.StripCodeFences(raw)
	log.Debug("generated fuzzy sql", "sql", sql)
	return sql, nil
}

func (p *Pipeline) answer(ctx context.Context, log *logger.Logger, question, sql string, result extdb.QueryResult, outcome string) (*Outcome, error) {
	answer, err := p.model.SynthesizeAnswer(ctx, question, result)
	if err != nil {
		metrics.ObservePipelineOutcome(metrics.OutcomeError)
		return nil, err
	}
	log.Info("question answered", "rows", len(result), "outcome", outcome)
	metrics.ObservePipelineOutcome(outcome)
	return &Outcome{Answer: answer, SQL: sql, Result: result}, nil
}

func clarify(sql, text string) *Outcome {
	return &Outcome{Answer: text, SQL: sql, Clarification: &text}
}
