package main

import (
	"context"
	"fmt"
	"io"

	"askdb.dev/askdb/internal/config"
	"askdb.dev/askdb/internal/core"
	"askdb.dev/askdb/internal/extdb"
	"askdb.dev/askdb/internal/llm"
	"askdb.dev/askdb/internal/logger"
	"askdb.dev/askdb/internal/prompt"
	"askdb.dev/askdb/internal/schema"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	executor  *extdb.Executor
	describer *schema.CachedDescriber
	filter    schema.Filter
	prompts   *prompt.Builder
	provider  llm.Provider
	pipeline  *core.Pipeline
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if !cfg.EnvFileLoaded {
		log.Debug("no .env file found, using process environment")
	}
	return log, nil
}

// newSchemaApp wires everything needed to describe the external database.
func newSchemaApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	connector, err := extdb.NewConnector(cfg.ExternalDB)
	if err != nil {
		return nil, fmt.Errorf("failed to configure external database: %w", err)
	}

	filter, err := schema.ParseFilter(cfg.Prompts.SchemaFilterJSON)
	if err != nil {
		log.Warn("ignoring schema filter", "error", err)
		filter = nil
	}

	intro := schema.NewIntrospector(extdb.NewSchemaOpener(connector), log.With("component", "schema"))
	return &app{
		cfg:       cfg,
		log:       log,
		executor:  extdb.NewExecutor(connector, cfg.ExternalDB.QueryTimeout, log.With("component", "extdb")),
		describer: schema.NewCachedDescriber(intro, cfg.SchemaCacheTTL, log.With("component", "schema_cache")),
		filter:    filter,
		prompts:   prompt.NewBuilder(connector.Vendor().DisplayName(), cfg.Prompts.BusinessRules, cfg.Prompts.AnswerStyle),
	}, nil
}

// newPipelineApp adds the LLM provider and the pipeline.
func newPipelineApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a, err := newSchemaApp(cfg, log)
	if err != nil {
		return nil, err
	}

	a.provider, err = llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	log.Info("llm provider ready", "provider", a.provider.Name(), "model", a.provider.Model())

	llmService := core.NewLLMService(a.provider, a.prompts, cfg.LLM.Timeout, log.With("component", "llm"))
	a.pipeline = core.NewPipeline(a.describer, a.filter, a.prompts, llmService, a.executor, core.RegexTableExtractor{}, log.With("component", "pipeline"))
	return a, nil
}

func (a *app) Close() {
	if c, ok := a.provider.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Warn("closing llm provider", "error", err)
		}
	}
}
