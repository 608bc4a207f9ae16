package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/analysis"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/audit"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/compliance"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/config"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/llm"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/retrieval"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/storage"
)

// app holds everything a command needs to analyze statements.
type app struct {
	engine  *analysis.Engine
	gateway *llm.Gateway
	db      *storage.SQLiteStorage
	logger  *slog.Logger
	closers []func() error
}

// newApp builds the engine from configuration. The database is opened
// only when the audit backend or needDB asks for it.
func newApp(ctx context.Context, v *viper.Viper, needDB bool) (a *app, err error) {
	a = &app{logger: slog.Default()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	llmCfg := config.LoadLLMConfig(v)
	backend, err := llm.NewBackend(ctx, llmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", llmCfg.Provider, err)
	}

	gatewayOpts := []llm.GatewayOption{
		llm.WithRetryOptions(config.LoadRetryOptions(v)),
		llm.WithDefaultMaxTokens(llmCfg.MaxTokens),
		llm.WithLogger(a.logger),
	}
	if llmCfg.RateLimit > 0 {
		gatewayOpts = append(gatewayOpts, llm.WithRateLimiter(llm.NewRateLimiter(llmCfg.RateLimit)))
	}
	a.gateway = llm.NewGateway(backend, gatewayOpts...)
	a.logger.Debug("Model backend ready",
		"backend", a.gateway.BackendName(),
		"capabilities", a.gateway.Capabilities().String())

	backendName := v.GetString("audit.backend")
	if needDB || backendName == "sqlite" {
		a.db, err = storage.Open(ctx, config.ExpandPath(v.GetString("database.path")))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.closers = append(a.closers, a.db.Close)
	}

	sink, err := a.auditSink(backendName, v)
	if err != nil {
		return nil, err
	}

	retriever, err := buildRetriever(v, a.logger)
	if err != nil {
		return nil, err
	}

	prompts, err := analysis.NewTemplatePromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	a.engine, err = analysis.NewEngineWithConfig(analysis.Deps{
		Invoker:       a.gateway,
		Retriever:     retriever,
		PromptBuilder: prompts,
		PostProcessor: compliance.NewChecker(),
		AuditSink:     sink,
	}, config.LoadAnalysisConfig(v), analysis.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis engine: %w", err)
	}
	return a, nil
}

func (a *app) auditSink(backend string, v *viper.Viper) (service.AuditSink, error) {
	switch backend {
	case "file", "":
		sink, err := audit.NewFileSink(config.ExpandPath(v.GetString("audit.path")))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sink.Close)
		return sink, nil
	case "sqlite":
		return audit.NewSQLiteSink(a.db.DB()), nil
	case "none":
		return audit.NopSink{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown audit backend %q", common.ErrInvalidConfig, backend)
	}
}

// buildRetriever prefers a persisted vector index, then a configured
// documents file, then the built-in documents.
func buildRetriever(v *viper.Viper, logger *slog.Logger) (service.Retriever, error) {
	indexPath := config.ExpandPath(v.GetString("retrieval.index_path"))
	if indexPath != "" {
		if _, err := os.Stat(indexPath); err == nil {
			store, err := loadIndex(indexPath)
			if err != nil {
				return nil, err
			}
			if store.Len() > 0 {
				logger.Debug("Using vector index", "path", indexPath, "chunks", store.Len())
				return retrieval.NewVectorRetriever(store, nil), nil
			}
		}
	}

	if docsFile := config.ExpandPath(v.GetString("retrieval.docs_file")); docsFile != "" {
		docs, err := retrieval.LoadDocuments(docsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load knowledge documents: %w", err)
		}
		logger.Debug("Using documents file", "path", docsFile, "documents", len(docs))
		return retrieval.NewKeywordRetriever(docs), nil
	}

	return retrieval.NewKeywordRetriever(retrieval.DefaultDocuments), nil
}

func loadIndex(path string) (*retrieval.VectorStore, error) {
	index, err := retrieval.OpenBoltIndex(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = index.Close() }()
	return index.Load()
}

// Close waits for background audit writes and releases resources in
// reverse order of acquisition.
func (a *app) Close() error {
	if a.engine != nil {
		a.engine.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
