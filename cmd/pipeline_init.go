package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/piloturl/test-analysis/internal/pipeline"
	"github.com/piloturl/test-analysis/internal/store"
	"github.com/piloturl/test-analysis/internal/telemetry"
	"github.com/piloturl/test-analysis/pkg/generative"
	"github.com/piloturl/test-analysis/pkg/vectorsearch"
)

// pipelineEnv holds the initialized store, clients, and orchestrator needed
// by the serve/analyze commands.
type pipelineEnv struct {
	Store        store.Store
	Recorder     *telemetry.AsyncRecorder
	Orchestrator *pipeline.Orchestrator
}

// Close flushes telemetry and releases the store. Callers should defer it.
func (pe *pipelineEnv) Close() {
	if pe.Recorder != nil {
		pe.Recorder.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, the generative and vector-search clients,
// and the orchestrator. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	genClient := generative.NewClient(cfg.Generative.Key, cfg.Generative.Model,
		generative.WithMaxTokens(cfg.Generative.MaxTokens),
		generative.WithRequestsPerSecond(cfg.Generative.RequestsPerSecond),
		generative.WithTimeout(time.Duration(cfg.Generative.TimeoutSecs)*time.Second),
		generative.WithRetry(cfg.Generative.MaxRetries),
	)
	searchClient := vectorsearch.NewClient(cfg.VectorSearch.BaseURL, cfg.VectorSearch.Key, cfg.VectorSearch.IndexID,
		vectorsearch.WithTimeout(time.Duration(cfg.VectorSearch.TimeoutSecs)*time.Second),
		vectorsearch.WithRetry(cfg.VectorSearch.MaxRetries),
	)

	recorder := telemetry.NewAsyncRecorder(st, cfg.Telemetry.BufferSize)

	orch := pipeline.NewOrchestrator(
		pipeline.NewRequestGate(),
		pipeline.NewContextLookup(st),
		pipeline.NewItemExtractor(st),
		pipeline.NewWeaknessExtractor(genClient),
		pipeline.NewCourseMatcher(searchClient, cfg.Pipeline.MaxTotalCourses, cfg.Pipeline.MatchConcurrency),
		pipeline.NewSummarizer(genClient),
		recorder,
	)

	return &pipelineEnv{
		Store:        st,
		Recorder:     recorder,
		Orchestrator: orch,
	}, nil
}

// initStore selects the database backend from configuration.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
