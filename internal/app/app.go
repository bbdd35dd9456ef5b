// Package app turns a config.Config into wired services. Both entry points,
// the HTTP server and the docrag CLI, build through here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"docrag/internal/api"
	"docrag/internal/chunker"
	"docrag/internal/config"
	"docrag/internal/db"
	"docrag/internal/extract"
	"docrag/internal/llm"
	"docrag/internal/normalize"
	"docrag/internal/repository"
	"docrag/internal/repository/memory"
	"docrag/internal/segment"
	"docrag/internal/services"
	"docrag/internal/services/notify"
	"docrag/internal/sniff"
	"docrag/internal/telemetry"
)

// ServiceName is reported to the trace backend.
const ServiceName = "docrag"

// Version is overridden at link time.
var Version = "dev"

// Store is everything the services and handlers need from a store driver.
type Store interface {
	services.DocumentStore
	services.ChunkSearcher
	api.DocumentReader
}

// Pipeline holds the offline stages. Building it touches no network.
type Pipeline struct {
	Normalizer *normalize.Normalizer
	Segmenter  *segment.Segmenter
	Extractors *extract.Registry
	Sniffer    *sniff.Sniffer
	Chunker    *chunker.Chunker
}

// NewPipeline compiles the filters and builds the offline stages.
func NewPipeline(cfg *config.Config) (*Pipeline, error) {
	normalizer, err := normalize.New(normalize.Config{
		IgnoreSentences: cfg.Filters.IgnoreSentences,
		NumericNoise:    cfg.Filters.NumericNoise,
		LegalNotice:     cfg.Filters.LegalNotice,
		TableOfContents: cfg.Filters.TableOfContents,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build normalizer: %w", err)
	}

	segmenter, err := segment.New(normalizer)
	if err != nil {
		return nil, fmt.Errorf("failed to build segmenter: %w", err)
	}

	return &Pipeline{
		Normalizer: normalizer,
		Segmenter:  segmenter,
		Extractors: extract.NewRegistry(normalizer),
		Sniffer:    sniff.New(),
		Chunker: chunker.New(
			chunker.WithMaxTokens(cfg.ChunkMaxTokens),
			chunker.WithFlushRemainder(cfg.ChunkFlushRemainder),
		),
	}, nil
}

// StagingDirs reads the four staging trees from cfg.
func StagingDirs(cfg *config.Config) services.StagingDirs {
	return services.StagingDirs{
		InputDir:         cfg.InputDir,
		ProcessedDir:     cfg.ProcessedDir,
		TextDir:          cfg.TextDir,
		TextProcessedDir: cfg.TextProcessedDir,
	}
}

// Extractor builds an ingest service that can only run the extraction
// pass: it has no store and no embedder.
func (p *Pipeline) Extractor(cfg *config.Config) *services.IngestServiceImpl {
	return services.NewIngestService(services.IngestDeps{
		Sniffer:    p.Sniffer,
		Extractor:  p.Extractors,
		Normalizer: p.Normalizer,
		Splitter:   p.Segmenter,
		Chunker:    p.Chunker,
	}, StagingDirs(cfg), 1)
}

// App is the fully wired system.
type App struct {
	Config   *config.Config
	Pipeline *Pipeline
	Store    Store
	LLM      *llm.Client
	Hub      *notify.Hub
	Ingest   *services.IngestServiceImpl
	RAG      *services.RAGService

	closers []func() error
}

// New opens the store, checks the embedding width against the model and
// wires the services. Neither the hub nor the ingest worker is started.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pipeline, err := NewPipeline(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Pipeline: pipeline}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.LLM = llm.NewClient(llm.Config{
		EmbeddingBaseURL: cfg.EmbeddingBaseURL,
		EmbeddingAPIKey:  cfg.EmbeddingAPIKey,
		EmbeddingModel:   cfg.EmbeddingModel,
		Dimension:        cfg.EmbeddingDim,
		ChatBaseURL:      cfg.LLMBaseURL,
		ChatAPIKey:       cfg.LLMAPIKey,
		ChatModel:        cfg.LLMModel,
		MaxTokens:        cfg.LLMMaxTokens,
	})
	if err := a.LLM.CheckDimension(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("embedding model check failed: %w", err)
	}
	log.Printf("✓ Embedding model %s ready (%d dimensions)", cfg.EmbeddingModel, cfg.EmbeddingDim)

	a.Hub = notify.NewHub()
	a.closers = append(a.closers, func() error { a.Hub.Shutdown(); return nil })

	a.Ingest = services.NewIngestService(services.IngestDeps{
		Sniffer:    pipeline.Sniffer,
		Extractor:  pipeline.Extractors,
		Normalizer: pipeline.Normalizer,
		Splitter:   pipeline.Segmenter,
		Chunker:    pipeline.Chunker,
		Embedder:   a.LLM,
		Store:      a.Store,
		Events:     a.Hub,
	}, StagingDirs(cfg), ingestQueueSize)

	a.RAG = services.NewRAGService(a.LLM, a.Store, a.LLM, cfg.ChunkMaxTokens, cfg.MaxSimilarChunks)
	return a, nil
}

const ingestQueueSize = 8

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.StoreDriver {
	case "memory":
		a.Store = memory.NewStore()
		log.Println("⚠️  Using in-memory store; nothing survives a restart")
		return nil
	case "postgres":
		database, err := db.NewGorm(ctx, a.Config)
		if err != nil {
			return err
		}
		a.Store = repository.NewStore(database.DB)
		a.closers = append(a.closers, database.Close)
		return nil
	}
	return fmt.Errorf("unknown store driver %q", a.Config.StoreDriver)
}

// Close releases everything New opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// InitTracing installs the Jaeger exporter when tracing is enabled.
// Failure is logged and tracing stays off.
func InitTracing(cfg *config.Config) telemetry.ShutdownFunc {
	if !cfg.TracingEnabled {
		return telemetry.Noop
	}
	shutdown, err := telemetry.InitJaeger(telemetry.Options{
		ServiceName: ServiceName,
		Version:     Version,
		Endpoint:    cfg.JaegerEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Printf("⚠️  Failed to initialize Jaeger: %v (continuing without tracing)", err)
		return telemetry.Noop
	}
	return shutdown
}
