// Package pipeline assembles the analysis components from configuration and
// owns their lifecycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/cultura/internal/analysis"
	"github.com/ppiankov/cultura/internal/cache"
	"github.com/ppiankov/cultura/internal/imagedata"
	"github.com/ppiankov/cultura/internal/knowledge"
	"github.com/ppiankov/cultura/internal/llm"
	"github.com/ppiankov/cultura/internal/logging"
	"github.com/ppiankov/cultura/internal/model"
	"github.com/ppiankov/cultura/internal/review"
	"github.com/ppiankov/cultura/internal/store"
	"github.com/ppiankov/cultura/internal/worker"
)

// UserAgent identifies image downloads
const UserAgent = "cultura/0.1 (+https://github.com/ppiankov/cultura)"

// Options selects optional components
type Options struct {
	Store bool // Open the SQLite catalog and review service
	Watch bool // Watch the corpus for changes (long-running commands)
}

// Pipeline wires the analysis components together
type Pipeline struct {
	config   *model.Config
	logger   *zap.Logger
	provider llm.Provider
	corpus   *knowledge.Loader
	watcher  *knowledge.Watcher
	cache    cache.Cache
	analyzer *analysis.Analyzer
	fetcher  *Fetcher
	store    *store.Store
	media    *store.Media
	reviews  *review.Service
}

// New builds the pipeline described by cfg
func New(ctx context.Context, cfg *model.Config, logger *zap.Logger, opts Options) (*Pipeline, error) {
	logger = logging.OrNop(logger)

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("initialize model provider: %w", err)
	}

	p := &Pipeline{
		config:   cfg,
		logger:   logger,
		provider: provider,
		corpus:   knowledge.NewLoader(cfg.Knowledge.CorpusPath, logger.Named("knowledge")),
		cache:    cache.New(cfg.Cache),
		fetcher: NewFetcher(cfg.Fetch.Timeout, UserAgent, cfg.Fetch.MaxBytes, cfg.Fetch.InsecureTLS,
			cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy),
	}
	if cfg.Fetch.RespectRobots {
		p.fetcher.RespectRobots()
	}

	var source knowledge.Source = p.corpus
	if opts.Watch && cfg.Knowledge.Watch {
		w, err := knowledge.NewWatcher(p.corpus)
		if err != nil {
			return nil, err
		}
		if err := w.Start(ctx); err != nil {
			// The corpus directory may not exist yet; fall back to direct reads
			logger.Warn("corpus watch disabled", zap.Error(err))
			w.Stop()
		} else {
			p.watcher = w
			source = w
		}
	}

	p.analyzer = analysis.NewAnalyzer(provider, source, p.cache, logger.Named("analysis"), analysis.OptionsFromConfig(cfg))

	if opts.Store {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.store = st
		p.media = store.NewMedia(cfg.Store.MediaDir)
		p.reviews = review.NewService(review.Deps{
			Repository: st,
			Corpus:     p.corpusWriter(),
			Images:     p.media,
			Logger:     logger.Named("review"),
		})
	}

	logger.Debug("pipeline ready",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.LLM.Model),
		zap.String("corpus", cfg.Knowledge.CorpusPath),
		zap.Bool("cache", p.cache != nil),
		zap.Bool("store", p.store != nil))
	return p, nil
}

// corpusWriter appends through the watcher when present so its cache drops
func (p *Pipeline) corpusWriter() review.Corpus {
	if p.watcher != nil {
		return p.watcher
	}
	return p.corpus
}

// Close releases the watcher and the database
func (p *Pipeline) Close() error {
	if p.watcher != nil {
		p.watcher.Stop()
	}
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}

// Analyzer returns the orchestrator
func (p *Pipeline) Analyzer() *analysis.Analyzer { return p.analyzer }

// Provider returns the configured model client
func (p *Pipeline) Provider() llm.Provider { return p.provider }

// Corpus returns the corpus loader
func (p *Pipeline) Corpus() *knowledge.Loader { return p.corpus }

// Fetcher returns the image loader
func (p *Pipeline) Fetcher() *Fetcher { return p.fetcher }

// Store returns the catalog, nil unless Options.Store was set
func (p *Pipeline) Store() *store.Store { return p.store }

// Reviews returns the review service, nil unless Options.Store was set
func (p *Pipeline) Reviews() *review.Service { return p.reviews }

// AppendToCorpus adds an element to the corpus
func (p *Pipeline) AppendToCorpus(element model.VerifiedElement) (bool, error) {
	return p.corpusWriter().Append(element)
}

// AnalyzeRef loads the image at ref (path or URL) and analyzes it
func (p *Pipeline) AnalyzeRef(ctx context.Context, ref string, useCache bool) (*analysis.Outcome, string, error) {
	payload, err := p.fetcher.Load(ctx, ref)
	if err != nil {
		return nil, "", fmt.Errorf("load image: %w", err)
	}
	outcome, err := p.analyzer.Analyze(ctx, payload, useCache)
	return outcome, payload, err
}

// BatchProcessor returns a batch processor paced per provider endpoint
func (p *Pipeline) BatchProcessor(workers int, useCache bool) *worker.BatchProcessor {
	if workers <= 0 {
		workers = p.config.Concurrency.Workers
	}
	return worker.NewBatchProcessor(p.analyzer, p.fetcher, worker.BatchOptions{
		Concurrency:       workers,
		RequestsPerSecond: p.config.RateLimiting.RequestsPerSecond,
		Burst:             p.config.RateLimiting.BurstSize,
		Endpoint:          llm.Endpoint(llm.ConfigFromModel(p.config.LLM)),
		UseCache:          useCache,
	}, p.logger.Named("batch"))
}

// ErrNoStore is returned by persistence helpers when the catalog is closed
var ErrNoStore = errors.New("catalog store not opened")

// LogAnalysis records a model call. Cache hits are not logged.
func (p *Pipeline) LogAnalysis(ctx context.Context, outcome *analysis.Outcome, itemID string) error {
	if p.store == nil {
		return ErrNoStore
	}
	if outcome.Result.Metadata.Cached {
		return nil
	}
	return p.store.SaveAnalysisLog(ctx, &model.AnalysisLog{
		ItemID:            itemID,
		ImageHash:         outcome.ImageHash,
		RawResponse:       outcome.Raw,
		ProcessingSeconds: outcome.Duration.Seconds(),
		TokensUsed:        outcome.Result.Metadata.TokensUsed,
	})
}

// Record saves an accepted analysis as an unvalidated catalog item together
// with its image and analysis log.
func (p *Pipeline) Record(ctx context.Context, outcome *analysis.Outcome, imageBase64, userID string) (*model.CulturalItem, error) {
	if p.store == nil {
		return nil, ErrNoStore
	}
	r := outcome.Result
	item := &model.CulturalItem{
		Title:            r.Title,
		Category:         r.Category,
		Confidence:       r.Confidence,
		Description:      r.Description,
		CulturalContext:  r.CulturalContext,
		HistoricalPeriod: r.HistoricalPeriod,
		Location:         r.Location,
		Significance:     r.Significance,
		CreatedBy:        userID,
	}
	if payload, err := imagedata.Parse(imageBase64); err == nil {
		path, err := p.media.Save("items", payload)
		if err != nil {
			return nil, err
		}
		item.ImagePath = path
	}
	if err := p.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	if err := p.LogAnalysis(ctx, outcome, item.ID); err != nil {
		p.logger.Warn("analysis log not saved", zap.String("item", item.ID), zap.Error(err))
	}
	return item, nil
}
