// Package analysis runs the image analysis pipeline: prompt, model call,
// parsing, corpus reconciliation, threshold and caching.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cultura/internal/cache"
	"github.com/ppiankov/cultura/internal/imagedata"
	"github.com/ppiankov/cultura/internal/knowledge"
	"github.com/ppiankov/cultura/internal/llm"
	"github.com/ppiankov/cultura/internal/logging"
	"github.com/ppiankov/cultura/internal/model"
	"github.com/ppiankov/cultura/internal/parse"
	"github.com/ppiankov/cultura/internal/prompt"
	"github.com/ppiankov/cultura/internal/reconcile"
)

const (
	// DefaultMinConfidence rejects results the rubric calls "not Huánuco"
	DefaultMinConfidence = 0.30
	// DefaultCacheTTL keeps accepted results for a day
	DefaultCacheTTL = 24 * time.Hour
)

// Options tunes an Analyzer
type Options struct {
	Model         string  // reported in metadata; the provider's configured model when empty
	MaxTokens     int
	MinConfidence *float64 // nil means DefaultMinConfidence; 0 accepts everything
	MaxFewShot    int
	CacheTTL      time.Duration
}

// OptionsFromConfig maps the application config onto analyzer options
func OptionsFromConfig(cfg *model.Config) Options {
	minConfidence := cfg.Analysis.MinConfidence
	return Options{
		Model:         cfg.LLM.Model,
		MaxTokens:     cfg.LLM.MaxTokens,
		MinConfidence: &minConfidence,
		MaxFewShot:    cfg.Analysis.MaxFewShot,
		CacheTTL:      cfg.Analysis.CacheTTL,
	}
}

// Outcome is a successful analysis together with what produced it
type Outcome struct {
	Result    *model.AnalysisResult
	ImageHash string        // cache key of the canonical payload
	Raw       string        // first model choice, empty on cache hits
	Duration  time.Duration // wall time of the whole call
}

// Analyzer is safe for concurrent use
type Analyzer struct {
	provider   llm.Provider
	prompts    *prompt.Builder
	reconciler *reconcile.Reconciler
	cache      cache.Cache // nil disables caching
	logger     *zap.Logger
	opts       Options
	threshold  float64
}

// NewAnalyzer wires the pipeline. store may be nil.
func NewAnalyzer(provider llm.Provider, source knowledge.Source, store cache.Cache, logger *zap.Logger, opts Options) *Analyzer {
	logger = logging.OrNop(logger)
	threshold := DefaultMinConfidence
	if opts.MinConfidence != nil {
		threshold = *opts.MinConfidence
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &Analyzer{
		provider:   provider,
		prompts:    prompt.NewBuilder(source, opts.MaxFewShot),
		reconciler: reconcile.New(source, logger),
		cache:      store,
		logger:     logger,
		opts:       opts,
		threshold:  threshold,
	}
}

// Prompt returns the prompt the next call would send
func (a *Analyzer) Prompt() string {
	return a.prompts.Build()
}

// AnalyzeImage analyzes a base64 image, plain or data-URL encoded
func (a *Analyzer) AnalyzeImage(ctx context.Context, imageBase64 string, useCache bool) (*model.AnalysisResult, error) {
	out, err := a.Analyze(ctx, imageBase64, useCache)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Analyze is AnalyzeImage with provenance for callers that persist logs
func (a *Analyzer) Analyze(ctx context.Context, imageBase64 string, useCache bool) (*Outcome, error) {
	start := time.Now()

	payload, err := imagedata.Parse(imageBase64)
	if err != nil {
		return nil, &AnalysisError{Message: "invalid image", Err: err}
	}
	key := cache.AnalysisKey(payload.Base64)

	if useCache {
		if hit := a.lookup(key); hit != nil {
			a.logger.Info("analysis served from cache",
				zap.String("title", hit.Title),
				zap.Float64("confidence", hit.Confidence),
				zap.Duration("duration", time.Since(start)))
			return &Outcome{Result: hit, ImageHash: key, Duration: time.Since(start)}, nil
		}
	}

	resp, err := a.provider.Analyze(ctx, llm.VisionRequest{
		Prompt:      a.prompts.Build(),
		ImageBase64: payload.Base64,
		MimeType:    payload.MimeType,
		Model:       a.opts.Model,
		MaxTokens:   a.opts.MaxTokens,
	})
	if err != nil {
		a.logger.Error("model call failed", zap.String("provider", a.provider.Name()), zap.Error(err))
		return nil, &AnalysisError{Message: "model call failed", Err: err}
	}

	draft, err := parse.ParseResponse(resp)
	if err != nil {
		a.logger.Warn("model answer rejected", zap.Error(err))
		return nil, &AnalysisError{Message: "invalid model answer", Err: err}
	}

	result := a.reconciler.Validate(draft)

	if result.Confidence < a.threshold {
		a.logger.Info("analysis below confidence threshold",
			zap.String("title", result.Title),
			zap.Float64("confidence", result.Confidence),
			zap.Float64("threshold", a.threshold),
			zap.Duration("duration", time.Since(start)))
		return nil, &AnalysisError{
			Message:    fmt.Sprintf("analysis rejected (confidence %.2f)", result.Confidence),
			Err:        ErrLowConfidence,
			Reason:     result.Description,
			Confidence: result.Confidence,
		}
	}

	modelName := a.opts.Model
	if modelName == "" {
		modelName = resp.Model
	}
	result.Metadata = model.Metadata{
		Model:         modelName,
		PromptVersion: prompt.Version,
		TokensUsed:    resp.TokensUsed,
		Cached:        false,
	}

	if useCache {
		a.store(key, result)
	}

	a.logger.Info("analysis complete",
		zap.String("title", result.Title),
		zap.String("category", string(result.Category)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("tokens", resp.TokensUsed),
		zap.Duration("duration", time.Since(start)))

	return &Outcome{
		Result:    result,
		ImageHash: key,
		Raw:       resp.Choices[0],
		Duration:  time.Since(start),
	}, nil
}

// lookup returns a cached copy flagged as cached, or nil
func (a *Analyzer) lookup(key string) *model.AnalysisResult {
	if a.cache == nil {
		return nil
	}
	data, ok := a.cache.Get(key)
	if !ok {
		return nil
	}
	var result model.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		a.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return nil
	}
	result.Metadata.Cached = true
	return &result
}

func (a *Analyzer) store(key string, result *model.AnalysisResult) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		a.logger.Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := a.cache.Set(key, data, a.opts.CacheTTL); err != nil {
		a.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
