package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/cultura/internal/analysis"
	"github.com/ppiankov/cultura/internal/logging"
)

// Analyzer analyzes one base64 image
type Analyzer interface {
	Analyze(ctx context.Context, imageBase64 string, useCache bool) (*analysis.Outcome, error)
}

// ImageLoader turns an image reference (file path or URL) into a base64
// payload
type ImageLoader interface {
	Load(ctx context.Context, ref string) (string, error)
}

// AnalyzeJob analyzes the image at Ref
type AnalyzeJob struct {
	Ref       string
	processor *BatchProcessor
}

// Execute executes the analysis job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	b := j.processor
	res := &ImageResult{Ref: j.Ref}

	payload, err := b.loader.Load(ctx, j.Ref)
	if err != nil {
		res.Error = fmt.Errorf("load image: %w", err)
		return res
	}

	if err := b.limiter.Wait(ctx, b.opts.Endpoint); err != nil {
		res.Error = fmt.Errorf("rate limit: %w", err)
		return res
	}

	outcome, err := b.analyzer.Analyze(ctx, payload, b.opts.UseCache)
	if err != nil {
		res.Error = err
		res.LowConfidence = analysis.IsLowConfidence(err)
		return res
	}
	res.Outcome = outcome
	return res
}

// ImageResult is the outcome for one image of a batch
type ImageResult struct {
	Ref           string
	Outcome       *analysis.Outcome
	LowConfidence bool // Error is a low-confidence rejection, not a failure
	Error         error
}

// GetError returns the error from the image result
func (r *ImageResult) GetError() error {
	return r.Error
}

// Summary counts batch outcomes
type Summary struct {
	Total         int
	Succeeded     int
	LowConfidence int
	Failed        int
	Cached        int
}

// Summarize tallies results
func Summarize(results []*ImageResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Error == nil:
			s.Succeeded++
			if r.Outcome != nil && r.Outcome.Result.Metadata.Cached {
				s.Cached++
			}
		case r.LowConfidence:
			s.LowConfidence++
		default:
			s.Failed++
		}
	}
	return s
}

// BatchOptions tunes a batch run
type BatchOptions struct {
	Concurrency       int
	RequestsPerSecond float64 // Non-positive disables pacing
	Burst             int
	Endpoint          string // Provider endpoint used as the rate-limit key
	UseCache          bool
}

// BatchProcessor analyzes many images concurrently
type BatchProcessor struct {
	analyzer Analyzer
	loader   ImageLoader
	limiter  *Limiter
	opts     BatchOptions
	logger   *zap.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, loader ImageLoader, opts BatchOptions, logger *zap.Logger) *BatchProcessor {
	return &BatchProcessor{
		analyzer: analyzer,
		loader:   loader,
		limiter:  NewLimiter(opts.RequestsPerSecond, opts.Burst),
		opts:     opts,
		logger:   logging.OrNop(logger),
	}
}

// ProcessRefs analyzes every image reference concurrently. Results follow
// the order of refs; references skipped by cancellation are reported with
// the context error.
func (b *BatchProcessor) ProcessRefs(ctx context.Context, refs []string) []*ImageResult {
	if len(refs) == 0 {
		return []*ImageResult{}
	}

	pool := NewPool(ctx, b.opts.Concurrency)
	pool.Start()

	submitted := 0
	for _, ref := range refs {
		if !pool.Submit(&AnalyzeJob{Ref: ref, processor: b}) {
			break
		}
		submitted++
	}

	done := make(map[string]*ImageResult, len(refs))
	for _, result := range pool.Wait() {
		r := result.(*ImageResult)
		done[r.Ref] = r
	}

	results := make([]*ImageResult, 0, len(refs))
	for _, ref := range refs {
		r, ok := done[ref]
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			r = &ImageResult{Ref: ref, Error: err}
		}
		results = append(results, r)
	}

	s := Summarize(results)
	b.logger.Info("batch complete",
		zap.Int("total", s.Total),
		zap.Int("submitted", submitted),
		zap.Int("succeeded", s.Succeeded),
		zap.Int("low_confidence", s.LowConfidence),
		zap.Int("failed", s.Failed))
	return results
}

// ProcessFile reads image references from a file and analyzes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ImageResult, error) {
	refs, err := ReadRefsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read image list: %w", err)
	}

	return b.ProcessRefs(ctx, refs), nil
}

// ReadRefsFromFile reads image references from a file (one per line).
// Blank lines and # comments are skipped and duplicates dropped.
func ReadRefsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var refs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			refs = append(refs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return refs, nil
}
