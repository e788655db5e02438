package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cultura/internal/analysis"
	"github.com/ppiankov/cultura/internal/pipeline"
	"github.com/ppiankov/cultura/internal/render"
	"github.com/ppiankov/cultura/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchNoCache bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many images listed in a file",
	Long: `Batch analyzes every image listed in the input file concurrently:
- One image path or URL per line; blank lines and # comments are skipped
- Duplicate entries are analyzed once
- Model calls are paced per provider endpoint (rate_limiting in config)
- A JSON and a Markdown report are written per accepted image

Example:
  cultura batch images.txt
  cultura batch images.txt --concurrency 8 --output-dir ./reportes
  cultura batch images.txt --timeout 30m --no-cache`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./cultura-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchNoCache, "no-cache", false, "bypass the result cache")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.Workers
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Cultura Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Rate limit:   %.1f req/s (burst %d)\n", cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	fmt.Fprintf(os.Stderr, "  Model:        %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.New(ctx, cfg, logger, pipeline.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	results, err := p.BatchProcessor(workers, !batchNoCache).ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	used := make(map[string]int)
	for _, result := range results {
		if result.Error != nil {
			if rejection, low := analysis.LowConfidence(result.Error); low {
				fmt.Fprintf(os.Stderr, "%s  %s\n", render.Rejection(rejection.Confidence, rejection.Reason), result.Ref)
				continue
			}
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Ref, result.Error)
			continue
		}

		base := uniqueName(used, sanitizeFilename(result.Ref))
		jsonPath := filepath.Join(outputDir, base+".json")
		mdPath := filepath.Join(outputDir, base+".md")
		if err := render.ToFile(jsonPath, result.Outcome.Result, render.JSON); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Ref, err)
			continue
		}
		if err := render.ToFile(mdPath, result.Outcome.Result, render.Markdown); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Ref, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s  %s\n", render.Summary(result.Outcome.Result), result.Ref)
	}

	summary := worker.Summarize(results)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:           %d images\n", summary.Total)
	fmt.Fprintf(os.Stderr, "  Identified:      %d (%d from cache)\n", summary.Succeeded, summary.Cached)
	fmt.Fprintf(os.Stderr, "  Low confidence:  %d\n", summary.LowConfidence)
	fmt.Fprintf(os.Stderr, "  Failures:        %d\n", summary.Failed)
	fmt.Fprintf(os.Stderr, "  Output:          %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if summary.Total > 0 && summary.Failed == summary.Total {
		return fmt.Errorf("all %d images failed", summary.Total)
	}
	return nil
}

// sanitizeFilename turns an image path or URL into a safe report file stem
func sanitizeFilename(ref string) string {
	s := ref
	if i := strings.IndexAny(s, "?#"); i >= 0 && strings.Contains(s, "://") {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, filepath.Ext(s))

	s = strings.Map(func(r rune) rune {
		switch r {
		case ':', '*', '?', '"', '<', '>', '|', '/', '\\':
			return '_'
		case ' ':
			return '-'
		}
		return r
	}, s)

	if runes := []rune(s); len(runes) > 100 {
		s = string(runes[:100])
	}
	if s == "" || s == "." || s == ".." {
		return "image"
	}
	return s
}

// uniqueName suffixes repeated stems so reports do not overwrite each other
func uniqueName(used map[string]int, stem string) string {
	n := used[stem]
	used[stem] = n + 1
	if n == 0 {
		return stem
	}
	return fmt.Sprintf("%s-%d", stem, n+1)
}
