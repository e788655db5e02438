package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cultura/internal/analysis"
	"github.com/ppiankov/cultura/internal/pipeline"
	"github.com/ppiankov/cultura/internal/render"
)

var (
	outJSON        string
	outMD          string
	analyzeTimeout time.Duration
	noCache        bool
	saveItem       bool
	saveUser       string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Identify the cultural element in one image",
	Long: `Analyze sends one image (local path or http(s) URL) to the configured
vision model and prints the identified cultural element.

Results below the confidence threshold are reported as rejections together
with the model's best guess.

Example:
  cultura analyze pachamanca.jpg
  cultura analyze https://example.org/danza.png --json out/danza.json --md out/danza.md
  cultura analyze kotosh.jpg --provider gemini --model gemini-2.0-flash --save`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "write the result as JSON to this path (default: stdout)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "write the result as Markdown to this path")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the result cache")
	analyzeCmd.Flags().BoolVar(&saveItem, "save", false, "store the result in the catalog as an unvalidated item")
	analyzeCmd.Flags().StringVar(&saveUser, "user", "cli", "user recorded as the item author with --save")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ref := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	p, err := pipeline.New(ctx, cfg, logger, pipeline.Options{Store: saveItem})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", ref)
		fmt.Fprintf(os.Stderr, "Model:     %s/%s\n", p.Provider().Name(), cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Cache:     %v\n\n", !noCache)
	}

	outcome, payload, err := p.AnalyzeRef(ctx, ref, !noCache)
	if err != nil {
		if rejection, low := analysis.LowConfidence(err); low {
			fmt.Fprintln(os.Stderr, render.Rejection(rejection.Confidence, rejection.Reason))
			return nil
		}
		return fmt.Errorf("analysis failed: %w", err)
	}
	result := outcome.Result

	fmt.Fprintln(os.Stderr, render.Summary(result))

	if outJSON != "" {
		if err := render.ToFile(outJSON, result, render.JSON); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ JSON: %s\n", outJSON)
	}
	if outMD != "" {
		if err := render.ToFile(outMD, result, render.Markdown); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown: %s\n", outMD)
	}
	if outJSON == "" && outMD == "" {
		if err := render.JSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	}

	if saveItem {
		item, err := p.Record(ctx, outcome, payload, saveUser)
		if err != nil {
			return fmt.Errorf("save item: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Saved catalog item %s\n", item.ID)
	}
	return nil
}
