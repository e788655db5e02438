package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cultura/internal/knowledge"
	"github.com/ppiankov/cultura/internal/model"
	"github.com/ppiankov/cultura/internal/parse"
	"github.com/ppiankov/cultura/internal/prompt"
)

// corpusCmd represents the corpus command
var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect and extend the verified elements corpus",
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List verified elements",
	RunE: func(cmd *cobra.Command, args []string) error {
		elements := corpusLoader().LoadVerifiedElements()
		if len(elements) == 0 {
			fmt.Fprintf(os.Stderr, "Corpus %s is empty or missing\n", cfg.Knowledge.CorpusPath)
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TITULO\tCATEGORIA\tCONFIANZA\tUBICACION")
		for _, e := range elements {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n",
				e.Title, e.Category, e.ConfidenceOr(model.DefaultElementConfidence), e.Location)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "\n%d elements in %s\n", len(elements), cfg.Knowledge.CorpusPath)
		return nil
	},
}

var corpusExamplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "Print the few-shot examples embedded in the prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		examples := corpusLoader().LoadFewShotExamples(cfg.Analysis.MaxFewShot)
		_, err := fmt.Fprintln(cmd.OutOrStdout(), examples)
		return err
	},
}

var corpusPromptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the full analysis prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := prompt.NewBuilder(corpusLoader(), cfg.Analysis.MaxFewShot).Build()
		fmt.Fprintf(os.Stderr, "Prompt version: %s\n\n", prompt.Version)
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	},
}

var addElement struct {
	title, category, description, context, period, location, significance string
	confidence                                                            float64
}

var corpusAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a verified element to the corpus",
	Long: `Append a verified element. Elements whose title is already present are
left untouched.

Example:
  cultura corpus add --title "Pachamanca" --category gastronomia \
    --description "Carnes y tubérculos cocidos bajo tierra con piedras calientes"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		element, err := elementFromFlags()
		if err != nil {
			return err
		}
		added, err := corpusLoader().Append(element)
		if err != nil {
			return err
		}
		if !added {
			fmt.Fprintf(os.Stderr, "Element %q already in corpus\n", element.Title)
			return nil
		}
		fmt.Fprintf(os.Stderr, "✓ Added %q [%s] to %s\n", element.Title, element.Category, cfg.Knowledge.CorpusPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(corpusCmd)
	corpusCmd.AddCommand(corpusListCmd, corpusExamplesCmd, corpusPromptCmd, corpusAddCmd)

	f := corpusAddCmd.Flags()
	f.StringVar(&addElement.title, "title", "", "element title (required)")
	f.StringVar(&addElement.category, "category", "", "category identifier, label or alias (required)")
	f.StringVar(&addElement.description, "description", "", "description")
	f.StringVar(&addElement.context, "context", "", "cultural context")
	f.StringVar(&addElement.period, "period", "", "historical period")
	f.StringVar(&addElement.location, "location", "", "location")
	f.StringVar(&addElement.significance, "significance", "", "cultural significance")
	f.Float64Var(&addElement.confidence, "confidence", model.DefaultElementConfidence, "confidence in [0,1]")
	_ = corpusAddCmd.MarkFlagRequired("title")
	_ = corpusAddCmd.MarkFlagRequired("category")
}

func corpusLoader() *knowledge.Loader {
	return knowledge.NewLoader(cfg.Knowledge.CorpusPath, logger.Named("knowledge"))
}

func elementFromFlags() (model.VerifiedElement, error) {
	title := strings.TrimSpace(addElement.title)
	if title == "" {
		return model.VerifiedElement{}, fmt.Errorf("--title is required")
	}
	if addElement.confidence < 0 || addElement.confidence > 1 {
		return model.VerifiedElement{}, fmt.Errorf("--confidence must be between 0 and 1, got %v", addElement.confidence)
	}
	return model.VerifiedElement{
		Title:            title,
		Category:         parse.NormalizeCategory(addElement.category).Label(),
		Confidence:       model.Float(addElement.confidence),
		Description:      strings.TrimSpace(addElement.description),
		CulturalContext:  strings.TrimSpace(addElement.context),
		HistoricalPeriod: strings.TrimSpace(addElement.period),
		Location:         strings.TrimSpace(addElement.location),
		Significance:     strings.TrimSpace(addElement.significance),
	}, nil
}
