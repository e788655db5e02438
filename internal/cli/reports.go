package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cultura/internal/model"
	"github.com/ppiankov/cultura/internal/review"
	"github.com/ppiankov/cultura/internal/store"
)

var (
	reportStatus string
	reviewer     string
	reviewNotes  string
	rejectReport bool
)

// reportsCmd represents the reports command
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Review user reports as an administrator",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports, optionally filtered by status",
	Long: `List reports stored in the catalog.

Example:
  cultura reports list
  cultura reports list --status pending`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := reviewService()
		if err != nil {
			return err
		}
		defer closeFn()

		status := model.ReportStatus(strings.ToUpper(strings.TrimSpace(reportStatus)))
		reports, err := svc.List(cmd.Context(), review.User{ID: reviewer, Admin: true}, status)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Fprintln(os.Stderr, "No reports")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tTYPE\tTITULO\tCATEGORIA\tREPORTED BY\tCREATED")
		for _, r := range reports {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Status, r.Type, r.Title, r.Category.Label(), r.ReportedBy,
				r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var reportsReviewCmd = &cobra.Command{
	Use:   "review <id>",
	Short: "Approve or reject a pending report",
	Long: `Approve (default) or reject a pending report. Approval creates a validated
catalog item and appends the element to the corpus.

Example:
  cultura reports review 5b0c... --notes "verificado con el museo regional"
  cultura reports review 5b0c... --reject --notes "duplicado"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := reviewService()
		if err != nil {
			return err
		}
		defer closeFn()

		decision := review.Decision{Action: review.ActionApprove, Notes: reviewNotes}
		if rejectReport {
			decision.Action = review.ActionReject
		}
		outcome, err := svc.Review(cmd.Context(), review.User{ID: reviewer, Admin: true}, args[0], decision)
		if err != nil {
			return err
		}

		if outcome.Report.Status == model.ReportRejected {
			fmt.Fprintf(os.Stderr, "✓ Report %s rejected\n", outcome.Report.ID)
			return nil
		}
		fmt.Fprintf(os.Stderr, "✓ Report %s approved, item %s created\n", outcome.Report.ID, outcome.Item.ID)
		if outcome.AddedToCorpus {
			fmt.Fprintf(os.Stderr, "✓ %q appended to %s\n", outcome.Report.Title, cfg.Knowledge.CorpusPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsReviewCmd)

	reportsCmd.PersistentFlags().StringVar(&reviewer, "reviewer", "admin", "reviewer recorded on decisions")
	reportsListCmd.Flags().StringVar(&reportStatus, "status", "", "filter by status (pending, approved, rejected)")
	reportsReviewCmd.Flags().StringVar(&reviewNotes, "notes", "", "admin notes")
	reportsReviewCmd.Flags().BoolVar(&rejectReport, "reject", false, "reject instead of approve")
}

// reviewService opens the catalog without a model provider; reviewing needs no
// API key
func reviewService() (*review.Service, func(), error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	svc := review.NewService(review.Deps{
		Repository: st,
		Corpus:     corpusLoader(),
		Images:     store.NewMedia(cfg.Store.MediaDir),
		Logger:     logger.Named("review"),
	})
	return svc, func() { _ = st.Close() }, nil
}
