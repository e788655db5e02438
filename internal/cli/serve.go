package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/cultura/internal/httpapi"
	"github.com/ppiankov/cultura/internal/pipeline"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis and review HTTP API",
	Long: `Serve exposes image analysis, the catalog and the report workflow over
HTTP. Caller identity is read from the X-User-ID and X-User-Role headers set by
an authenticating proxy in front of the server.

Example:
  cultura serve --addr :8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := pipeline.New(ctx, cfg, logger, pipeline.Options{Store: true, Watch: true})
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		srv := httpapi.NewServer(httpapi.Deps{
			Analyzer: p.Analyzer(),
			Catalog:  p.Store(),
			Reviews:  p.Reviews(),
			Recorder: p,
			Logger:   logger.Named("http"),
		})
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
