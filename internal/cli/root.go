package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/cultura/internal/logging"
	"github.com/ppiankov/cultura/internal/model"
)

// Version is the release reported by `cultura version`
const Version = "v0.1.0"

var (
	cfgFile string
	verbose bool

	// Resolved in PersistentPreRunE for every subcommand
	cfg    *model.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cultura",
	Short: "Cultura - Huánuco cultural heritage image analysis",
	Long: `Cultura identifies cultural elements of the Huánuco region of Peru in
photographs using a vision language model.

Each analysis is grounded in a curated corpus of verified elements: the corpus
seeds the prompt with few-shot examples and adjusts the model's confidence when
the answer matches a known element. Results under the confidence threshold are
rejected rather than guessed.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		if verbose {
			loaded.Log.Level = "debug"
		}
		l, err := logging.New(loaded.Log.Level, loaded.Log.Format)
		if err != nil {
			return err
		}
		cfg, logger = loaded, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cultura %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.cultura/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.String("provider", "", "model provider (openai, anthropic, ollama, gemini)")
	flags.String("model", "", "model name")
	flags.String("corpus", "", "verified elements corpus (JSON)")
	flags.String("db", "", "SQLite catalog path")
	flags.String("log-format", "", "log format (console, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("llm.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("llm.model", flags.Lookup("model"))
	_ = viper.BindPFlag("knowledge.corpus_path", flags.Lookup("corpus"))
	_ = viper.BindPFlag("store.path", flags.Lookup("db"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults(viper.GetViper(), model.DefaultConfig())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".cultura"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CULTURA_LLM_MODEL overrides llm.model
	viper.SetEnvPrefix("CULTURA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
