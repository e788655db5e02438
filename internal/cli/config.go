package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cultura/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Cultura configuration",
	Long: `Manage Cultura configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CULTURA_*, OPENAI_API_KEY, ANTHROPIC_API_KEY,
   GEMINI_API_KEY, OLLAMA_BASE_URL)
3. Config file (~/.cultura/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Display the configuration after merging defaults, config file, env vars and flags. API keys are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		shown := *cfg
		shown.LLM.APIKey = maskSecret(shown.LLM.APIKey)
		yamlData, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(yamlData)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.cultura/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}
		configPath := filepath.Join(home, ".cultura", "config.yaml")
		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the effective configuration:\n")
		fmt.Printf("  cultura config show\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// loadConfig merges every configuration source into a model.Config
func loadConfig() (*model.Config, error) {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	loaded := model.DefaultConfig()
	if err := viper.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyProviderEnv(loaded, os.Getenv)
	return loaded, nil
}

// setDefaults registers every key of defaults so that CULTURA_* variables
// resolve even when no config file mentions the key
func setDefaults(v *viper.Viper, defaults *model.Config) {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	setTree(v, "", tree)

	// Keys omitted from the YAML rendering when empty
	for _, key := range []string{
		"llm.base_url", "llm.api_key", "llm.http_proxy", "llm.https_proxy", "llm.no_proxy", "cache.disk_dir",
	} {
		v.SetDefault(key, "")
	}
}

func setTree(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			setTree(v, key, sub)
			continue
		}
		v.SetDefault(key, value)
	}
}

// applyProviderEnv fills credentials from the providers' conventional
// variables when the config leaves them empty
func applyProviderEnv(c *model.Config, getenv func(string) string) {
	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case "openai", "":
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = getenv("ANTHROPIC_API_KEY")
		}
	case "gemini", "google":
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = getenv("GEMINI_API_KEY")
		}
	case "ollama":
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = getenv("OLLAMA_BASE_URL")
		}
	}
}

func writeDefaultConfig(configPath string) (err error) {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'cultura config show' to view it, or delete it first to recreate", configPath)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Cultura configuration file\n")
	b.WriteString("#\n")
	b.WriteString("# Configuration hierarchy (highest to lowest priority):\n")
	b.WriteString("#   1. CLI flags\n")
	b.WriteString("#   2. Environment variables (CULTURA_*)\n")
	b.WriteString("#   3. This config file\n")
	b.WriteString("#   4. Built-in defaults\n\n")
	b.Write(yamlData)
	b.WriteString("\n# API keys (recommended to use environment variables instead):\n")
	b.WriteString("#   export OPENAI_API_KEY=sk-...\n")
	b.WriteString("#   export ANTHROPIC_API_KEY=sk-ant-...\n")
	b.WriteString("#   export GEMINI_API_KEY=...\n")
	b.WriteString("#   export OLLAMA_BASE_URL=http://localhost:11434\n")

	if err := os.WriteFile(configPath, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
