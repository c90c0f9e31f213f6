package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/verity/internal/logging"
	"github.com/ppiankov/verity/internal/model"
)

// Version is set at build time with -ldflags "-X github.com/ppiankov/verity/internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile     string
	verbose     bool
	noCache     bool
	llmProvider string
	llmModel    string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "verity",
	Short: "Verity - trust scoring for news claims",
	Long: `Verity scores how trustworthy a news claim looks by combining
independent signals: a text classifier, published fact-checks,
cross-referencing against reliable outlets, source reputation and an
AI judge.

It also maintains a ranked, paginated gallery of recent headlines,
each scored the same way.

A verdict is an estimate built from the signals that answered, not a
ruling on what is true.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number for Verity.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "verity %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.verity/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.BoolVar(&noCache, "no-cache", false, "disable the claim memo and feed cache")
	flags.StringVar(&llmProvider, "llm-provider", "", "AI judge provider (openai, anthropic, ollama, gemini)")
	flags.StringVar(&llmModel, "llm-model", "", "AI judge model name")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".verity"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match VERITY_*
	viper.SetEnvPrefix("VERITY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnvKeys(viper.GetViper())

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnvKeys makes secrets and common settings visible to Unmarshal when they only exist in the environment
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"llm.provider",
		"llm.model",
		"llm.api_key",
		"llm.base_url",
		"providers.classifier_url",
		"providers.classifier_api_key",
		"providers.fact_check_api_key",
		"providers.news_api_key",
		"server.addr",
		"cache.dir",
	} {
		_ = v.BindEnv(key)
	}
}

// loadConfig merges defaults, the config file, VERITY_* variables, provider key variables and flags
func loadConfig(v *viper.Viper) (model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	applyProviderKeys(&cfg, os.Getenv)

	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	if err := cfg.Scoring.Weights.Validate(); err != nil {
		return cfg, fmt.Errorf("scoring weights: %w", err)
	}
	return cfg, nil
}

// applyProviderKeys fills credentials left empty by the config from the conventional variables
func applyProviderKeys(cfg *model.Config, getenv func(string) string) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = getenv("ANTHROPIC_API_KEY")
		case "gemini", "google":
			cfg.LLM.APIKey = getenv("GEMINI_API_KEY")
		}
	}
	if strings.EqualFold(cfg.LLM.Provider, "ollama") && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = getenv("OLLAMA_BASE_URL")
	}
	if cfg.Providers.FactCheckAPIKey == "" {
		cfg.Providers.FactCheckAPIKey = getenv("GOOGLE_FACT_CHECK_API_KEY")
	}
	if cfg.Providers.NewsAPIKey == "" {
		cfg.Providers.NewsAPIKey = getenv("NEWS_API_KEY")
	}
}

// setup loads configuration and installs the process logger
func setup() (model.Config, *slog.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return cfg, nil, err
	}
	if verbose && !viper.IsSet("log.level") {
		cfg.Log.Level = "debug"
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
