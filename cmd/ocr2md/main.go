// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the ocr2md CLI. It converts PDFs and
// images to Markdown through an OCR provider and keeps a local history of
// past conversions.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ocr2md/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is configured from --verbose and --log-format before any command runs.
var logger = slog.Default()

// rootCmd is the base command for the ocr2md CLI.
var rootCmd = &cobra.Command{
	Use:   "ocr2md",
	Short: "Convert scanned documents to Markdown with OCR",
	Long: `ocr2md uploads PDFs and images to an OCR provider, normalizes whatever
the provider sends back, and writes one Markdown document per source with
YAML frontmatter describing the file and the OCR run.

The provider API key is read from --key, .secrets/mistral-api-key,
OCR2MD_API_KEY, or MISTRAL_API_KEY, in that order. A .env file in the
working directory is loaded first.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(cmd)
		slog.SetDefault(logger)

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./ocr2md.yaml or ~/.config/ocr2md/ocr2md.yaml)")
	rootCmd.PersistentFlags().String("key", "", "OCR provider API key")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("ocr2md")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ocr2md"))
		}
	}

	viper.SetEnvPrefix("OCR2MD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	format, _ := cmd.Flags().GetString("log-format")

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
