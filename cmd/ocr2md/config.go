// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ocr2md/internal/convert"
	"github.com/pdiddy/ocr2md/internal/history"
	"github.com/pdiddy/ocr2md/internal/metadata"
	"github.com/pdiddy/ocr2md/internal/provider"
	"github.com/pdiddy/ocr2md/internal/secrets"
	"github.com/pdiddy/ocr2md/internal/storage"
	"github.com/pdiddy/ocr2md/pkg/types"
)

// setDefaults registers every config key so environment overrides reach
// viper.Unmarshal.
func setDefaults() {
	viper.SetDefault("provider.timeout", 5*time.Minute)
	viper.SetDefault("provider.user_agent", "ocr2md/"+version)
	viper.SetDefault("provider.base_url", "https://api.mistral.ai/v1")
	viper.SetDefault("provider.api_key", "")
	viper.SetDefault("provider.model", "mistral-ocr-latest")
	viper.SetDefault("provider.signed_url_expiry", 24)
	viper.SetDefault("provider.rate_limit_retries", 0)
	viper.SetDefault("provider.requests_per_second", 0)

	viper.SetDefault("conversion.temp_root", "")
	viper.SetDefault("conversion.output_dir", "")
	viper.SetDefault("conversion.max_finished_jobs", convert.DefaultMaxFinishedJobs)
	viper.SetDefault("conversion.concurrency", 2)

	viper.SetDefault("history.dir", ".ocr2md")
}

func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newOrchestrator wires the provider client, stores, and history ledger from
// config. A key found by secrets.ProviderKey wins over provider.api_key in
// the config file. The returned close func releases the history database.
func newOrchestrator(cmd *cobra.Command, cfg types.Config) (*convert.Orchestrator, func()) {
	flagKey, _ := cmd.Flags().GetString("key")
	if key := secrets.ProviderKey(flagKey, loadedSecrets); key != "" {
		cfg.Provider.APIKey = key
	}

	client := provider.New(cfg.Provider)

	deps := convert.Deps{
		Provider: client,
		Metadata: metadata.NewExtractor(logger),
		Store:    storage.FS{Root: cfg.Conversion.TempRoot},
		Logger:   logger,
	}

	closeFn := func() {}
	if cfg.History.Dir != "" {
		store, err := history.Open(cfg.History.Dir)
		if err != nil {
			logger.Warn("conversion history disabled", "dir", cfg.History.Dir, "error", err)
		} else {
			deps.Recorder = store
			closeFn = func() { store.Close() }
		}
	}

	o := convert.New(deps, convert.WithJobStore(convert.NewJobStore(cfg.Conversion.MaxFinishedJobs)))
	return o, closeFn
}
