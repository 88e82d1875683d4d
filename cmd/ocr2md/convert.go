// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ocr2md/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert PDFs and images to Markdown",
	Long: `Convert sends each file to the OCR provider and writes <name>.md next
to the source, or into --out-dir. Existing Markdown is never overwritten.
Failed conversions write <name>.error.md with the error report.

With --inline the single file is converted in memory and the Markdown is
printed to stdout (or the full result as JSON with --json).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	o, closeFn := newOrchestrator(cmd, cfg)
	defer closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := conversionOptions(cmd)

	inline, _ := cmd.Flags().GetBool("inline")
	if inline {
		if len(args) != 1 {
			return fmt.Errorf("--inline takes exactly one file")
		}
		return runInline(ctx, cmd, o.ConvertInline, args[0], opts)
	}

	outDir, _ := cmd.Flags().GetString("out-dir")
	if outDir == "" {
		outDir = cfg.Conversion.OutputDir
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Conversion.Concurrency
	}

	result := o.ConvertBatch(ctx, args, outDir, opts, concurrency, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}

type inlineFunc func(ctx context.Context, data []byte, opts types.Options) types.InlineResult

func runInline(ctx context.Context, cmd *cobra.Command, convertInline inlineFunc, path string, opts types.Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if opts.Name == "" {
		opts.Name = filepath.Base(path)
	}

	res := convertInline(ctx, data, opts)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), res.Content)
	}

	if !res.Success {
		return fmt.Errorf("converting %s: %s", path, res.Error)
	}
	return nil
}

func conversionOptions(cmd *cobra.Command) types.Options {
	var opts types.Options
	opts.Language, _ = cmd.Flags().GetString("language")
	opts.Title, _ = cmd.Flags().GetString("title")
	opts.Model, _ = cmd.Flags().GetString("model")
	opts.Name, _ = cmd.Flags().GetString("name")
	opts.IncludeImages, _ = cmd.Flags().GetBool("include-images")
	return opts
}

func init() {
	convertCmd.Flags().String("out-dir", "", "directory for Markdown output (default: next to each source)")
	convertCmd.Flags().String("language", "", "language hint reported in the document")
	convertCmd.Flags().String("title", "", "document title override")
	convertCmd.Flags().String("model", "", "OCR model override")
	convertCmd.Flags().String("name", "", "file name reported to the provider (inline only)")
	convertCmd.Flags().Bool("include-images", false, "ask the provider for embedded images")
	convertCmd.Flags().Int("concurrency", 0, "files converted at once (default from config)")
	convertCmd.Flags().Bool("inline", false, "convert one file in memory and print the result")
	convertCmd.Flags().Bool("json", false, "with --inline, print the full result as JSON")

	rootCmd.AddCommand(convertCmd)
}
