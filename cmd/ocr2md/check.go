// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the OCR provider API key",
	Long: `Check makes a lightweight authenticated call to the OCR provider and
reports whether the configured key (or --key) is accepted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		o, closeFn := newOrchestrator(cmd, cfg)
		defer closeFn()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		res := o.CheckCredential(ctx, "")
		if !res.Valid {
			return fmt.Errorf("API key rejected: %s", res.Error)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
