// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pagestamp/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent file outcomes recorded in the run ledger",
	Long: `History lists the latest per-file outcomes stored by "pagestamp run
--ledger". The ledger is informational only; skipping is always decided by
whether the output file exists.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("ledger", "", "SQLite run ledger (defaults to the configured ledger)")
	historyCmd.Flags().Int("limit", 20, "maximum number of entries")
	historyCmd.Flags().Bool("json", false, "output entries as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("ledger")
	if path == "" {
		path = viper.GetString("ledger")
	}
	if path == "" {
		return fmt.Errorf("no ledger configured: pass --ledger or set ledger in the config file")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	entries, err := l.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	return formatHistory(cmd.OutOrStdout(), entries, jsonOutput)
}

func formatHistory(w io.Writer, entries []ledger.Entry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No history recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-5s  %-8s  %-5s  %-20s  %s\n", "Run", "Status", "Pages", "Recorded", "Input")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, e := range entries {
		line := fmt.Sprintf("%-5d  %-8s  %-5d  %-20s  %s", e.RunID, e.Status, e.Pages,
			e.RecordedAt.Local().Format("2006-01-02 15:04:05"), e.InputPath)
		if e.Error != "" {
			line += "  (" + e.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
