// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pagestamp/internal/batch"
	"github.com/pdiddy/pagestamp/internal/compose"
	"github.com/pdiddy/pagestamp/internal/ledger"
	"github.com/pdiddy/pagestamp/internal/logging"
	"github.com/pdiddy/pagestamp/internal/overlay"
	"github.com/pdiddy/pagestamp/internal/report"
	"github.com/pdiddy/pagestamp/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Number the pages of every PDF in the input directory",
	Long: `Run stamps a footer on every page of every *.pdf file found directly in
the input directory and saves each result in the output directory. Inputs
whose output file already exists are skipped. A failing file is reported
and the batch moves on to the next one.`,
	RunE: runStamp,
}

// flagKeys maps run flags to their configuration keys.
var flagKeys = map[string]string{
	"input-dir":  "input_dir",
	"output-dir": "output_dir",
	"suffix":     "suffix",
	"template":   "template",
	"footer-x":   "footer.x",
	"footer-y":   "footer.y",
	"font":       "font.family",
	"font-size":  "font.size",
	"log-file":   "log_file",
	"ledger":     "ledger",
	"summary":    "summary",
}

func init() {
	def := types.DefaultStampConfig()
	f := runCmd.Flags()
	f.String("input-dir", def.InputDir, "directory containing the PDFs to stamp")
	f.String("output-dir", def.OutputDir, "directory that receives the stamped PDFs")
	f.String("suffix", def.Suffix, "suffix appended to output file names")
	f.String("template", def.Template, "footer text, %d is the page number")
	f.Float64("footer-x", def.Footer.X, "footer x position in points from the left edge")
	f.Float64("footer-y", def.Footer.Y, "footer y position in points from the bottom edge")
	f.String("font", def.Font.Family, "footer font family: Helvetica, Times or Courier")
	f.Float64("font-size", def.Font.Size, "footer font size in points")
	f.String("log-file", "", "append a timestamped copy of all messages to this file")
	f.String("ledger", "", "record run history in this SQLite database")
	f.String("summary", "", "write a YAML run summary to this path")

	for flag, key := range flagKeys {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(runCmd)
}

// stampConfigFrom reads a StampConfig from v, falling back to defaults for
// keys that no source sets.
func stampConfigFrom(v *viper.Viper) types.StampConfig {
	def := types.DefaultStampConfig()
	v.SetDefault("input_dir", def.InputDir)
	v.SetDefault("output_dir", def.OutputDir)
	v.SetDefault("suffix", def.Suffix)
	v.SetDefault("template", def.Template)
	v.SetDefault("footer.x", def.Footer.X)
	v.SetDefault("footer.y", def.Footer.Y)
	v.SetDefault("font.family", def.Font.Family)
	v.SetDefault("font.size", def.Font.Size)

	return types.StampConfig{
		InputDir:  v.GetString("input_dir"),
		OutputDir: v.GetString("output_dir"),
		Suffix:    v.GetString("suffix"),
		Template:  v.GetString("template"),
		Footer: types.FooterPosition{
			X: v.GetFloat64("footer.x"),
			Y: v.GetFloat64("footer.y"),
		},
		Font: types.FontConfig{
			Family: v.GetString("font.family"),
			Size:   v.GetFloat64("font.size"),
		},
		LogFile: v.GetString("log_file"),
		Ledger:  v.GetString("ledger"),
		Summary: v.GetString("summary"),
	}
}

func runStamp(cmd *cobra.Command, args []string) error {
	cfg := stampConfigFrom(viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var logger *logging.Logger
	if cfg.LogFile != "" {
		l, err := logging.Open(cfg.LogFile)
		if err != nil {
			return err
		}
		defer l.Close()
		logger = l
	}

	gen, err := overlay.New(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fs := afero.NewOsFs()
	stamper := compose.NewStamper(compose.NewPDFCPU(), gen)
	proc := batch.NewProcessor(fs, stamper, report.New(cmd.OutOrStdout(), logger), cfg.Suffix)

	started := time.Now()
	result, err := proc.Run(cfg)
	if err != nil {
		return err
	}

	// Per-file failures are already reported; they do not change the exit code.
	if cfg.Summary != "" {
		if err := batch.WriteSummary(fs, cfg.Summary, batch.NewSummary(cfg, result, time.Now())); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	if cfg.Ledger != "" {
		if err := recordRun(cmd.Context(), cfg, result, started); err != nil {
			fmt.Fprintf(os.Stderr, "warning: recording run history: %v\n", err)
		}
	}
	return nil
}

func recordRun(ctx context.Context, cfg types.StampConfig, result batch.BatchResult, started time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return err
	}
	defer l.Close()

	runID, err := l.BeginRun(ctx, cfg, started)
	if err != nil {
		return err
	}
	return l.FinishRun(ctx, runID, result.Files, time.Now())
}
