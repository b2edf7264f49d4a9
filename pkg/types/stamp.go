// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultSuffix is appended to the base name of every stamped output file.
	DefaultSuffix = "-PROCESADO"

	// DefaultTemplate is the footer text; %d is replaced by the 1-based page number.
	DefaultTemplate = "Página %d"

	// DefaultFontFamily and DefaultFontSize select the footer font.
	DefaultFontFamily = "Helvetica"
	DefaultFontSize   = 12.0

	// DefaultFooterX and DefaultFooterY place the footer baseline, in points,
	// measured from the lower-left corner of the page.
	DefaultFooterX = 500.0
	DefaultFooterY = 10.0
)

// FooterPosition is the (x, y) origin of the footer text in points.
type FooterPosition struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// FontConfig selects the footer font.
type FontConfig struct {
	// Family is a PDF core font family: Helvetica, Times or Courier
	// (the generic names sans-serif, serif and monospace are accepted too).
	Family string `json:"family" yaml:"family"`

	// Size is the font size in points.
	Size float64 `json:"size" yaml:"size"`
}

// StampConfig holds every setting of a page-numbering batch run.
type StampConfig struct {
	// InputDir is scanned (non-recursively) for *.pdf files.
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// OutputDir receives the stamped files. Created if absent.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Suffix is appended to the input base name (name.pdf -> name<Suffix>.pdf).
	Suffix string `json:"suffix" yaml:"suffix"`

	// Template is the footer text with a single %d verb for the page number.
	Template string `json:"template" yaml:"template"`

	Footer FooterPosition `json:"footer" yaml:"footer"`
	Font   FontConfig     `json:"font" yaml:"font"`

	// LogFile, when set, receives a timestamped copy of every status line.
	LogFile string `json:"log_file,omitempty" yaml:"log_file,omitempty"`

	// Ledger, when set, is the SQLite database that records run history.
	Ledger string `json:"ledger,omitempty" yaml:"ledger,omitempty"`

	// Summary, when set, is the path of a YAML summary written after the run.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// DefaultStampConfig returns the configuration used when nothing overrides it.
func DefaultStampConfig() StampConfig {
	return StampConfig{
		InputDir:  "input",
		OutputDir: "output",
		Suffix:    DefaultSuffix,
		Template:  DefaultTemplate,
		Footer:    FooterPosition{X: DefaultFooterX, Y: DefaultFooterY},
		Font:      FontConfig{Family: DefaultFontFamily, Size: DefaultFontSize},
	}
}

// Validate reports the first problem that would make a run meaningless.
func (c StampConfig) Validate() error {
	if c.InputDir == "" {
		return errors.New("input directory is required")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if filepath.Clean(c.InputDir) == filepath.Clean(c.OutputDir) {
		return fmt.Errorf("input and output directory must differ, both are %s", c.InputDir)
	}
	if strings.ContainsAny(c.Suffix, `/\`) {
		return fmt.Errorf("suffix %q must not contain path separators", c.Suffix)
	}
	if n := strings.Count(c.Template, "%d"); n != 1 || strings.Count(c.Template, "%") != 1 {
		return fmt.Errorf("template %q must contain exactly one %%d verb", c.Template)
	}
	if c.Font.Size <= 0 {
		return fmt.Errorf("font size must be positive, got %v", c.Font.Size)
	}
	if c.Footer.X < 0 || c.Footer.Y < 0 {
		return fmt.Errorf("footer position (%v, %v) must not be negative", c.Footer.X, c.Footer.Y)
	}
	return nil
}

// StampStatus is the outcome of processing one input file.
type StampStatus string

const (
	StampDone    StampStatus = "stamped"
	StampSkipped StampStatus = "skipped"
	StampFailed  StampStatus = "failed"
)

// FileResult records what happened to one input file.
type FileResult struct {
	InputPath  string      `json:"input_path" yaml:"input_path"`
	OutputPath string      `json:"output_path" yaml:"output_path"`
	Status     StampStatus `json:"status" yaml:"status"`

	// Pages is the number of pages stamped (zero unless Status is StampDone).
	Pages int `json:"pages" yaml:"pages"`

	// Err is the failure cause when Status is StampFailed.
	Err error `json:"-" yaml:"-"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// ErrMessage returns the failure message, or "" for successful results.
func (r FileResult) ErrMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
