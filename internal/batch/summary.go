// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pagestamp/pkg/types"
)

// Summary is the YAML form of a BatchResult.
type Summary struct {
	GeneratedAt time.Time     `yaml:"generated_at"`
	InputDir    string        `yaml:"input_dir"`
	OutputDir   string        `yaml:"output_dir"`
	Stamped     int           `yaml:"stamped"`
	Skipped     int           `yaml:"skipped"`
	Failed      int           `yaml:"failed"`
	Total       int           `yaml:"total"`
	Files       []SummaryFile `yaml:"files"`
}

// SummaryFile is one file entry of a Summary.
type SummaryFile struct {
	Input  string            `yaml:"input"`
	Output string            `yaml:"output"`
	Status types.StampStatus `yaml:"status"`
	Pages  int               `yaml:"pages,omitempty"`
	Error  string            `yaml:"error,omitempty"`
}

// NewSummary converts a result for serialization.
func NewSummary(cfg types.StampConfig, r BatchResult, now time.Time) Summary {
	s := Summary{
		GeneratedAt: now.UTC(),
		InputDir:    cfg.InputDir,
		OutputDir:   cfg.OutputDir,
		Stamped:     r.Stamped,
		Skipped:     r.Skipped,
		Failed:      r.Failed,
		Total:       r.Total(),
		Files:       make([]SummaryFile, 0, len(r.Files)),
	}
	for _, f := range r.Files {
		s.Files = append(s.Files, SummaryFile{
			Input:  f.InputPath,
			Output: f.OutputPath,
			Status: f.Status,
			Pages:  f.Pages,
			Error:  f.ErrMessage(),
		})
	}
	return s
}

// WriteSummary marshals s to YAML at path, creating the parent directory.
func WriteSummary(fs afero.Fs, path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating summary directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing summary %s: %w", path, err)
	}
	return nil
}
