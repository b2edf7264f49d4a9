// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch stamps page numbers onto every PDF of an input directory,
// skipping inputs whose output already exists.
package batch

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pdiddy/pagestamp/internal/compose"
	"github.com/pdiddy/pagestamp/internal/report"
	"github.com/pdiddy/pagestamp/pkg/types"
)

const (
	pdfExt     = ".pdf"
	outputMode = 0o644
)

// Stamper numbers the pages of one PDF. compose.Stamper implements it.
type Stamper interface {
	// Stamp reads a PDF from rs and writes the stamped document to w.
	Stamp(rs io.ReadSeeker, w io.Writer) (int, error)
}

// BatchResult holds the outcome of a batch run.
type BatchResult struct {
	Stamped int
	Skipped int
	Failed  int
	Files   []types.FileResult
}

// Total returns the number of input files seen.
func (r BatchResult) Total() int {
	return r.Stamped + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

func (r *BatchResult) add(res types.FileResult) {
	switch res.Status {
	case types.StampDone:
		r.Stamped++
	case types.StampSkipped:
		r.Skipped++
	case types.StampFailed:
		r.Failed++
	}
	r.Files = append(r.Files, res)
}

// Processor runs files through a Stamper on a filesystem.
type Processor struct {
	fs      afero.Fs
	stamper Stamper
	report  *report.Reporter
	suffix  string
}

// NewProcessor returns a Processor that names outputs name<suffix>.pdf.
func NewProcessor(fs afero.Fs, s Stamper, r *report.Reporter, suffix string) *Processor {
	return &Processor{fs: fs, stamper: s, report: r, suffix: suffix}
}

// ListInputs returns the PDF files directly inside dir, sorted by name.
// Subdirectories and files with other extensions are ignored. The extension
// match ignores case, so SCAN.PDF is listed alongside scan.pdf.
func ListInputs(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), pdfExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// OutputPath maps dir/name.pdf to outputDir/name<suffix>.pdf.
func OutputPath(outputDir, inputPath, suffix string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+suffix+pdfExt)
}

// Run stamps every PDF in cfg.InputDir into cfg.OutputDir. Per-file failures
// are reported and counted; only an unreadable input directory is an error.
func (p *Processor) Run(cfg types.StampConfig) (BatchResult, error) {
	p.report.Start(cfg.InputDir)
	inputs, err := ListInputs(p.fs, cfg.InputDir)
	if err != nil {
		return BatchResult{}, err
	}
	return p.ProcessBatch(inputs, cfg.OutputDir), nil
}

// ProcessBatch processes inputs in order and prints a summary. One file's
// failure never stops the batch.
func (p *Processor) ProcessBatch(inputs []string, outputDir string) BatchResult {
	if err := p.ensureDir(outputDir); err != nil {
		p.report.Failed(outputDir, err)
	}

	var result BatchResult
	for _, in := range inputs {
		result.add(p.ProcessFile(in, outputDir))
	}
	p.report.Summary(result.Stamped, result.Skipped, result.Failed)
	return result
}

// ProcessFile stamps a single input unless its output already exists. The
// output appears on disk only once fully written; on failure nothing is left
// behind.
func (p *Processor) ProcessFile(inputPath, outputDir string) (res types.FileResult) {
	start := time.Now()
	name := filepath.Base(inputPath)
	outPath := OutputPath(outputDir, inputPath, p.suffix)
	res = types.FileResult{InputPath: inputPath, OutputPath: outPath}

	defer func() {
		if v := recover(); v != nil {
			res = p.fail(res, name, fmt.Errorf("panic: %v", v))
		}
		res.Duration = time.Since(start)
	}()

	exists, err := afero.Exists(p.fs, outPath)
	if err != nil {
		return p.fail(res, name, fmt.Errorf("checking %s: %w", outPath, err))
	}
	if exists {
		p.report.Skipped(name)
		res.Status = types.StampSkipped
		return res
	}

	if err := p.ensureDir(filepath.Dir(outPath)); err != nil {
		return p.fail(res, name, fmt.Errorf("%w: %w", compose.ErrOutputWrite, err))
	}

	p.report.Processing(inputPath, outPath)
	pages, err := p.stampFile(inputPath, outPath)
	if err != nil {
		return p.fail(res, name, err)
	}

	res.Status = types.StampDone
	res.Pages = pages
	p.report.Saved(outPath, pages)
	return res
}

func (p *Processor) fail(res types.FileResult, name string, err error) types.FileResult {
	p.report.Failed(name, err)
	res.Status = types.StampFailed
	res.Pages = 0
	res.Err = err
	return res
}

// stampFile writes into a temporary sibling of outPath and renames it into
// place. Both handles are closed and the temporary removed on every path.
func (p *Processor) stampFile(inputPath, outPath string) (int, error) {
	src, err := p.fs.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("%w: opening %s: %w", compose.ErrUnreadableSource, inputPath, err)
	}
	defer src.Close()

	tmp, err := afero.TempFile(p.fs, filepath.Dir(outPath), "."+filepath.Base(outPath)+"-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("%w: creating %s: %w", compose.ErrOutputWrite, outPath, err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			p.fs.Remove(tmp.Name())
		}
	}()

	pages, err := p.stamper.Stamp(src, tmp)
	if err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("%w: closing %s: %w", compose.ErrOutputWrite, tmp.Name(), err)
	}
	// TempFile creates 0600; outputs are ordinary shared documents.
	if err := p.fs.Chmod(tmp.Name(), outputMode); err != nil {
		return 0, fmt.Errorf("%w: setting mode on %s: %w", compose.ErrOutputWrite, tmp.Name(), err)
	}
	if err := p.fs.Rename(tmp.Name(), outPath); err != nil {
		return 0, fmt.Errorf("%w: renaming into %s: %w", compose.ErrOutputWrite, outPath, err)
	}
	committed = true
	return pages, nil
}

func (p *Processor) ensureDir(dir string) error {
	ok, err := afero.DirExists(p.fs, dir)
	if err != nil {
		return fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if ok {
		return nil
	}
	if err := p.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	p.report.FolderCreated(dir)
	return nil
}
