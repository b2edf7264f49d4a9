// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report prints operator-facing progress messages for a batch run.
package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/pagestamp/internal/logging"
)

// Reporter writes styled status lines to a console writer and mirrors them,
// unstyled, to an optional log file. Styling degrades to plain text when the
// writer is not a terminal.
type Reporter struct {
	w   io.Writer
	log *logging.Logger

	info    lipgloss.Style
	ok      lipgloss.Style
	skip    lipgloss.Style
	fail    lipgloss.Style
	summary lipgloss.Style
}

// New returns a Reporter writing to w. log may be nil.
func New(w io.Writer, log *logging.Logger) *Reporter {
	r := lipgloss.NewRenderer(w)
	return &Reporter{
		w:       w,
		log:     log,
		info:    r.NewStyle(),
		ok:      r.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
		skip:    r.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		summary: r.NewStyle().Bold(true),
	}
}

func (r *Reporter) line(style lipgloss.Style, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.w, style.Render(msg))
	r.log.Printf("%s", msg)
}

// Start announces the beginning of a batch.
func (r *Reporter) Start(inputDir string) {
	r.line(r.info, "🔄 Starting PDF processing in %s", inputDir)
}

// FolderCreated reports a directory created on the operator's behalf.
func (r *Reporter) FolderCreated(dir string) {
	r.line(r.ok, "✅ Created folder: %s", dir)
}

// Processing reports the start of one file and where it will be saved.
func (r *Reporter) Processing(input, output string) {
	r.line(r.info, "📄 Processing: %s", input)
	r.line(r.info, "💾 Saving to: %s", output)
}

// Saved reports a successfully written output file.
func (r *Reporter) Saved(output string, pages int) {
	r.line(r.ok, "✅ Page numbers added to %d page(s), saved as '%s'", pages, output)
}

// Skipped reports an input whose output already exists.
func (r *Reporter) Skipped(name string) {
	r.line(r.skip, "⚡ '%s' was already processed, skipping", name)
}

// Failed reports a file that could not be stamped or saved.
func (r *Reporter) Failed(name string, err error) {
	r.line(r.fail, "⚠️  Error processing '%s': %v", name, err)
}

// Summary prints the closing counts of a batch.
func (r *Reporter) Summary(stamped, skipped, failed int) {
	fmt.Fprintln(r.w)
	r.line(r.summary, "Batch summary: %d stamped, %d skipped, %d failed (total: %d)",
		stamped, skipped, failed, stamped+skipped+failed)
	if failed > 0 {
		r.line(r.fail, "⚠️  Processing finished with %d failure(s)", failed)
		return
	}
	r.line(r.ok, "✅ Processing finished successfully")
}
