// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package overlay builds the single-page footer documents that are stamped
// onto every page of a source PDF.
package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/pdiddy/pagestamp/pkg/types"
)

// Letter page geometry in points.
const (
	LetterWidth  = 612.0
	LetterHeight = 792.0
)

// ErrInvalidPage is returned for page numbers below 1.
var ErrInvalidPage = errors.New("page number must be positive")

// coreFamilies maps accepted family names to the fpdf core font family.
var coreFamilies = map[string]string{
	"helvetica":  "Helvetica",
	"arial":      "Helvetica",
	"sans-serif": "Helvetica",
	"times":      "Times",
	"serif":      "Times",
	"courier":    "Courier",
	"monospace":  "Courier",
}

// Generator renders footer overlays. A Generator is immutable after
// construction and every Generate call draws on a fresh surface, so a single
// Generator can be shared freely.
type Generator struct {
	template string
	family   string
	size     float64
	x, y     float64
	width    float64
	height   float64
}

// Option adjusts a Generator at construction time.
type Option func(*Generator)

// WithPageSize overrides the letter-size overlay page.
func WithPageSize(width, height float64) Option {
	return func(g *Generator) {
		g.width = width
		g.height = height
	}
}

// New creates a Generator from the footer settings of cfg.
func New(cfg types.StampConfig, opts ...Option) (*Generator, error) {
	family, ok := coreFamilies[strings.ToLower(cfg.Font.Family)]
	if !ok {
		return nil, fmt.Errorf("unsupported font family %q (use Helvetica, Times or Courier)", cfg.Font.Family)
	}
	g := &Generator{
		template: cfg.Template,
		family:   family,
		size:     cfg.Font.Size,
		x:        cfg.Footer.X,
		y:        cfg.Footer.Y,
		width:    LetterWidth,
		height:   LetterHeight,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.width <= 0 || g.height <= 0 {
		return nil, fmt.Errorf("invalid overlay page size %vx%v", g.width, g.height)
	}
	if g.template == "" {
		g.template = types.DefaultTemplate
	}
	return g, nil
}

// Text returns the footer string for pageNumber.
func (g *Generator) Text(pageNumber int) string {
	return fmt.Sprintf(g.template, pageNumber)
}

// Generate returns a one-page PDF that contains only the footer text for
// pageNumber, drawn at the configured position.
func (g *Generator) Generate(pageNumber int) ([]byte, error) {
	if pageNumber < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPage, pageNumber)
	}

	// Core fonts are single-byte; fpdf expects cp1252 input for them.
	text, err := charmap.Windows1252.NewEncoder().String(g.Text(pageNumber))
	if err != nil {
		return nil, fmt.Errorf("encoding footer %q: %w", g.Text(pageNumber), err)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: g.width, Ht: g.height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetFont(g.family, "", g.size)
	// fpdf measures y from the top edge.
	pdf.Text(g.x, g.height-g.y, text)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering overlay for page %d: %w", pageNumber, err)
	}
	return buf.Bytes(), nil
}
