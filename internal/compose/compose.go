// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compose merges footer overlays onto the pages of a source PDF.
//
// The PDF engine sits behind Backend and Document so the batch logic never
// touches library types. Stamper drives one file through
// READING -> MERGING(i) -> SERIALIZING and either completes or fails as a
// whole; nothing is written to w before every page has been merged.
package compose

import (
	"errors"
	"fmt"
	"io"
)

// Error taxonomy. Every error returned by Stamper wraps exactly one of these.
var (
	ErrUnreadableSource    = errors.New("unreadable source")
	ErrOverlayConstruction = errors.New("overlay construction failed")
	ErrOutputWrite         = errors.New("output write failed")
)

// Backend opens source documents.
type Backend interface {
	// Open parses the PDF read from rs. rs must stay open until the
	// Document has been written.
	Open(rs io.ReadSeeker) (Document, error)
}

// Document is an open, mutable PDF.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// MergeOverlay paints the single page of overlay on top of page pageNr
	// (1-based), keeping the page's geometry and original content.
	MergeOverlay(pageNr int, overlay []byte) error

	// Write serializes the document to w.
	Write(w io.Writer) error
}

// OverlaySource produces the overlay PDF for a 1-based page number.
type OverlaySource interface {
	Generate(pageNumber int) ([]byte, error)
}

// Stamper numbers every page of a document.
type Stamper struct {
	backend  Backend
	overlays OverlaySource
}

// NewStamper wires a backend to an overlay source.
func NewStamper(b Backend, o OverlaySource) *Stamper {
	return &Stamper{backend: b, overlays: o}
}

// Stamp reads a PDF from rs, merges overlay i onto page i for every page in
// order, and writes the result to w. It returns the number of pages stamped.
func (s *Stamper) Stamp(rs io.ReadSeeker, w io.Writer) (int, error) {
	doc, err := s.backend.Open(rs)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnreadableSource, err)
	}

	pages := doc.PageCount()
	if pages < 1 {
		return 0, fmt.Errorf("%w: document has no pages", ErrUnreadableSource)
	}

	for i := 1; i <= pages; i++ {
		overlay, err := s.overlays.Generate(i)
		if err != nil {
			return 0, fmt.Errorf("%w: page %d: %w", ErrOverlayConstruction, i, err)
		}
		if err := doc.MergeOverlay(i, overlay); err != nil {
			return 0, fmt.Errorf("%w: merging page %d: %w", ErrOverlayConstruction, i, err)
		}
	}

	if err := doc.Write(w); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	return pages, nil
}
