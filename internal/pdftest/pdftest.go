// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftest builds small real PDFs and inspects stamped output. It is
// used by tests and by the mage Sample target.
package pdftest

import (
	"bytes"
	"fmt"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// BodyText is the line drawn on page n of a generated document.
func BodyText(n int) string {
	return fmt.Sprintf("original content page %d", n)
}

// NewPDF returns a document of the given page count and fpdf size name
// ("Letter", "A4", ...). Page n carries BodyText(n) and a rectangle.
func NewPDF(pages int, size string) ([]byte, error) {
	pdf := fpdf.New("P", "pt", size, "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 14)
	for n := 1; n <= pages; n++ {
		pdf.AddPage()
		pdf.Text(72, 72, BodyText(n))
		pdf.Rect(72, 100, 200, 80, "D")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in data.
func PageCount(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), config())
}

// PageDims returns the page dimensions of data.
func PageDims(data []byte) ([]types.Dim, error) {
	return api.PageDims(bytes.NewReader(data), config())
}

// Rotate returns data with every page rotated by degrees.
func Rotate(data []byte, degrees int) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Rotate(bytes.NewReader(data), &buf, degrees, nil, config()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SetCropBox returns data with the crop box of every page set to box.
func SetCropBox(data []byte, box types.Rectangle) ([]byte, error) {
	ctx, err := readContext(data)
	if err != nil {
		return nil, err
	}
	for n := 1; n <= ctx.PageCount; n++ {
		d, _, _, err := ctx.PageDict(n, false)
		if err != nil {
			return nil, err
		}
		d.Update("CropBox", box.Array())
	}
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PageBoxes returns the effective media box and crop box of page pageNr.
// The crop box is nil when the page does not set one.
func PageBoxes(data []byte, pageNr int) (media, crop *types.Rectangle, err error) {
	ctx, err := readContext(data)
	if err != nil {
		return nil, nil, err
	}
	_, _, inh, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, nil, err
	}
	return inh.MediaBox, inh.CropBox, nil
}

// PageRotation returns the effective /Rotate value of page pageNr.
func PageRotation(data []byte, pageNr int) (int, error) {
	ctx, err := readContext(data)
	if err != nil {
		return 0, err
	}
	_, _, inh, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return 0, err
	}
	if inh == nil {
		return 0, nil
	}
	return inh.Rotate, nil
}

// PageContent returns the decoded content streams of page pageNr followed by
// the content of every form XObject the page references, recursively. The
// result is raw PDF operator text, so strings drawn with core fonts appear
// as cp1252 bytes.
func PageContent(data []byte, pageNr int) (string, error) {
	ctx, err := readContext(data)
	if err != nil {
		return "", err
	}
	d, _, _, err := ctx.PageDict(pageNr, true)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if contents, ok := d.Find("Contents"); ok {
		if err := appendStreams(ctx, contents, &buf); err != nil {
			return "", err
		}
	}
	if res, ok := d.Find("Resources"); ok {
		if err := appendForms(ctx, res, &buf, 0); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func readContext(data []byte) (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), config())
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

func appendStreams(ctx *model.Context, o types.Object, buf *bytes.Buffer) error {
	switch obj := o.(type) {
	case types.IndirectRef:
		deref, err := ctx.Dereference(obj)
		if err != nil {
			return err
		}
		return appendStreams(ctx, deref, buf)
	case types.StreamDict:
		if err := obj.Decode(); err != nil {
			return err
		}
		buf.Write(obj.Content)
		buf.WriteByte('\n')
	case types.Array:
		for _, item := range obj {
			if err := appendStreams(ctx, item, buf); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendForms(ctx *model.Context, res types.Object, buf *bytes.Buffer, depth int) error {
	if depth > 4 {
		return nil
	}
	deref, err := ctx.Dereference(res)
	if err != nil {
		return err
	}
	resDict, ok := deref.(types.Dict)
	if !ok {
		return nil
	}
	xobjs, ok := resDict.Find("XObject")
	if !ok {
		return nil
	}
	deref, err = ctx.Dereference(xobjs)
	if err != nil {
		return err
	}
	xobjDict, ok := deref.(types.Dict)
	if !ok {
		return nil
	}
	for _, ref := range xobjDict {
		o, err := ctx.Dereference(ref)
		if err != nil {
			return err
		}
		sd, ok := o.(types.StreamDict)
		if !ok {
			continue
		}
		if err := appendStreams(ctx, sd, buf); err != nil {
			return err
		}
		if inner, ok := sd.Find("Resources"); ok {
			if err := appendForms(ctx, inner, buf, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
