// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compose

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pagestamp/internal/overlay"
	"github.com/pdiddy/pagestamp/internal/pdftest"
	"github.com/pdiddy/pagestamp/pkg/types"
)

// fakeBackend opens a fakeDocument with a fixed page count.
type fakeBackend struct {
	doc     *fakeDocument
	openErr error
}

func (b *fakeBackend) Open(rs io.ReadSeeker) (Document, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.doc, nil
}

type fakeDocument struct {
	pages    int
	merged   []string
	mergeErr error
	writeErr error
}

func (d *fakeDocument) PageCount() int { return d.pages }

func (d *fakeDocument) MergeOverlay(pageNr int, ov []byte) error {
	if d.mergeErr != nil {
		return d.mergeErr
	}
	d.merged = append(d.merged, fmt.Sprintf("%d:%s", pageNr, ov))
	return nil
}

func (d *fakeDocument) Write(w io.Writer) error {
	if d.writeErr != nil {
		return d.writeErr
	}
	_, err := io.WriteString(w, strings.Join(d.merged, ","))
	return err
}

// fakeOverlays returns "ovN" for page N and fails on failOn.
type fakeOverlays struct {
	calls  []int
	failOn int
}

func (f *fakeOverlays) Generate(n int) ([]byte, error) {
	f.calls = append(f.calls, n)
	if n == f.failOn {
		return nil, errors.New("surface unavailable")
	}
	return []byte(fmt.Sprintf("ov%d", n)), nil
}

func TestStamp(t *testing.T) {
	doc := &fakeDocument{pages: 3}
	ovs := &fakeOverlays{}
	s := NewStamper(&fakeBackend{doc: doc}, ovs)

	var out bytes.Buffer
	pages, err := s.Stamp(bytes.NewReader(nil), &out)
	require.NoError(t, err)

	assert.Equal(t, 3, pages)
	assert.Equal(t, []int{1, 2, 3}, ovs.calls)
	assert.Equal(t, "1:ov1,2:ov2,3:ov3", out.String())
}

func TestStampErrors(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeBackend
		ovs     *fakeOverlays
		wantErr error
	}{
		{
			name:    "open failure",
			backend: &fakeBackend{openErr: errors.New("bad xref")},
			ovs:     &fakeOverlays{},
			wantErr: ErrUnreadableSource,
		},
		{
			name:    "no pages",
			backend: &fakeBackend{doc: &fakeDocument{}},
			ovs:     &fakeOverlays{},
			wantErr: ErrUnreadableSource,
		},
		{
			name:    "overlay failure",
			backend: &fakeBackend{doc: &fakeDocument{pages: 3}},
			ovs:     &fakeOverlays{failOn: 2},
			wantErr: ErrOverlayConstruction,
		},
		{
			name:    "merge failure",
			backend: &fakeBackend{doc: &fakeDocument{pages: 2, mergeErr: errors.New("bad resources")}},
			ovs:     &fakeOverlays{},
			wantErr: ErrOverlayConstruction,
		},
		{
			name:    "write failure",
			backend: &fakeBackend{doc: &fakeDocument{pages: 1, writeErr: errors.New("disk full")}},
			ovs:     &fakeOverlays{},
			wantErr: ErrOutputWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			pages, err := NewStamper(tt.backend, tt.ovs).Stamp(bytes.NewReader(nil), &out)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, pages)
			assert.Zero(t, out.Len(), "nothing may be written on failure")
		})
	}
}

func newRealStamper(t *testing.T) *Stamper {
	t.Helper()
	gen, err := overlay.New(types.DefaultStampConfig())
	require.NoError(t, err)
	return NewStamper(NewPDFCPU(), gen)
}

func TestPDFCPUStamp(t *testing.T) {
	src, err := pdftest.NewPDF(3, "Letter")
	require.NoError(t, err)

	var out bytes.Buffer
	pages, err := newRealStamper(t).Stamp(bytes.NewReader(src), &out)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)

	count, err := pdftest.PageCount(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	for i := 1; i <= 3; i++ {
		content, err := pdftest.PageContent(out.Bytes(), i)
		require.NoError(t, err)

		body := fmt.Sprintf("(%s)", pdftest.BodyText(i))
		assert.Contains(t, content, body, "page %d lost its original content", i)
		assert.Contains(t, content, fmt.Sprintf("(P\xe1gina %d)", i), "page %d footer", i)
		// The overlay is invoked after the original drawing operators.
		assert.Greater(t, strings.LastIndex(content, " Do"), strings.Index(content, body))
	}
}

func TestPDFCPUPreservesGeometry(t *testing.T) {
	src, err := pdftest.NewPDF(2, "A4")
	require.NoError(t, err)
	srcDims, err := pdftest.PageDims(src)
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = newRealStamper(t).Stamp(bytes.NewReader(src), &out)
	require.NoError(t, err)

	outDims, err := pdftest.PageDims(out.Bytes())
	require.NoError(t, err)
	require.Len(t, outDims, len(srcDims))
	for i := range srcDims {
		assert.InDelta(t, srcDims[i].Width, outDims[i].Width, 0.01)
		assert.InDelta(t, srcDims[i].Height, outDims[i].Height, 0.01)
	}
}

func TestPDFCPUFooterPlacement(t *testing.T) {
	letter := pdftypes.Rectangle{LL: pdftypes.Point{X: 0, Y: 0}, UR: pdftypes.Point{X: 612, Y: 792}}
	cropped := pdftypes.Rectangle{LL: pdftypes.Point{X: 100, Y: 100}, UR: pdftypes.Point{X: 612, Y: 792}}

	tests := []struct {
		name   string
		rotate int
		crop   *pdftypes.Rectangle
		matrix string
	}{
		{name: "plain", matrix: "1.00 0.00 0.00 1.00 0.00 0.00 cm"},
		{name: "crop box origin", crop: &cropped, matrix: "1.00 0.00 0.00 1.00 100.00 100.00 cm"},
		{name: "rotate 90", rotate: 90, matrix: "0.00 1.00 -1.00 0.00 612.00 0.00 cm"},
		{name: "rotate 180", rotate: 180, matrix: "-1.00 0.00 0.00 -1.00 612.00 792.00 cm"},
		{name: "rotate 270", rotate: 270, matrix: "0.00 -1.00 1.00 0.00 0.00 792.00 cm"},
		{name: "rotate 90 with crop box", rotate: 90, crop: &cropped, matrix: "0.00 1.00 -1.00 0.00 612.00 100.00 cm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := pdftest.NewPDF(2, "Letter")
			require.NoError(t, err)
			if tt.crop != nil {
				src, err = pdftest.SetCropBox(src, *tt.crop)
				require.NoError(t, err)
			}
			if tt.rotate != 0 {
				src, err = pdftest.Rotate(src, tt.rotate)
				require.NoError(t, err)
			}

			var out bytes.Buffer
			pages, err := newRealStamper(t).Stamp(bytes.NewReader(src), &out)
			require.NoError(t, err)
			require.Equal(t, 2, pages)

			for i := 1; i <= pages; i++ {
				rot, err := pdftest.PageRotation(out.Bytes(), i)
				require.NoError(t, err)
				assert.Equal(t, tt.rotate, rot, "page %d rotation", i)

				media, crop, err := pdftest.PageBoxes(out.Bytes(), i)
				require.NoError(t, err)
				require.NotNil(t, media)
				assert.True(t, media.Equals(letter), "page %d media box %v", i, media)
				if tt.crop != nil {
					require.NotNil(t, crop)
					assert.True(t, crop.Equals(*tt.crop), "page %d crop box %v", i, crop)
				} else {
					assert.Nil(t, crop)
				}

				content, err := pdftest.PageContent(out.Bytes(), i)
				require.NoError(t, err)
				assert.Contains(t, content, "q "+tt.matrix+" /"+stampPrefix+"0 Do Q", "page %d footer matrix", i)
				assert.Contains(t, content, "500.00 10.00 Td")
				assert.Contains(t, content, fmt.Sprintf("(P\xe1gina %d)", i))
				assert.Contains(t, content, fmt.Sprintf("(%s)", pdftest.BodyText(i)))
			}
		})
	}
}

func TestDisplayMatrix(t *testing.T) {
	letter := &pdftypes.Rectangle{LL: pdftypes.Point{X: 0, Y: 0}, UR: pdftypes.Point{X: 612, Y: 792}}
	cropped := &pdftypes.Rectangle{LL: pdftypes.Point{X: 100, Y: 100}, UR: pdftypes.Point{X: 612, Y: 792}}

	// Where the footer origin (500, 10) of the displayed page lies in user space.
	tests := []struct {
		name   string
		box    *pdftypes.Rectangle
		rotate int
		wantX  float64
		wantY  float64
	}{
		{"upright", letter, 0, 500, 10},
		{"crop origin", cropped, 0, 600, 110},
		{"rotate 90", letter, 90, 602, 500},
		{"rotate 180", letter, 180, 112, 782},
		{"rotate 270", letter, 270, 10, 292},
		{"rotate -90", letter, -90, 10, 292},
		{"rotate 450", letter, 450, 602, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := displayMatrix(tt.box, tt.rotate)
			x := m[0]*500 + m[2]*10 + m[4]
			y := m[1]*500 + m[3]*10 + m[5]
			assert.InDelta(t, tt.wantX, x, 1e-9)
			assert.InDelta(t, tt.wantY, y, 1e-9)
		})
	}
}

func TestPDFCPUResourcesNotShared(t *testing.T) {
	src, err := pdftest.NewPDF(3, "Letter")
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = newRealStamper(t).Stamp(bytes.NewReader(src), &out)
	require.NoError(t, err)

	// Each page sees only its own footer form.
	for i := 1; i <= 3; i++ {
		content, err := pdftest.PageContent(out.Bytes(), i)
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(content, "500.00 10.00 Td"), "page %d", i)
		assert.NotContains(t, content, "/"+stampPrefix+"1 ")
	}
}

func TestPDFCPUUnreadableSource(t *testing.T) {
	src, err := pdftest.NewPDF(2, "Letter")
	require.NoError(t, err)

	inputs := map[string][]byte{
		"not a pdf":   []byte("this is not a pdf"),
		"header only": []byte("%PDF-1.4 garbage"),
		"no trailer":  src[:len(src)/3],
		"empty":       nil,
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			var err error
			assert.NotPanics(t, func() {
				_, err = newRealStamper(t).Stamp(bytes.NewReader(data), &out)
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnreadableSource)
			assert.Zero(t, out.Len())
		})
	}
}

func TestRecoverAs(t *testing.T) {
	f := func() (err error) {
		defer recoverAs("reading PDF", &err)
		var s []byte
		_ = s[-1+len(s)]
		return nil
	}
	err := f()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading PDF: pdfcpu panic")
}
