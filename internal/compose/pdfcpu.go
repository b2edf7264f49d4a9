// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compose

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// stampPrefix names the form XObjects that carry overlays in page resources.
const stampPrefix = "PageStamp"

// PDFCPU is a Backend built on pdfcpu.
type PDFCPU struct {
	conf *model.Configuration
}

// NewPDFCPU returns a pdfcpu backend with relaxed validation and no
// on-disk pdfcpu configuration directory.
func NewPDFCPU() *PDFCPU {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPU{conf: conf}
}

// recoverAs turns a pdfcpu panic into an error. pdfcpu panics on some
// truncated or malformed inputs instead of returning an error.
func recoverAs(op string, err *error) {
	if v := recover(); v != nil {
		*err = fmt.Errorf("%s: pdfcpu panic: %v", op, v)
	}
}

// Open reads, validates and optimizes the document in rs.
func (p *PDFCPU) Open(rs io.ReadSeeker) (doc Document, err error) {
	defer recoverAs("reading PDF", &err)

	ctx, err := api.ReadValidateAndOptimize(rs, p.conf)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	return &pdfcpuDocument{ctx: ctx, conf: p.conf}, nil
}

type pdfcpuDocument struct {
	ctx  *model.Context
	conf *model.Configuration
}

func (d *pdfcpuDocument) PageCount() int {
	return d.ctx.PageCount
}

// MergeOverlay appends the overlay page as a form XObject painted after the
// page's own content. MediaBox, CropBox and Rotate of the page are left
// untouched; the form matrix maps overlay coordinates onto the page as it is
// displayed, so (x, y) on the overlay is (x, y) from the lower-left corner of
// the visible, rotated page.
func (d *pdfcpuDocument) MergeOverlay(pageNr int, overlay []byte) (err error) {
	defer recoverAs(fmt.Sprintf("merging page %d", pageNr), &err)

	if pageNr < 1 || pageNr > d.ctx.PageCount {
		return fmt.Errorf("page %d out of range 1..%d", pageNr, d.ctx.PageCount)
	}

	form, err := d.importOverlay(overlay)
	if err != nil {
		return fmt.Errorf("parsing overlay: %w", err)
	}

	page, _, attrs, err := d.ctx.PageDict(pageNr, false)
	if err != nil {
		return err
	}
	if page == nil || attrs.MediaBox == nil {
		return fmt.Errorf("page %d has no media box", pageNr)
	}

	name, err := d.attachForm(page, attrs.Resources, form)
	if err != nil {
		return err
	}

	m := displayMatrix(visibleBox(attrs), attrs.Rotate)
	tail := fmt.Sprintf("Q\nq %.2f %.2f %.2f %.2f %.2f %.2f cm /%s Do Q\n", m[0], m[1], m[2], m[3], m[4], m[5], name)
	return d.wrapContents(page, []byte("q\n"), []byte(tail))
}

func (d *pdfcpuDocument) Write(w io.Writer) (err error) {
	defer recoverAs("writing PDF", &err)
	return api.WriteContext(d.ctx, w)
}

// importOverlay copies page 1 of overlay into d as a form XObject.
func (d *pdfcpuDocument) importOverlay(overlay []byte) (*types.IndirectRef, error) {
	src, err := api.ReadContext(bytes.NewReader(overlay), d.conf)
	if err != nil {
		return nil, err
	}
	if err := src.EnsurePageCount(); err != nil {
		return nil, err
	}
	if src.PageCount != 1 {
		return nil, fmt.Errorf("overlay has %d pages, want 1", src.PageCount)
	}

	page, _, attrs, err := src.PageDict(1, false)
	if err != nil {
		return nil, err
	}
	if attrs.MediaBox == nil {
		return nil, errors.New("overlay has no media box")
	}
	content, err := src.PageContent(page)
	if err != nil && !errors.Is(err, model.ErrNoContent) {
		return nil, err
	}

	sd, err := d.ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	sd.InsertName("Type", "XObject")
	sd.InsertName("Subtype", "Form")
	sd.Insert("BBox", attrs.MediaBox.Array())
	if attrs.Resources != nil {
		res, err := migrate(attrs.Resources.Clone(), src, d.ctx, map[int]int{})
		if err != nil {
			return nil, fmt.Errorf("copying overlay resources: %w", err)
		}
		sd.Insert("Resources", res)
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return d.ctx.IndRefForNewObject(*sd)
}

// attachForm gives page its own resource dict holding the effective
// resources plus form under a free XObject name. Shared or inherited
// resource dicts are never modified.
func (d *pdfcpuDocument) attachForm(page, effective types.Dict, form *types.IndirectRef) (string, error) {
	res := types.Dict{}
	for k, v := range effective {
		res[k] = v
	}

	xobjs := types.Dict{}
	if o, ok := res.Find("XObject"); ok {
		existing, err := d.ctx.DereferenceDict(o)
		if err != nil {
			return "", fmt.Errorf("reading XObject resources: %w", err)
		}
		for k, v := range existing {
			xobjs[k] = v
		}
	}

	name := ""
	for i := 0; ; i++ {
		name = fmt.Sprintf("%s%d", stampPrefix, i)
		if _, taken := xobjs[name]; !taken {
			break
		}
	}
	xobjs[name] = *form
	res["XObject"] = xobjs
	page.Update("Resources", res)
	return name, nil
}

// wrapContents brackets the page's content streams with head and tail.
func (d *pdfcpuDocument) wrapContents(page types.Dict, head, tail []byte) error {
	var streams types.Array
	if o, ok := page.Find("Contents"); ok {
		switch c := o.(type) {
		case types.IndirectRef:
			deref, err := d.ctx.Dereference(c)
			if err != nil {
				return err
			}
			if arr, isArr := deref.(types.Array); isArr {
				streams = append(streams, arr...)
			} else {
				streams = append(streams, c)
			}
		case types.Array:
			streams = append(streams, c...)
		default:
			return fmt.Errorf("unexpected page contents %T", o)
		}
	}

	contents := types.Array{}
	for i, buf := range [][]byte{head, tail} {
		sd, err := d.ctx.NewStreamDictForBuf(buf)
		if err != nil {
			return err
		}
		if err := sd.Encode(); err != nil {
			return err
		}
		ref, err := d.ctx.IndRefForNewObject(*sd)
		if err != nil {
			return err
		}
		if i == 0 {
			contents = append(contents, *ref)
			contents = append(contents, streams...)
			continue
		}
		contents = append(contents, *ref)
	}
	page.Update("Contents", contents)
	return nil
}

// visibleBox is the crop box when present, otherwise the media box.
func visibleBox(attrs *model.InheritedPageAttrs) *types.Rectangle {
	if attrs.CropBox != nil {
		return attrs.CropBox
	}
	return attrs.MediaBox
}

// displayMatrix maps coordinates measured from the lower-left corner of the
// displayed page into user space of a page whose visible box is box and
// whose /Rotate is rotate (clockwise, multiple of 90).
func displayMatrix(box *types.Rectangle, rotate int) [6]float64 {
	llx, lly, urx, ury := box.LL.X, box.LL.Y, box.UR.X, box.UR.Y
	switch ((rotate % 360) + 360) % 360 {
	case 90:
		return [6]float64{0, 1, -1, 0, urx, lly}
	case 180:
		return [6]float64{-1, 0, 0, -1, urx, ury}
	case 270:
		return [6]float64{0, -1, 1, 0, llx, ury}
	default:
		return [6]float64{1, 0, 0, 1, llx, lly}
	}
}

// migrate copies o and everything it references from src into dst,
// renumbering indirect references. migrated maps src to dst object numbers.
func migrate(o types.Object, src, dst *model.Context, migrated map[int]int) (types.Object, error) {
	var err error
	switch o := o.(type) {
	case types.IndirectRef:
		objNr := o.ObjectNumber.Value()
		if nr, ok := migrated[objNr]; ok {
			return *types.NewIndirectRef(nr, 0), nil
		}
		deref, err := src.Dereference(o)
		if err != nil {
			return nil, err
		}
		if deref != nil {
			deref = deref.Clone()
		}
		nr, err := dst.InsertObject(deref)
		if err != nil {
			return nil, err
		}
		migrated[objNr] = nr
		// Maps inside deref are shared with the table entry, so migrating
		// in place updates the stored object.
		if _, err := migrate(deref, src, dst, migrated); err != nil {
			return nil, err
		}
		return *types.NewIndirectRef(nr, 0), nil

	case types.Dict:
		for k, v := range o {
			if o[k], err = migrate(v, src, dst, migrated); err != nil {
				return nil, err
			}
		}
		return o, nil

	case types.StreamDict:
		for k, v := range o.Dict {
			if o.Dict[k], err = migrate(v, src, dst, migrated); err != nil {
				return nil, err
			}
		}
		return o, nil

	case types.Array:
		for i, v := range o {
			if o[i], err = migrate(v, src, dst, migrated); err != nil {
				return nil, err
			}
		}
		return o, nil
	}
	return o, nil
}
