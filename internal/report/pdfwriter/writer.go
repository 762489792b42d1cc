// Package pdfwriter translates a finalized layout document into pdfcpu's
// page model and writes it with pdfcpu.
//
// Text uses the standard Helvetica faces, so no font programs are embedded.
// PNG data is decoded into Flate compressed samples with a soft mask for
// transparency; JPEG data is passed through as DCT.
package pdfwriter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/create"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/draw"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/Requip-Digital/Inspection-Tool/internal/report/layout"
)

// ErrNotFinalized is returned for documents still open to drawing
var ErrNotFinalized = errors.New("document is not finalized")

// Helvetica ascender as a fraction of the font size. Text primitives are
// positioned by their top edge; PDF positions text by its baseline.
const ascent = 0.718

// Write renders doc as a complete PDF file
func Write(w io.Writer, doc *layout.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	if !doc.Finalized() {
		return ErrNotFinalized
	}

	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.CREATE
	ctx, err := pdfcpu.CreateContextWithXRefTable(conf, &types.Dim{Width: doc.Width, Height: doc.Height})
	if err != nil {
		return fmt.Errorf("cannot create pdf context: %w", err)
	}
	if err := setInfo(ctx, doc.Info); err != nil {
		return err
	}

	tr := &translator{xref: ctx.XRefTable, fonts: model.FontMap{}, images: make(map[*byte]model.ImageResource)}
	pages := make([]*model.Page, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		mp, err := tr.page(p)
		if err != nil {
			return fmt.Errorf("page %d: %w", p.Index+1, err)
		}
		pages = append(pages, mp)
	}

	if _, _, err := create.UpdatePageTree(ctx, pages, tr.fonts); err != nil {
		return fmt.Errorf("cannot build page tree: %w", err)
	}
	return api.WriteContext(ctx, w)
}

// setInfo fills the document information dictionary. pdfcpu stamps the
// producer and creation date itself when the file is written.
func setInfo(ctx *model.Context, info layout.Info) error {
	d := types.NewDict()
	for _, kv := range [][2]string{
		{"Title", info.Title},
		{"Author", info.Author},
		{"Subject", info.Subject},
		{"Creator", info.Creator},
	} {
		if kv[1] != "" {
			d.InsertString(kv[0], kv[1])
		}
	}
	ir, err := ctx.IndRefForNewObject(d)
	if err != nil {
		return fmt.Errorf("cannot add document info: %w", err)
	}
	ctx.Info = ir
	return nil
}

// translator carries the resources shared by all pages of one document
type translator struct {
	xref  *model.XRefTable
	fonts model.FontMap
	// image XObjects keyed by the first byte of their data, so data shared
	// between pages (the header logo) is embedded once
	images map[*byte]model.ImageResource
}

// page converts one layout page. Layout coordinates are measured from the
// top-left corner and are flipped here.
func (tr *translator) page(p *layout.Page) (*model.Page, error) {
	box := types.RectForDim(p.Width, p.Height)
	mp := model.NewPage(box, box)
	flip := func(y float64) float64 { return p.Height - y }

	for _, prims := range [][]layout.Primitive{p.Header, p.Items} {
		for _, prim := range prims {
			switch v := prim.(type) {
			case layout.Rect:
				drawRect(mp.Buf, v, flip)
			case layout.Line:
				col := simpleColor(v.Color)
				draw.DrawLine(mp.Buf, v.X1, flip(v.Y1), v.X2, flip(v.Y2), lineWidth(v.Width), &col, nil)
			case layout.Text:
				tr.text(&mp, v, flip)
			case layout.Image:
				if err := tr.image(&mp, v, flip); err != nil {
					return nil, err
				}
			default:
				return nil, fmt.Errorf("unsupported primitive %T", prim)
			}
		}
	}
	return &mp, nil
}

func drawRect(buf *bytes.Buffer, r layout.Rect, flip func(float64) float64) {
	rect := types.NewRectangle(r.X, flip(r.Y+r.H), r.X+r.W, flip(r.Y))
	switch {
	case r.Fill != nil && r.Stroke != nil:
		stroke := simpleColor(*r.Stroke)
		draw.FillRect(buf, rect, lineWidth(r.LineWidth), &stroke, simpleColor(*r.Fill), nil)
	case r.Fill != nil:
		draw.FillRectNoBorder(buf, rect, simpleColor(*r.Fill))
	case r.Stroke != nil:
		stroke := simpleColor(*r.Stroke)
		draw.DrawRect(buf, rect, lineWidth(r.LineWidth), &stroke, nil)
	}
}

func (tr *translator) text(mp *model.Page, t layout.Text, flip func(float64) float64) {
	if t.Text == "" {
		return
	}
	name := string(t.Font)
	// pdfcpu resolves page fonts against the document-wide map
	tr.fonts.EnsureKey(name)
	col := simpleColor(t.Color)
	baseline := flip(t.Y + t.Size*ascent)
	model.WriteMultiLine(tr.xref, mp.Buf, mp.MediaBox, nil, model.TextDescriptor{
		Text:      layout.Printable(t.Text),
		FontName:  name,
		FontKey:   mp.Fm.EnsureKey(name),
		FontSize:  int(math.Round(t.Size)),
		X:         t.X,
		Y:         baseline,
		ScaleAbs:  true,
		Scale:     1,
		RMode:     draw.RMFill,
		FillCol:   col,
		StrokeCol: col,
	})
	if t.Underline {
		width := layout.TextWidth(t.Text, t.Font, t.Size)
		under := baseline - t.Size*0.1
		draw.DrawLine(mp.Buf, t.X, under, t.X+width, under, t.Size*0.05, &col, nil)
	}
}

func (tr *translator) image(mp *model.Page, img layout.Image, flip func(float64) float64) error {
	if len(img.Data) == 0 {
		return errors.New("empty image data")
	}
	key := &img.Data[0]
	res, ok := tr.images[key]
	if !ok {
		ir, w, h, err := model.CreateImageResource(tr.xref, bytes.NewReader(img.Data))
		if err != nil {
			return fmt.Errorf("cannot embed %s image: %w", img.Format, err)
		}
		res = model.ImageResource{
			Res:    model.Resource{ID: "Im" + strconv.Itoa(len(tr.images)), IndRef: ir},
			Width:  w,
			Height: h,
		}
		tr.images[key] = res
	}
	mp.Im[res.Res.ID] = res
	fmt.Fprintf(mp.Buf, "q %.2f 0 0 %.2f %.2f %.2f cm /%s Do Q ",
		img.W, img.H, img.X, flip(img.Y+img.H), res.Res.ID)
	return nil
}

func simpleColor(c layout.Color) color.SimpleColor {
	return color.SimpleColor{R: float32(c.R) / 255, G: float32(c.G) / 255, B: float32(c.B) / 255}
}

func lineWidth(w float64) float64 {
	if w <= 0 {
		return 1
	}
	return w
}
