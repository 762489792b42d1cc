// Package layout holds the in-memory paginated document produced by the
// report renderers and the cursor that owns page-break decisions.
// Coordinates are PDF points measured from the top-left corner of a page.
package layout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// A4 portrait in points and the fixed report margins
const (
	PageWidth  = 595.28
	PageHeight = 841.89

	SideMargin   = 50.0
	TopMargin    = 100.0
	BottomMargin = 50.0
)

var (
	// ErrFinalized is returned when drawing into a finalized document
	ErrFinalized = errors.New("document is finalized")
	// ErrOutOfBounds is returned when a primitive would cross the bottom margin
	ErrOutOfBounds = errors.New("primitive crosses the bottom margin")
)

// Color is an RGB color
type Color struct {
	R, G, B uint8
}

// Hex parses "#rrggbb". Malformed input yields black.
func Hex(s string) Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return Color{}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Font names one of the standard Helvetica faces
type Font string

const (
	FontRegular Font = "Helvetica"
	FontBold    Font = "Helvetica-Bold"
	FontItalic  Font = "Helvetica-Oblique"
)

// Info is the document metadata written to the PDF information dictionary
type Info struct {
	Title   string
	Author  string
	Subject string
	Creator string
}

// Page is one fixed-size page. Header holds the repeating header
// primitives; Items holds everything drawn by the renderers.
type Page struct {
	Index  int
	Width  float64
	Height float64
	Header []Primitive
	Items  []Primitive
}

// Texts returns the text of every text primitive on the page, header first
func (p *Page) Texts() []string {
	var out []string
	for _, prims := range [][]Primitive{p.Header, p.Items} {
		for _, prim := range prims {
			if t, ok := prim.(Text); ok {
				out = append(out, t.Text)
			}
		}
	}
	return out
}

// Document is an ordered sequence of pages
type Document struct {
	Width  float64
	Height float64
	Info   Info
	Pages  []*Page

	finalized bool
}

// NewDocument returns an empty A4 document
func NewDocument(info Info) *Document {
	return &Document{Width: PageWidth, Height: PageHeight, Info: info}
}

// AddPage appends a blank page
func (d *Document) AddPage() (*Page, error) {
	if d.finalized {
		return nil, ErrFinalized
	}
	p := &Page{Index: len(d.Pages), Width: d.Width, Height: d.Height}
	d.Pages = append(d.Pages, p)
	return p, nil
}

// Finalize closes the document to further writes
func (d *Document) Finalize() error {
	if d.finalized {
		return ErrFinalized
	}
	d.finalized = true
	return nil
}

func (d *Document) Finalized() bool { return d.finalized }

// PageCount returns the number of pages
func (d *Document) PageCount() int { return len(d.Pages) }
