package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/font"
	"golang.org/x/text/encoding/charmap"
)

// Primitive is anything that can be drawn on a page
type Primitive interface {
	// Extent returns the top and bottom y coordinates covered
	Extent() (top, bottom float64)
}

// Rect is a filled and/or stroked rectangle
type Rect struct {
	X, Y, W, H float64
	Fill       *Color
	Stroke     *Color
	LineWidth  float64
}

func (r Rect) Extent() (float64, float64) { return r.Y, r.Y + r.H }

// Text is a single line of text whose top edge sits at Y
type Text struct {
	X, Y      float64
	Text      string
	Font      Font
	Size      float64
	Color     Color
	Underline bool
}

func (t Text) Extent() (float64, float64) { return t.Y, t.Y + t.Size }

// Line is a straight stroke
type Line struct {
	X1, Y1, X2, Y2 float64
	Color          Color
	Width          float64
}

func (l Line) Extent() (float64, float64) {
	return math.Min(l.Y1, l.Y2), math.Max(l.Y1, l.Y2)
}

// ImageFormat is the encoding of image data
type ImageFormat string

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"
)

// Image places encoded image data scaled to W x H
type Image struct {
	X, Y, W, H float64
	Data       []byte
	Format     ImageFormat
}

func (i Image) Extent() (float64, float64) { return i.Y, i.Y + i.H }

// TextWidth measures s in points using the standard Helvetica metrics.
// The core font tables are indexed by WinAnsi code, so s is encoded first.
func TextWidth(s string, f Font, size float64) float64 {
	if s == "" {
		return 0
	}
	return font.TextWidth(winAnsi(s), string(f), 1000) * size / 1000
}

// Printable replaces the characters the core fonts cannot show with '?'
func Printable(s string) string {
	return strings.Map(func(r rune) rune {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return '?'
		}
		return r
	}, s)
}

func winAnsi(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

const ellipsis = "..."

// Fit shortens s with an ellipsis so it is at most width points wide. It
// returns "" when not even the ellipsis fits.
func Fit(s string, f Font, size, width float64) string {
	if TextWidth(s, f, size) <= width {
		return s
	}
	runes := []rune(s)
	candidate := func(n int) string {
		return strings.TrimRight(string(runes[:n]), " ") + ellipsis
	}
	// widths grow with the prefix length, so the first prefix that is too
	// wide bounds the longest one that fits
	n := sort.Search(len(runes), func(n int) bool {
		return TextWidth(candidate(n), f, size) > width
	})
	if n == 0 {
		return ""
	}
	return candidate(n - 1)
}
