package report

import (
	"fmt"
	"os"

	"github.com/Requip-Digital/Inspection-Tool/internal/report/layout"
)

// ReportTitle is printed in the header of every page
const ReportTitle = "REQUIP INSPECTION PROJECT REPORT"

const (
	headerTop    = 30.0
	logoMaxWidth = 80.0
	titleX       = 140.0
	titleSize    = 16.0
	headerRuleY  = 70.0
	headerRuleLW = 1.0
)

// Header draws the repeating page header: logo, title and a rule, or a
// centred title alone when no logo is available
type Header struct {
	Title string

	logo       []byte
	logoFormat layout.ImageFormat
	logoWidth  float64
	logoHeight float64
}

// LoadHeader reads the logo at path. An empty path or an unreadable logo
// yields a title-only header together with the reason.
func LoadHeader(path string) (*Header, error) {
	h := &Header{Title: ReportTitle}
	if path == "" {
		return h, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return h, fmt.Errorf("cannot read logo %s: %w", path, err)
	}
	if err := h.SetLogo(data); err != nil {
		return h, fmt.Errorf("cannot use logo %s: %w", path, err)
	}
	return h, nil
}

// SetLogo installs PNG or JPEG logo data. The logo is scaled to the
// standard width, or narrower when it would otherwise cross the header rule.
func (h *Header) SetLogo(data []byte) error {
	format, pw, ph, err := layout.DecodeImage(data)
	if err != nil {
		return err
	}
	h.logo = data
	h.logoFormat = format
	h.logoWidth = logoMaxWidth
	h.logoHeight = logoMaxWidth * float64(ph) / float64(pw)
	if maxHeight := headerRuleY - headerTop; h.logoHeight > maxHeight {
		h.logoHeight = maxHeight
		h.logoWidth = maxHeight * float64(pw) / float64(ph)
	}
	return nil
}

// HasLogo reports whether the header draws a logo
func (h *Header) HasLogo() bool { return len(h.logo) > 0 }

// Draw implements layout.HeaderFunc
func (h *Header) Draw(p *layout.Page) {
	if !h.HasLogo() {
		width := layout.TextWidth(h.Title, layout.FontBold, titleSize)
		p.Header = append(p.Header, layout.Text{
			X:     (p.Width - width) / 2,
			Y:     headerTop,
			Text:  h.Title,
			Font:  layout.FontBold,
			Size:  titleSize,
			Color: colorBrand,
		})
		return
	}

	p.Header = append(p.Header,
		layout.Image{X: layout.SideMargin, Y: headerTop, W: h.logoWidth, H: h.logoHeight, Data: h.logo, Format: h.logoFormat},
		layout.Text{
			X:     titleX,
			Y:     headerTop + 10,
			Text:  h.Title,
			Font:  layout.FontBold,
			Size:  titleSize,
			Color: colorBrand,
		},
		layout.Line{
			X1: layout.SideMargin, Y1: headerRuleY,
			X2: p.Width - layout.SideMargin, Y2: headerRuleY,
			Color: colorBrand, Width: headerRuleLW,
		},
	)
}
