package report

import (
	"fmt"
	"strings"

	"github.com/Requip-Digital/Inspection-Tool/internal/report/layout"
)

const (
	bannerHeight  = 25.0
	bannerPadding = 15.0
	// a banner is only drawn when it, its padding and a few rows fit
	sectionReserve = 150.0

	rowHeight      = 20.0
	cellPadX       = 5.0
	cellPadY       = 6.0
	tableGap       = 15.0
	subsectionGap  = 15.0
	subsectionNeed = 50.0
	placeholderGap = 15.0

	imageMaxWidth  = 250.0
	imageMaxHeight = 200.0
	imageGap       = 10.0
)

var (
	colorBrand  = layout.Hex("#003366")
	colorWhite  = layout.Hex("#ffffff")
	colorRow    = layout.Hex("#f8f9fa")
	colorBorder = layout.Hex("#dee2e6")
	colorKey    = layout.Hex("#2c3e50")
	colorValue  = layout.Hex("#34495e")
	colorMuted  = layout.Hex("#666666")
)

// Placeholder lines
const (
	NoDataText     = "No data available for this section"
	NoSectionsText = "No sections configured for this machine"
	NoFieldsText   = "No fields configured in this section"
	NoImageText    = "Image not found"
)

// RenderSection draws a full-width banner with the upper-cased title
func RenderSection(c *layout.Cursor, title string) error {
	if _, err := c.EnsureSpace(sectionReserve); err != nil {
		return err
	}
	y := c.Y()
	fill := colorBrand
	err := c.Draw(
		layout.Rect{X: layout.SideMargin, Y: y, W: c.Width(), H: bannerHeight, Fill: &fill},
		layout.Text{
			X:     layout.SideMargin + 10,
			Y:     y + 7,
			Text:  layout.Fit(strings.ToUpper(title), layout.FontBold, 12, c.Width()-20),
			Font:  layout.FontBold,
			Size:  12,
			Color: colorWhite,
		},
	)
	if err != nil {
		return err
	}
	c.Advance(bannerHeight + bannerPadding)
	return nil
}

// RenderSubsection draws an underlined subsection title
func RenderSubsection(c *layout.Cursor, title string) error {
	if _, err := c.EnsureSpace(subsectionNeed); err != nil {
		return err
	}
	err := c.Draw(layout.Text{
		X:         layout.SideMargin,
		Y:         c.Y(),
		Text:      layout.Fit(title, layout.FontBold, 10, c.Width()),
		Font:      layout.FontBold,
		Size:      10,
		Color:     colorKey,
		Underline: true,
	})
	if err != nil {
		return err
	}
	c.Advance(subsectionGap)
	return nil
}

// RenderPlaceholder draws a single muted explanatory line
func RenderPlaceholder(c *layout.Cursor, text string) error {
	if _, err := c.EnsureSpace(placeholderGap); err != nil {
		return err
	}
	err := c.Draw(layout.Text{
		X:     layout.SideMargin + 10,
		Y:     c.Y(),
		Text:  text,
		Font:  layout.FontItalic,
		Size:  9,
		Color: colorMuted,
	})
	if err != nil {
		return err
	}
	c.Advance(placeholderGap)
	return nil
}

// RenderTable draws rows as a two-column bordered table and returns the
// number of rows drawn. Rows continue below the page header after a page
// break. An empty table renders the no-data placeholder instead.
func RenderTable(c *layout.Cursor, rows []Entry) (int, error) {
	if len(rows) == 0 {
		return 0, RenderPlaceholder(c, NoDataText)
	}

	colWidth := c.Width() / 2
	keyX := layout.SideMargin
	valueX := layout.SideMargin + colWidth
	fill := colorRow
	stroke := colorBorder

	for i, r := range rows {
		if _, err := c.EnsureSpace(rowHeight); err != nil {
			return i, err
		}
		y := c.Y()
		err := c.Draw(
			layout.Rect{X: keyX, Y: y, W: colWidth, H: rowHeight, Fill: &fill, Stroke: &stroke, LineWidth: 0.3},
			layout.Rect{X: valueX, Y: y, W: colWidth, H: rowHeight, Fill: &fill, Stroke: &stroke, LineWidth: 0.3},
			layout.Text{
				X: keyX + cellPadX, Y: y + cellPadY,
				Text: layout.Fit(r.Label, layout.FontBold, 8, colWidth-2*cellPadX),
				Font: layout.FontBold, Size: 8, Color: colorKey,
			},
			layout.Text{
				X: valueX + cellPadX, Y: y + cellPadY,
				Text: layout.Fit(r.Value, layout.FontRegular, 8, colWidth-2*cellPadX),
				Font: layout.FontRegular, Size: 8, Color: colorValue,
			},
		)
		if err != nil {
			return i, err
		}
		c.Advance(rowHeight)
	}
	c.Advance(tableGap)
	return len(rows), nil
}

// RenderImage draws PNG or JPEG data scaled to fit the photo box. Data
// that does not decode completely is rejected before anything is drawn.
func RenderImage(c *layout.Cursor, data []byte) error {
	f, pw, ph, err := layout.DecodeImage(data)
	if err != nil {
		return fmt.Errorf("unsupported image: %w", err)
	}

	w, h := fitBox(float64(pw), float64(ph), imageMaxWidth, imageMaxHeight)
	if _, err := c.EnsureSpace(h + imageGap); err != nil {
		return err
	}
	if err := c.Draw(layout.Image{X: layout.SideMargin, Y: c.Y(), W: w, H: h, Data: data, Format: f}); err != nil {
		return err
	}
	c.Advance(h + imageGap)
	return nil
}

func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	scale := 1.0
	if w > maxW {
		scale = maxW / w
	}
	if h*scale > maxH {
		scale = maxH / h
	}
	return w * scale, h * scale
}
