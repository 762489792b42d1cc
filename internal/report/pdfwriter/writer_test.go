package pdfwriter

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Requip-Digital/Inspection-Tool/internal/report/layout"
)

func encodePNG(t *testing.T, transparent bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			a := uint8(0xff)
			if transparent && x == 0 {
				a = 0x40
			}
			img.Set(x, y, color.NRGBA{R: 0, G: 0x33, B: 0x66, A: a})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func testDocument(t *testing.T, pages int, extra ...layout.Primitive) *layout.Document {
	t.Helper()
	doc := layout.NewDocument(layout.Info{
		Title:  "Inspection Report - Mill (A)",
		Author: "owner-1",
	})
	fill := layout.Hex("#f8f9fa")
	for i := 0; i < pages; i++ {
		p, err := doc.AddPage()
		require.NoError(t, err)
		p.Header = append(p.Header, layout.Text{X: 140, Y: 40, Text: "REPORT HEADER", Font: layout.FontBold, Size: 16})
		p.Items = append(p.Items,
			layout.Rect{X: 50, Y: 100, W: 200, H: 20, Fill: &fill, Stroke: &fill, LineWidth: 0.3},
			layout.Text{X: 55, Y: 106, Text: "Sheet Number", Font: layout.FontBold, Size: 8},
			layout.Text{X: 300, Y: 106, Text: "Page body", Font: layout.FontRegular, Size: 8, Underline: true},
			layout.Line{X1: 50, Y1: 70, X2: 545, Y2: 70, Width: 1},
		)
		p.Items = append(p.Items, extra...)
	}
	require.NoError(t, doc.Finalize())
	return doc
}

func plainText(t *testing.T, data []byte) []string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var out []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		require.NoError(t, err)
		out = append(out, text)
	}
	return out
}

func relaxed() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func TestWriteProducesReadablePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testDocument(t, 2)))

	data := buf.Bytes()
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-1.")))
	assert.Contains(t, string(data[len(data)-16:]), "%%EOF")

	texts := plainText(t, data)
	require.Len(t, texts, 2)
	for _, text := range texts {
		assert.Contains(t, text, "REPORT HEADER")
		assert.Contains(t, text, "Sheet Number")
	}

	assert.NoError(t, api.Validate(bytes.NewReader(data), relaxed()))
	n, err := api.PageCount(bytes.NewReader(data), relaxed())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), relaxed())
	require.NoError(t, err)
	assert.Equal(t, "Inspection Report - Mill (A)", ctx.Title)
	assert.Equal(t, "owner-1", ctx.Author)
}

func TestWriteTextOutsideWinAnsi(t *testing.T) {
	doc := layout.NewDocument(layout.Info{})
	p, err := doc.AddPage()
	require.NoError(t, err)
	p.Items = append(p.Items,
		layout.Text{X: 50, Y: 100, Text: "Location: Pune (MH)", Font: layout.FontRegular, Size: 10},
		layout.Text{X: 50, Y: 120, Text: "Operator 日本", Font: layout.FontItalic, Size: 10},
	)
	require.NoError(t, doc.Finalize())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))
	texts := plainText(t, buf.Bytes())
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Location: Pune (MH)")
	assert.Contains(t, texts[0], "Operator ??")
}

func TestWriteImages(t *testing.T) {
	tests := []struct {
		name   string
		image  layout.Image
		smask  bool
		filter string
	}{
		{
			name:   "opaque png",
			image:  layout.Image{X: 50, Y: 200, W: 40, H: 30, Data: encodePNG(t, false), Format: layout.ImagePNG},
			filter: "FlateDecode",
		},
		{
			name:   "transparent png gets a soft mask",
			image:  layout.Image{X: 50, Y: 200, W: 40, H: 30, Data: encodePNG(t, true), Format: layout.ImagePNG},
			smask:  true,
			filter: "FlateDecode",
		},
		{
			name:   "jpeg passes through",
			image:  layout.Image{X: 50, Y: 200, W: 40, H: 40, Data: encodeJPEG(t), Format: layout.ImageJPEG},
			filter: "DCTDecode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, testDocument(t, 2, tt.image)))

			pages, err := api.Images(bytes.NewReader(buf.Bytes()), nil, relaxed())
			require.NoError(t, err)
			require.Len(t, pages, 2)

			// shared data is embedded once and drawn on both pages
			objects := map[int]bool{}
			for _, images := range pages {
				require.Len(t, images, 1)
				for nr, img := range images {
					objects[nr] = true
					assert.Equal(t, tt.smask, img.HasSMask)
					assert.Contains(t, img.Filter, tt.filter)
				}
			}
			assert.Len(t, objects, 1)
		})
	}
}

func TestWriteRejectsBrokenImage(t *testing.T) {
	broken := layout.Image{X: 50, Y: 200, W: 40, H: 30, Data: encodePNG(t, false)[:60], Format: layout.ImagePNG}

	var buf bytes.Buffer
	err := Write(&buf, testDocument(t, 1, broken))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1")
}

func TestWriteRejectsOpenDocument(t *testing.T) {
	doc := layout.NewDocument(layout.Info{})
	_, err := doc.AddPage()
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.ErrorIs(t, Write(&buf, doc), ErrNotFinalized)
	assert.Zero(t, buf.Len())
	assert.Error(t, Write(&buf, nil))
}
