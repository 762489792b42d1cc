// Package watermark stamps every page of a finished report with a
// translucent rotated logo and the generation timestamp.
package watermark

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"k8s.io/klog/v2"
)

const (
	imageDescription = "position:c, rotation:45, opacity:0.15, scalefactor:0.5 rel"
	textDescription  = "fontname:Helvetica, points:12, position:c, offset:0 -60, rotation:45, opacity:0.25, scalefactor:1 abs, fillcolor:#808080"

	// TimestampLayout formats the stamped generation time
	TimestampLayout = "2 January 2006 15:04 MST"
)

// Stamper applies the watermark pass. Apply always writes a document to w
// and reports whether it carries the watermark.
type Stamper interface {
	Apply(rs io.ReadSeeker, w io.Writer, ts time.Time) (bool, error)
}

// PDFStamper stamps with pdfcpu in two passes: the image first, then the
// timestamp text
type PDFStamper struct {
	image []byte
	conf  *model.Configuration
}

// New loads the watermark image. A missing or unreadable image yields a
// stamper that passes documents through unchanged, together with the reason.
func New(imagePath string) (*PDFStamper, error) {
	s := &PDFStamper{conf: newConfiguration()}
	if imagePath == "" {
		return s, nil
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return s, fmt.Errorf("cannot read watermark image %s: %w", imagePath, err)
	}
	s.image = data
	return s, nil
}

// NewFromBytes returns a stamper for in-memory image data
func NewFromBytes(image []byte) *PDFStamper {
	return &PDFStamper{image: image, conf: newConfiguration()}
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Enabled reports whether an image is loaded
func (s *PDFStamper) Enabled() bool { return len(s.image) > 0 }

// Apply stamps every page of the PDF read from rs and writes the result to
// w. When no image is loaded or stamping fails, the input is copied to w
// unchanged and Apply returns false. Only a failure to write w is returned
// as an error.
func (s *PDFStamper) Apply(rs io.ReadSeeker, w io.Writer, ts time.Time) (bool, error) {
	if !s.Enabled() {
		klog.V(4).Info("Watermark image not configured, skipping watermark")
		return false, passThrough(rs, w)
	}

	stamped, err := s.stamp(rs, ts)
	if err != nil {
		klog.Warningf("Watermark skipped: %v", err)
		return false, passThrough(rs, w)
	}
	if _, err := w.Write(stamped); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PDFStamper) stamp(rs io.ReadSeeker, ts time.Time) ([]byte, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	logo, err := api.ImageWatermarkForReader(bytes.NewReader(s.image), imageDescription, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("invalid watermark image: %w", err)
	}
	var first bytes.Buffer
	if err := api.AddWatermarks(rs, &first, nil, logo, s.conf); err != nil {
		return nil, fmt.Errorf("image pass: %w", err)
	}

	text, err := api.TextWatermark("Generated: "+ts.Format(TimestampLayout), textDescription, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp watermark: %w", err)
	}
	var second bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(first.Bytes()), &second, nil, text, s.conf); err != nil {
		return nil, fmt.Errorf("timestamp pass: %w", err)
	}
	return second.Bytes(), nil
}

func passThrough(rs io.ReadSeeker, w io.Writer) error {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := io.Copy(w, rs)
	return err
}
