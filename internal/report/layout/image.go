package layout

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// DecodeImage fully decodes PNG or JPEG data and returns its format and
// pixel size. Truncated data fails here instead of in the PDF writer.
func DecodeImage(data []byte) (ImageFormat, int, int, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, err
	}
	var f ImageFormat
	switch format {
	case "png":
		f = ImagePNG
	case "jpeg":
		f = ImageJPEG
	default:
		return "", 0, 0, fmt.Errorf("unsupported image format %q", format)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return "", 0, 0, errors.New("empty image")
	}
	return f, b.Dx(), b.Dy(), nil
}
