package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const maxInspectText = 1024 * 1024

// Inspection summarises an exported report file
type Inspection struct {
	Path            string   `json:"path"`
	Size            int64    `json:"size"`
	Pages           int      `json:"pages"`
	Valid           bool     `json:"valid"`
	ValidationError string   `json:"validationError,omitempty"`
	HeaderOnEvery   bool     `json:"headerOnEveryPage"`
	MachineBanners  int      `json:"machineBanners"`
	Text            []string `json:"text,omitempty"`
}

// Inspect reads back a report PDF: page count and structural validity via
// pdfcpu, per-page text via the text extractor. maxFileSize bounds the file
// size; zero disables the check.
func Inspect(path string, maxFileSize int64, withText bool) (*Inspection, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return nil, fmt.Errorf("file is not a PDF: %s", path)
	}
	if maxFileSize > 0 && fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", fileInfo.Size(), maxFileSize)
	}

	out := &Inspection{Path: path, Size: fileInfo.Size()}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}
	defer file.Close()

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}
	out.Pages = ctx.PageCount

	if _, err := file.Seek(0, 0); err != nil {
		return nil, err
	}
	if err := api.Validate(file, conf); err != nil {
		out.ValidationError = err.Error()
	} else {
		out.Valid = true
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	total := 0
	out.HeaderOnEvery = r.NumPage() > 0
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			out.HeaderOnEvery = false
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			out.HeaderOnEvery = false
			continue
		}
		if !strings.Contains(content, ReportTitle) {
			out.HeaderOnEvery = false
		}
		out.MachineBanners += strings.Count(content, machineBannerPrefix)

		if withText && total < maxInspectText {
			if total+len(content) > maxInspectText {
				content = content[:maxInspectText-total]
			}
			out.Text = append(out.Text, content)
			total += len(content)
		}
	}
	return out, nil
}
