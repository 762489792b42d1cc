package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"k8s.io/klog/v2"

	"github.com/Requip-Digital/Inspection-Tool/internal/metrics"
	"github.com/Requip-Digital/Inspection-Tool/internal/record"
	reporterrors "github.com/Requip-Digital/Inspection-Tool/internal/report/errors"
	"github.com/Requip-Digital/Inspection-Tool/internal/report/layout"
	"github.com/Requip-Digital/Inspection-Tool/internal/report/pdfwriter"
	"github.com/Requip-Digital/Inspection-Tool/internal/report/watermark"
)

// Creator is written to the document metadata
const Creator = "Requip Inspection Tool"

// ProjectSource looks up the project to export, scoped to its owner
type ProjectSource interface {
	GetProject(ctx context.Context, id, owner string) (*record.Project, error)
}

// ExportResult describes a delivered report
type ExportResult struct {
	Filename    string   `json:"filename"`
	Path        string   `json:"path,omitempty"`
	Pages       int      `json:"pages"`
	Bytes       int64    `json:"bytes"`
	Watermarked bool     `json:"watermarked"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Service exports projects as watermarked PDF reports. Each export works on
// its own document and temp files; concurrent exports share nothing.
type Service struct {
	projects  ProjectSource
	assembler *Assembler
	stamper   watermark.Stamper
	header    *Header
	tempDir   string
	now       func() time.Time
}

// Options configures a report service
type Options struct {
	Projects  ProjectSource
	Templates TemplateSource
	Machines  MachineResolver
	// Photos is optional; without it file fields render without photos
	Photos  PhotoSource
	Stamper watermark.Stamper
	Header  *Header
	// TempDir holds the intermediate files of an export, os.TempDir when empty
	TempDir string
}

// NewService creates a report service
func NewService(opts Options) *Service {
	header := opts.Header
	if header == nil {
		header = &Header{Title: ReportTitle}
	}
	stamper := opts.Stamper
	if stamper == nil {
		stamper, _ = watermark.New("")
	}
	return &Service{
		projects:  opts.Projects,
		assembler: NewAssembler(opts.Templates, opts.Machines, opts.Photos),
		stamper:   stamper,
		header:    header,
		tempDir:   opts.TempDir,
		now:       time.Now,
	}
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Filename returns the download name for a project report
func Filename(projectName string) string {
	return filenamePrefix + unsafeFilename.ReplaceAllString(projectName, "_") + ".pdf"
}

// Export renders the project owned by owner and streams the watermarked PDF
// to w. A missing project is a resolution error; temp file and stream
// failures are IO errors. Temp files are removed on every path.
func (s *Service) Export(ctx context.Context, id, owner string, w io.Writer) (res *ExportResult, err error) {
	start := s.now()
	defer func() {
		metrics.RecordReport(err == nil, pagesOf(res), s.now().Sub(start).Seconds())
	}()

	p, err := s.projects.GetProject(ctx, id, owner)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, reporterrors.Wrap(reporterrors.ErrorTypeResolution, "project not found", err).WithContext(id)
		}
		return nil, reporterrors.Wrap(reporterrors.ErrorTypeResolution, "cannot load project", err).WithContext(id)
	}

	info := layout.Info{
		Title:   "Inspection Report - " + p.Name,
		Author:  p.Owner,
		Subject: p.Family,
		Creator: Creator,
	}
	doc, warnings, err := s.assembler.Assemble(ctx, p, s.header, info)
	if err != nil {
		return nil, err
	}

	raw, err := os.CreateTemp(s.tempDir, "report-*.pdf")
	if err != nil {
		return nil, reporterrors.Wrap(reporterrors.ErrorTypeIO, "cannot create temp file", err)
	}
	defer removeTemp(raw)

	if err := pdfwriter.Write(raw, doc); err != nil {
		return nil, reporterrors.Wrap(reporterrors.ErrorTypeIO, "cannot write report", err)
	}
	if _, err := raw.Seek(0, io.SeekStart); err != nil {
		return nil, reporterrors.Wrap(reporterrors.ErrorTypeIO, "cannot rewind report", err)
	}

	final, err := os.CreateTemp(s.tempDir, "report-final-*.pdf")
	if err != nil {
		return nil, reporterrors.Wrap(reporterrors.ErrorTypeIO, "cannot create temp file", err)
	}
	defer removeTemp(final)

	stamped, err := s.stamper.Apply(raw, final, start)
	if err != nil {
		return nil, reporterrors.Wrap(reporterrors.ErrorTypeIO, "cannot write watermarked report", err)
	}
	if !stamped {
		warnings.Add(reporterrors.New(reporterrors.ErrorTypeAsset, "report is not watermarked"))
	}
	if _, err := final.Seek(0, io.SeekStart); err != nil {
		return nil, reporterrors.Wrap(reporterrors.ErrorTypeIO, "cannot rewind report", err)
	}

	n, err := io.Copy(w, final)
	if err != nil {
		return nil, reporterrors.Wrap(reporterrors.ErrorTypeIO, "cannot stream report", err)
	}

	for _, warning := range warnings.Warnings {
		metrics.RecordReportWarning(warning.Type.String())
	}
	klog.V(1).Infof("Exported report for project %s: %d pages, %d bytes, %d warnings",
		p.ID, doc.PageCount(), n, warnings.Count())

	return &ExportResult{
		Filename:    Filename(p.Name),
		Pages:       doc.PageCount(),
		Bytes:       n,
		Watermarked: stamped,
		Warnings:    warnings.Messages(),
	}, nil
}

// ExportToDir exports the report into dir under its download name. The
// file only appears once it is complete.
func (s *Service) ExportToDir(ctx context.Context, id, owner, dir string) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, reporterrors.Wrap(reporterrors.ErrorTypeIO, "cannot create output directory", err)
	}
	out, err := os.CreateTemp(dir, ".report-*.pdf")
	if err != nil {
		return nil, reporterrors.Wrap(reporterrors.ErrorTypeIO, "cannot create output file", err)
	}
	tmpName := out.Name()

	res, err := s.Export(ctx, id, owner, out)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = reporterrors.Wrap(reporterrors.ErrorTypeIO, "cannot close output file", closeErr)
	}
	if err != nil {
		os.Remove(tmpName)
		return nil, err
	}

	path := filepath.Join(dir, res.Filename)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return nil, reporterrors.Wrap(reporterrors.ErrorTypeIO, "cannot move report into place", err)
	}
	res.Path = path
	return res, nil
}

func removeTemp(f *os.File) {
	name := f.Name()
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		klog.V(4).Infof("Closing temp file %s: %v", name, err)
	}
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		klog.Warningf("Failed to remove temp file %s: %v", name, err)
	}
}

func pagesOf(res *ExportResult) int {
	if res == nil {
		return 0
	}
	return res.Pages
}

// String implements fmt.Stringer for log lines
func (r *ExportResult) String() string {
	return fmt.Sprintf("%s (%d pages, %d bytes, watermarked=%t)", r.Filename, r.Pages, r.Bytes, r.Watermarked)
}
