package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/Requip-Digital/Inspection-Tool/internal/record"
	reporterrors "github.com/Requip-Digital/Inspection-Tool/internal/report/errors"
	"github.com/Requip-Digital/Inspection-Tool/internal/report/layout"
	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

// ProjectSectionTitle is the banner above the project details table
const ProjectSectionTitle = "PROJECT INFORMATION"

const machineBannerPrefix = "MACHINE: "

const (
	projectGap = 6.0
	machineGap = 12.0
	// below this much space the next machine starts on a new page
	machineBreakRemaining = 100.0
)

// MachineResolver loads the full snapshot of a referenced machine
type MachineResolver interface {
	GetMachine(ctx context.Context, id string) (*record.Machine, error)
}

// TemplateSource provides project templates and the extended attributes
type TemplateSource interface {
	Project(family string) (*template.Template, bool)
	ExtendedDetails() []template.Field
}

// PhotoSource resolves a file field value to image data
type PhotoSource interface {
	Photo(ref string) ([]byte, error)
}

// DirPhotos serves photos from a local directory
type DirPhotos string

// Photo reads ref relative to the directory. Paths escaping the directory
// are rejected.
func (d DirPhotos) Photo(ref string) ([]byte, error) {
	root := filepath.Clean(string(d))
	path := filepath.Join(root, filepath.Clean("/"+ref))
	if !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return nil, fmt.Errorf("photo %q is outside %s", ref, root)
	}
	return os.ReadFile(path)
}

type state int

const (
	stateStart state = iota
	stateHeader
	stateProject
	stateMachines
	stateEnd
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "Start"
	case stateHeader:
		return "Header"
	case stateProject:
		return "ProjectSection"
	case stateMachines:
		return "MachineSection"
	case stateEnd:
		return "End"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Assembler lays a project and its machines out into a paginated document
type Assembler struct {
	templates TemplateSource
	machines  MachineResolver
	photos    PhotoSource
}

// NewAssembler creates an assembler. photos may be nil to skip photo blocks.
func NewAssembler(templates TemplateSource, machines MachineResolver, photos PhotoSource) *Assembler {
	return &Assembler{templates: templates, machines: machines, photos: photos}
}

// assembly is the state of one Assemble call
type assembly struct {
	a        *Assembler
	ctx      context.Context
	project  *record.Project
	header   *Header
	info     layout.Info
	doc      *layout.Document
	cursor   *layout.Cursor
	warnings *reporterrors.Collection
}

// Assemble produces the finalized document for p. Missing templates,
// dangling machine references and unreadable photos degrade the report
// and are recorded in the returned collection.
func (a *Assembler) Assemble(ctx context.Context, p *record.Project, header *Header, info layout.Info) (*layout.Document, *reporterrors.Collection, error) {
	if header == nil {
		header = &Header{Title: ReportTitle}
	}
	run := &assembly{
		a:        a,
		ctx:      ctx,
		project:  p,
		header:   header,
		info:     info,
		warnings: reporterrors.NewCollection(),
	}

	st := stateStart
	for st != stateEnd {
		next, err := run.step(st)
		if err != nil {
			return nil, run.warnings, fmt.Errorf("report %s failed in %s: %w", p.ID, st, err)
		}
		klog.V(4).Infof("Report %s: %s -> %s", p.ID, st, next)
		st = next
	}
	if err := run.doc.Finalize(); err != nil {
		return nil, run.warnings, reporterrors.Wrap(reporterrors.ErrorTypeFinalized, "cannot finalize document", err)
	}
	return run.doc, run.warnings, nil
}

func (r *assembly) step(st state) (state, error) {
	switch st {
	case stateStart:
		r.doc = layout.NewDocument(r.info)
		r.cursor = layout.NewCursor(r.doc, r.header.Draw)
		return stateHeader, nil
	case stateHeader:
		return stateProject, r.cursor.NewPage()
	case stateProject:
		return stateMachines, r.renderProject()
	case stateMachines:
		return stateEnd, r.renderMachines()
	default:
		return stateEnd, nil
	}
}

func (r *assembly) warn(t reporterrors.ErrorType, msg, context string) {
	r.warnings.Add(reporterrors.New(t, msg).WithContext(context))
	klog.Warningf("Report %s: %s: %s", r.project.ID, msg, context)
}

func (r *assembly) renderProject() error {
	tmpl, ok := r.a.templates.Project(r.project.Family)
	if !ok {
		r.warn(reporterrors.ErrorTypeConfiguration, "no project template for family", r.project.Family)
	}
	rows := FilterRows(Entries(record.BindProject(r.project, tmpl, r.a.templates.ExtendedDetails())))

	if err := RenderSection(r.cursor, ProjectSectionTitle); err != nil {
		return err
	}
	if _, err := RenderTable(r.cursor, rows); err != nil {
		return err
	}
	r.cursor.Advance(projectGap)
	return nil
}

func (r *assembly) renderMachines() error {
	rendered := 0
	for _, ref := range r.project.Machines {
		m, err := r.a.machines.GetMachine(r.ctx, ref.ID)
		if err != nil {
			r.warn(reporterrors.ErrorTypeResolution, "skipping unresolved machine", fmt.Sprintf("%s: %v", ref.ID, err))
			continue
		}
		if m.ProjectID != r.project.ID {
			r.warn(reporterrors.ErrorTypeResolution, "skipping machine of another project", ref.ID)
			continue
		}

		// separate from the previous machine only once this one resolved,
		// so skipped refs never leave a blank trailing page
		if rendered > 0 {
			if r.cursor.Remaining() < machineBreakRemaining {
				if err := r.cursor.NewPage(); err != nil {
					return err
				}
			} else {
				r.cursor.Advance(machineGap)
			}
		}
		if err := r.renderMachine(m); err != nil {
			return err
		}
		rendered++
	}
	return nil
}

func (r *assembly) renderMachine(m *record.Machine) error {
	if err := RenderSection(r.cursor, machineBannerPrefix+strings.ToUpper(m.Name)); err != nil {
		return err
	}
	if len(m.Sections) == 0 {
		return RenderPlaceholder(r.cursor, NoSectionsText)
	}

	bound := record.BindMachineSections(m)
	for i, s := range m.Sections {
		if err := RenderSubsection(r.cursor, s.Name); err != nil {
			return err
		}
		if len(s.Fields) == 0 {
			if err := RenderPlaceholder(r.cursor, NoFieldsText); err != nil {
				return err
			}
			continue
		}
		if _, err := RenderTable(r.cursor, FilterRows(Entries(bound[i].Rows))); err != nil {
			return err
		}
		if err := r.renderPhotos(m, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *assembly) renderPhotos(m *record.Machine, s record.SectionSnapshot) error {
	if r.a.photos == nil {
		return nil
	}
	for _, f := range s.Fields {
		if f.Type != template.FieldFile || f.Value.IsNull() {
			continue
		}
		refs := f.Value.List()
		if f.Value.Kind() != record.KindList {
			refs = []string{f.Value.String()}
		}
		for _, ref := range refs {
			data, err := r.a.photos.Photo(ref)
			if err == nil {
				err = RenderImage(r.cursor, data)
				if err == nil {
					continue
				}
				if errors.Is(err, layout.ErrFinalized) {
					return err
				}
			}
			r.warn(reporterrors.ErrorTypeAsset, "photo unavailable", fmt.Sprintf("machine %s field %s: %s", m.ID, f.Name, ref))
			if err := RenderPlaceholder(r.cursor, NoImageText); err != nil {
				return err
			}
		}
	}
	return nil
}
