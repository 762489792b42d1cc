// Package inspection implements the record use cases: project and machine
// lifecycle, template-checked value capture and cascading deletion.
package inspection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/Requip-Digital/Inspection-Tool/internal/metrics"
	"github.com/Requip-Digital/Inspection-Tool/internal/record"
	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

// Service orchestrates the record store and the template registry
type Service struct {
	store       record.Store
	registry    *template.Registry
	maxMachines int
	now         func() time.Time
	newID       func() string
}

// NewService creates a record service. maxMachines bounds the number of
// machines per project; zero means unbounded.
func NewService(store record.Store, registry *template.Registry, maxMachines int) *Service {
	return &Service{
		store:       store,
		registry:    registry,
		maxMachines: maxMachines,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// Registry returns the template registry the service validates against
func (s *Service) Registry() *template.Registry {
	return s.registry
}

// CreateProject creates an empty project after validating its details
// against the family's project template
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (*record.Project, error) {
	const op = "create project"
	name := record.SanitizeText(req.Name)
	if name == "" {
		return nil, invalidField(op, "name", "is required")
	}
	tmpl, ok := s.registry.Project(req.Family)
	if !ok {
		return nil, invalidField(op, "family", fmt.Sprintf("has no project template: %q", req.Family))
	}

	values := record.SanitizeValues(req.Details)
	if err := tmpl.ValidateValues(values, false); err != nil {
		return nil, invalid(op, err)
	}

	now := s.now()
	p := &record.Project{
		ID:        s.newID(),
		Name:      name,
		Family:    req.Family,
		Owner:     req.Owner,
		Details:   make(map[string]record.Value),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.applyDetails(p, tmpl, values)

	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store project: %w", err)
	}
	klog.V(1).Infof("Created project %s (%s) for %s", p.ID, p.Family, p.Owner)
	metrics.RecordOperation("project", "create")
	return p, nil
}

// UpdateProject renames a project and/or merges detail changes
func (s *Service) UpdateProject(ctx context.Context, req UpdateProjectRequest) (*record.Project, error) {
	const op = "update project"
	p, err := s.store.GetProject(ctx, req.ID, req.Owner)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := record.SanitizeText(*req.Name)
		if name == "" {
			return nil, invalidField(op, "name", "cannot be empty")
		}
		p.Name = name
	}

	if len(req.Details) > 0 {
		tmpl, ok := s.registry.Project(p.Family)
		if !ok {
			return nil, invalidField(op, "family", fmt.Sprintf("has no project template: %q", p.Family))
		}
		values := record.SanitizeValues(req.Details)
		if err := tmpl.ValidateValues(values, true); err != nil {
			return nil, invalid(op, err)
		}
		s.applyDetails(p, tmpl, values)
	}

	p.UpdatedAt = s.now()
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return s.store.GetProject(ctx, p.ID, p.Owner)
}

// applyDetails coerces submitted details into the project. Keys that are
// neither template fields nor enabled extended attributes are dropped.
func (s *Service) applyDetails(p *record.Project, tmpl *template.Template, values map[string]any) {
	known := make(map[string]template.Field)
	for _, f := range tmpl.Fields() {
		known[f.Name] = f
	}
	if tmpl.IncludesExtendedDetails {
		for _, f := range s.registry.ExtendedDetails() {
			if _, ok := known[f.Name]; !ok {
				known[f.Name] = f
			}
		}
	}

	var dropped []string
	for name, raw := range values {
		f, ok := known[name]
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		v := record.Coerce(f.Type, raw)
		if v.IsNull() {
			delete(p.Details, name)
			continue
		}
		p.Details[name] = v
	}
	if len(dropped) > 0 {
		klog.Warningf("Project %s: ignoring details not defined for family %s: %s", p.ID, p.Family, strings.Join(dropped, ", "))
	}
}

// GetProject returns a project visible to owner
func (s *Service) GetProject(ctx context.Context, id, owner string) (*record.Project, error) {
	return s.store.GetProject(ctx, id, owner)
}

// ListProjects returns every project of owner, newest first
func (s *Service) ListProjects(ctx context.Context, owner string) ([]*record.Project, error) {
	return s.store.ListProjects(ctx, owner)
}

// DeleteProject removes a project and all of its machines
func (s *Service) DeleteProject(ctx context.Context, id, owner string) (*DeleteProjectResult, error) {
	removed, err := s.store.DeleteProject(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Deleted project %s and %d machine(s)", id, removed)
	metrics.RecordOperation("project", "delete")
	return &DeleteProjectResult{ProjectID: id, MachinesRemoved: removed}, nil
}

// CreateMachine snapshots the family's machine template, slots the
// submitted values into it by name and attaches the machine to its project
func (s *Service) CreateMachine(ctx context.Context, req CreateMachineRequest) (*record.Machine, error) {
	const op = "create machine"
	p, err := s.store.GetProject(ctx, req.ProjectID, req.Owner)
	if err != nil {
		return nil, err
	}
	name := record.SanitizeText(req.Name)
	if name == "" {
		return nil, invalidField(op, "name", "is required")
	}
	if req.SheetNumber < 0 {
		return nil, invalidField(op, "sheetNumber", "cannot be negative")
	}
	if s.maxMachines > 0 && len(p.Machines) >= s.maxMachines {
		return nil, invalidField(op, "projectId", fmt.Sprintf("already has the maximum of %d machines", s.maxMachines))
	}

	tmpl, ok := s.registry.Machine(p.Family)
	if !ok {
		return nil, invalidField(op, "family", fmt.Sprintf("has no machine template: %q", p.Family))
	}
	values := record.SanitizeValues(req.Values)
	if err := tmpl.ValidateValues(values, false); err != nil {
		return nil, invalid(op, err)
	}

	now := s.now()
	m := &record.Machine{
		ID:          s.newID(),
		ProjectID:   p.ID,
		Name:        name,
		SheetNumber: req.SheetNumber,
		Family:      p.Family,
		Sections:    record.NewMachineSections(tmpl),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if unknown := record.ApplyValues(m.Sections, values); len(unknown) > 0 {
		klog.Warningf("Machine %s: ignoring values for unknown fields: %s", m.ID, strings.Join(unknown, ", "))
	}

	if err := s.store.CreateMachine(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to store machine: %w", err)
	}
	klog.V(1).Infof("Created machine %s in project %s", m.ID, p.ID)
	metrics.RecordOperation("machine", "create")
	return m, nil
}

// GetMachine returns a machine whose project is visible to owner
func (s *Service) GetMachine(ctx context.Context, id, owner string) (*record.Machine, error) {
	m, err := s.store.GetMachine(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetProject(ctx, m.ProjectID, owner); err != nil {
		return nil, fmt.Errorf("machine %s: %w", id, record.ErrNotFound)
	}
	return m, nil
}

// ListMachines returns the machines of a project visible to owner, ordered
// by sheet number
func (s *Service) ListMachines(ctx context.Context, projectID, owner string) ([]*record.Machine, error) {
	if _, err := s.store.GetProject(ctx, projectID, owner); err != nil {
		return nil, err
	}
	return s.store.ListMachines(ctx, projectID)
}

// UpdateMachine mutates field values in place, validated against the
// machine's own snapshot rather than the current template
func (s *Service) UpdateMachine(ctx context.Context, req UpdateMachineRequest) (*record.Machine, error) {
	const op = "update machine"
	m, err := s.GetMachine(ctx, req.ID, req.Owner)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := record.SanitizeText(*req.Name)
		if name == "" {
			return nil, invalidField(op, "name", "cannot be empty")
		}
		m.Name = name
	}
	if req.SheetNumber != nil {
		if *req.SheetNumber < 0 {
			return nil, invalidField(op, "sheetNumber", "cannot be negative")
		}
		m.SheetNumber = *req.SheetNumber
	}

	if len(req.Values) > 0 {
		values := record.SanitizeValues(req.Values)
		if err := snapshotTemplate(m).ValidateValues(values, true); err != nil {
			return nil, invalid(op, err)
		}
		if unknown := record.ApplyValues(m.Sections, values); len(unknown) > 0 {
			klog.Warningf("Machine %s: ignoring values for unknown fields: %s", m.ID, strings.Join(unknown, ", "))
		}
	}

	m.UpdatedAt = s.now()
	if err := s.store.UpdateMachine(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update machine: %w", err)
	}
	metrics.RecordOperation("machine", "update")
	return m, nil
}

// DeleteMachine removes a machine and detaches it from its project
func (s *Service) DeleteMachine(ctx context.Context, id, owner string) error {
	if _, err := s.GetMachine(ctx, id, owner); err != nil {
		return err
	}
	if err := s.store.DeleteMachine(ctx, id); err != nil {
		return err
	}
	klog.V(1).Infof("Deleted machine %s", id)
	metrics.RecordOperation("machine", "delete")
	return nil
}

// ReapplyTemplate rebuilds a machine's snapshot from the current machine
// template of its family, carrying values over by field name
func (s *Service) ReapplyTemplate(ctx context.Context, id, owner string) (*record.Machine, error) {
	m, err := s.GetMachine(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	tmpl, ok := s.registry.Machine(m.Family)
	if !ok {
		return nil, invalidField("reapply template", "family", fmt.Sprintf("has no machine template: %q", m.Family))
	}
	m.Sections = record.ReapplyTemplate(m.Sections, tmpl)
	m.UpdatedAt = s.now()
	if err := s.store.UpdateMachine(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update machine: %w", err)
	}
	klog.V(1).Infof("Re-applied %s template to machine %s", tmpl.ID, m.ID)
	return m, nil
}

// snapshotTemplate views a machine's frozen snapshot as a template so
// updates are checked against the shape the machine was captured with
func snapshotTemplate(m *record.Machine) *template.Template {
	t := &template.Template{ID: m.Family + "-snapshot", Name: m.Family, Role: template.RoleMachine}
	for _, s := range m.Sections {
		sec := template.Section{ID: s.ID, Name: s.Name, Fields: make([]template.Field, len(s.Fields))}
		for i, f := range s.Fields {
			sec.Fields[i] = f.Field
		}
		t.Sections = append(t.Sections, sec)
	}
	return t
}
