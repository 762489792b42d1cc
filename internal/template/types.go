package template

import (
	"fmt"
)

// FieldType is the value type of a single field
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldNumber      FieldType = "number"
	FieldDate        FieldType = "date"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldFile        FieldType = "file"
)

// Valid reports whether t is one of the known field types
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldDate, FieldSelect, FieldMultiSelect, FieldFile:
		return true
	default:
		return false
	}
}

// HasOptions reports whether fields of this type carry an option set
func (t FieldType) HasOptions() bool {
	return t == FieldSelect || t == FieldMultiSelect
}

// Role distinguishes the short project-level template from the long machine-level one
type Role string

const (
	RoleProject Role = "project"
	RoleMachine Role = "machine"
)

// Validation holds the optional constraints of a field
type Validation struct {
	Min     *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Pattern string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Message string   `yaml:"message,omitempty" json:"message,omitempty"`
}

// Field describes one data point of a form
type Field struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Label       string      `yaml:"label" json:"label"`
	Type        FieldType   `yaml:"type" json:"type"`
	Placeholder string      `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	HelpText    string      `yaml:"helpText,omitempty" json:"helpText,omitempty"`
	Options     []string    `yaml:"options,omitempty" json:"options,omitempty"`
	Validation  *Validation `yaml:"validation,omitempty" json:"validation,omitempty"`
	Required    bool        `yaml:"required,omitempty" json:"required,omitempty"`
}

// Section is a named, ordered group of fields
type Section struct {
	ID     string  `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Template is the immutable form definition for one equipment family and role
type Template struct {
	ID       string    `yaml:"id" json:"id"`
	Name     string    `yaml:"name" json:"name"`
	Role     Role      `yaml:"role" json:"role"`
	Sections []Section `yaml:"sections" json:"sections"`

	// IncludesExtendedDetails marks families whose reports carry the
	// registry's extended detail attributes.
	IncludesExtendedDetails bool `yaml:"includesExtendedDetails,omitempty" json:"includesExtendedDetails,omitempty"`
}

// Clone returns a deep copy that shares no slices with t
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := *t
	out.Sections = CloneSections(t.Sections)
	return &out
}

// CloneSections deep-copies a section list
func CloneSections(sections []Section) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = Section{ID: s.ID, Name: s.Name, Fields: make([]Field, len(s.Fields))}
		for j, f := range s.Fields {
			out[i].Fields[j] = f.Clone()
		}
	}
	return out
}

// Clone deep-copies a field definition
func (f Field) Clone() Field {
	out := f
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	if f.Validation != nil {
		v := *f.Validation
		if f.Validation.Min != nil {
			m := *f.Validation.Min
			v.Min = &m
		}
		if f.Validation.Max != nil {
			m := *f.Validation.Max
			v.Max = &m
		}
		out.Validation = &v
	}
	return out
}

// Fields returns every field of the template in section order
func (t *Template) Fields() []Field {
	if t == nil {
		return nil
	}
	var out []Field
	for _, s := range t.Sections {
		out = append(out, s.Fields...)
	}
	return out
}

// Field looks up a field by name across all sections
func (t *Template) Field(name string) (Field, bool) {
	if t == nil {
		return Field{}, false
	}
	for _, s := range t.Sections {
		for _, f := range s.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return Field{}, false
}

// Validate checks the structural invariants of the template
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template %q: family name cannot be empty", t.ID)
	}
	if t.Role != RoleProject && t.Role != RoleMachine {
		return fmt.Errorf("template %q: invalid role %q", t.ID, t.Role)
	}

	sectionIDs := make(map[string]bool, len(t.Sections))
	for _, s := range t.Sections {
		if sectionIDs[s.ID] {
			return fmt.Errorf("template %q: duplicate section id %q", t.ID, s.ID)
		}
		sectionIDs[s.ID] = true
		if err := s.Validate(); err != nil {
			return fmt.Errorf("template %q: %w", t.ID, err)
		}
	}
	return nil
}

// Validate checks field uniqueness and option invariants within the section
func (s Section) Validate() error {
	ids := make(map[string]bool, len(s.Fields))
	names := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("section %q: field %q has no name", s.ID, f.ID)
		}
		if ids[f.ID] {
			return fmt.Errorf("section %q: duplicate field id %q", s.ID, f.ID)
		}
		if names[f.Name] {
			return fmt.Errorf("section %q: duplicate field name %q", s.ID, f.Name)
		}
		ids[f.ID] = true
		names[f.Name] = true

		if !f.Type.Valid() {
			return fmt.Errorf("section %q: field %q has unknown type %q", s.ID, f.Name, f.Type)
		}
		if f.Type.HasOptions() && len(f.Options) == 0 {
			return fmt.Errorf("section %q: %s field %q requires options", s.ID, f.Type, f.Name)
		}
		if !f.Type.HasOptions() && len(f.Options) > 0 {
			return fmt.Errorf("section %q: %s field %q cannot declare options", s.ID, f.Type, f.Name)
		}
	}
	return nil
}
