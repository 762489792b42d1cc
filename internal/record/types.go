package record

import (
	"encoding/json"
	"time"

	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

// MachineRef is the lightweight machine entry kept on a project for report
// assembly
type MachineRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project is a captured inspection project. Details holds a subset of the
// project-level template fields of its family.
type Project struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Family    string           `json:"family"`
	Owner     string           `json:"owner"`
	Details   map[string]Value `json:"details"`
	Machines  []MachineRef     `json:"machines"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// FieldSnapshot is a field definition frozen at capture time together with
// its captured value
type FieldSnapshot struct {
	template.Field
	Value Value `json:"value"`
}

// UnmarshalJSON restores the typed value from its stored JSON form using the
// snapshot's own field type
func (f *FieldSnapshot) UnmarshalJSON(data []byte) error {
	var aux struct {
		template.Field
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	f.Field = aux.Field
	f.Value = Null()
	if len(aux.Value) == 0 {
		return nil
	}
	var v Value
	if err := json.Unmarshal(aux.Value, &v); err != nil {
		return err
	}
	f.Value = Coerce(f.Type, v)
	return nil
}

// SectionSnapshot is a section definition frozen at capture time
type SectionSnapshot struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Fields []FieldSnapshot `json:"fields"`
}

// Machine is one inspected machine of a project
type Machine struct {
	ID          string            `json:"id"`
	ProjectID   string            `json:"projectId"`
	Name        string            `json:"name"`
	SheetNumber int               `json:"sheetNumber"`
	Family      string            `json:"family"`
	Sections    []SectionSnapshot `json:"sections"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Ref returns the project-side reference to m
func (m *Machine) Ref() MachineRef {
	return MachineRef{ID: m.ID, Name: m.Name}
}

// Clone deep-copies the project
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	if p.Details != nil {
		out.Details = make(map[string]Value, len(p.Details))
		for k, v := range p.Details {
			out.Details[k] = v.clone()
		}
	}
	if p.Machines != nil {
		out.Machines = append([]MachineRef(nil), p.Machines...)
	}
	return &out
}

// Clone deep-copies the machine including its snapshot
func (m *Machine) Clone() *Machine {
	if m == nil {
		return nil
	}
	out := *m
	out.Sections = CloneSections(m.Sections)
	return &out
}
