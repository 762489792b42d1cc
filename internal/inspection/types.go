package inspection

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

// Request Types

// CreateProjectRequest creates an empty project of a family
type CreateProjectRequest struct {
	Owner   string         `json:"owner"`
	Name    string         `json:"name"`
	Family  string         `json:"family"`
	Details map[string]any `json:"details"`
}

// UpdateProjectRequest changes the name and/or details of a project. A
// details key present with a nil value removes that attribute.
type UpdateProjectRequest struct {
	ID      string         `json:"id"`
	Owner   string         `json:"owner"`
	Name    *string        `json:"name,omitempty"`
	Details map[string]any `json:"details"`
}

// CreateMachineRequest adds a machine to a project
type CreateMachineRequest struct {
	Owner       string         `json:"owner"`
	ProjectID   string         `json:"projectId"`
	Name        string         `json:"name"`
	SheetNumber int            `json:"sheetNumber"`
	Values      map[string]any `json:"values"`
}

// UpdateMachineRequest changes machine attributes and field values. A value
// key present with a nil value clears that field.
type UpdateMachineRequest struct {
	ID          string         `json:"id"`
	Owner       string         `json:"owner"`
	Name        *string        `json:"name,omitempty"`
	SheetNumber *int           `json:"sheetNumber,omitempty"`
	Values      map[string]any `json:"values"`
}

// Response Types

// DeleteProjectResult reports what a cascading delete removed
type DeleteProjectResult struct {
	ProjectID       string `json:"projectId"`
	MachinesRemoved int    `json:"machinesRemoved"`
}

// ValidationError is returned when submitted input does not satisfy the
// template or the request invariants
type ValidationError struct {
	Op     string
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return fmt.Sprintf("%s: %s", e.Op, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(op string, err error) error {
	var verr *template.ValidationError
	if errors.As(err, &verr) {
		return &ValidationError{Op: op, Fields: verr.Fields, Err: err}
	}
	return &ValidationError{Op: op, Err: err}
}

func invalidField(op, field, msg string) error {
	return &ValidationError{Op: op, Fields: map[string]string{field: msg}, Err: errors.New(field + " " + msg)}
}
