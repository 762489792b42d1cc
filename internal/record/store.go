package record

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a project or machine does not exist or is
// not visible to the requesting owner
var ErrNotFound = errors.New("record not found")

// Store persists projects and machines. Implementations return copies so
// callers never share state with the store.
type Store interface {
	CreateProject(ctx context.Context, p *Project) error
	// GetProject looks a project up by id and owner
	GetProject(ctx context.Context, id, owner string) (*Project, error)
	ListProjects(ctx context.Context, owner string) ([]*Project, error)
	UpdateProject(ctx context.Context, p *Project) error
	// DeleteProject removes the project and every machine whose ProjectID
	// matches it, returning the number of machines removed
	DeleteProject(ctx context.Context, id, owner string) (int, error)

	// CreateMachine stores m and appends its reference to the owning project
	CreateMachine(ctx context.Context, m *Machine) error
	GetMachine(ctx context.Context, id string) (*Machine, error)
	ListMachines(ctx context.Context, projectID string) ([]*Machine, error)
	// UpdateMachine replaces m and keeps the project reference name in sync
	UpdateMachine(ctx context.Context, m *Machine) error
	// DeleteMachine removes m and its reference from the owning project
	DeleteMachine(ctx context.Context, id string) error

	Close() error
}
