package record

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used for stdio sessions and tests
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*Project
	machines map[string]*Machine
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[string]*Project),
		machines: make(map[string]*Machine),
	}
}

func (s *MemoryStore) CreateProject(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[p.ID]; exists {
		return fmt.Errorf("project %s already exists", p.ID)
	}
	s.projects[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) GetProject(_ context.Context, id, owner string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok || p.Owner != owner {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) ListProjects(_ context.Context, owner string) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Project
	for _, p := range s.projects {
		if p.Owner == owner {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateProject(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.projects[p.ID]
	if !ok || existing.Owner != p.Owner {
		return fmt.Errorf("project %s: %w", p.ID, ErrNotFound)
	}
	updated := p.Clone()
	// machine references are owned by the machine operations
	updated.Machines = existing.Machines
	s.projects[p.ID] = updated
	return nil
}

func (s *MemoryStore) DeleteProject(_ context.Context, id, owner string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok || p.Owner != owner {
		return 0, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	removed := 0
	for mid, m := range s.machines {
		if m.ProjectID == id {
			delete(s.machines, mid)
			removed++
		}
	}
	delete(s.projects, id)
	return removed, nil
}

func (s *MemoryStore) CreateMachine(_ context.Context, m *Machine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[m.ProjectID]
	if !ok {
		return fmt.Errorf("project %s: %w", m.ProjectID, ErrNotFound)
	}
	if _, exists := s.machines[m.ID]; exists {
		return fmt.Errorf("machine %s already exists", m.ID)
	}
	s.machines[m.ID] = m.Clone()
	p.Machines = append(p.Machines, m.Ref())
	return nil
}

func (s *MemoryStore) GetMachine(_ context.Context, id string) (*Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.machines[id]
	if !ok {
		return nil, fmt.Errorf("machine %s: %w", id, ErrNotFound)
	}
	return m.Clone(), nil
}

func (s *MemoryStore) ListMachines(_ context.Context, projectID string) ([]*Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Machine
	for _, m := range s.machines {
		if m.ProjectID == projectID {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SheetNumber != out[j].SheetNumber {
			return out[i].SheetNumber < out[j].SheetNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateMachine(_ context.Context, m *Machine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.machines[m.ID]; !ok {
		return fmt.Errorf("machine %s: %w", m.ID, ErrNotFound)
	}
	s.machines[m.ID] = m.Clone()
	if p, ok := s.projects[m.ProjectID]; ok {
		for i := range p.Machines {
			if p.Machines[i].ID == m.ID {
				p.Machines[i].Name = m.Name
			}
		}
	}
	return nil
}

func (s *MemoryStore) DeleteMachine(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.machines[id]
	if !ok {
		return fmt.Errorf("machine %s: %w", id, ErrNotFound)
	}
	delete(s.machines, id)
	if p, ok := s.projects[m.ProjectID]; ok {
		p.Machines = removeRef(p.Machines, id)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func removeRef(refs []MachineRef, id string) []MachineRef {
	out := refs[:0]
	for _, r := range refs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
