// Package sqlstore persists inspection records with gorm. Sections, details
// and machine references are stored as JSON columns.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Requip-Digital/Inspection-Tool/internal/record"
)

type projectRow struct {
	ID        string                  `gorm:"primaryKey;size:36"`
	Name      string                  `gorm:"size:255"`
	Family    string                  `gorm:"size:64"`
	Owner     string                  `gorm:"index;size:128"`
	Details   map[string]record.Value `gorm:"serializer:json"`
	Machines  []record.MachineRef     `gorm:"serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (projectRow) TableName() string { return "projects" }

type machineRow struct {
	ID          string                   `gorm:"primaryKey;size:36"`
	ProjectID   string                   `gorm:"index;size:36"`
	Name        string                   `gorm:"size:255"`
	SheetNumber int
	Family      string                   `gorm:"size:64"`
	Sections    []record.SectionSnapshot `gorm:"serializer:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (machineRow) TableName() string { return "machines" }

// Store implements record.Store on a gorm database
type Store struct {
	db *gorm.DB
}

var _ record.Store = (*Store)(nil)

// Open connects to the database named by driver ("sqlite" or "mysql") and
// migrates the schema
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return New(db)
}

// New wraps an open database and migrates the schema
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&projectRow{}, &machineRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateProject(ctx context.Context, p *record.Project) error {
	row := toProjectRow(p)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetProject(ctx context.Context, id, owner string) (*record.Project, error) {
	row, err := findProject(s.db.WithContext(ctx), id, owner)
	if err != nil {
		return nil, err
	}
	return row.toProject(), nil
}

func (s *Store) ListProjects(ctx context.Context, owner string) ([]*record.Project, error) {
	var rows []projectRow
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Order("created_at DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*record.Project, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toProject())
	}
	return out, nil
}

func (s *Store) UpdateProject(ctx context.Context, p *record.Project) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findProject(tx, p.ID, p.Owner)
		if err != nil {
			return err
		}
		row := toProjectRow(p)
		row.Machines = existing.Machines
		row.CreatedAt = existing.CreatedAt
		return tx.Save(&row).Error
	})
}

func (s *Store) DeleteProject(ctx context.Context, id, owner string) (int, error) {
	removed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findProject(tx, id, owner); err != nil {
			return err
		}
		result := tx.Where("project_id = ?", id).Delete(&machineRow{})
		if result.Error != nil {
			return result.Error
		}
		removed = int(result.RowsAffected)
		return tx.Delete(&projectRow{ID: id}).Error
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) CreateMachine(ctx context.Context, m *record.Machine) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p projectRow
		if err := first(tx, &p, m.ProjectID, "project"); err != nil {
			return err
		}
		row := toMachineRow(m)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		p.Machines = append(p.Machines, m.Ref())
		return tx.Save(&p).Error
	})
}

func (s *Store) GetMachine(ctx context.Context, id string) (*record.Machine, error) {
	var row machineRow
	if err := first(s.db.WithContext(ctx), &row, id, "machine"); err != nil {
		return nil, err
	}
	return row.toMachine(), nil
}

func (s *Store) ListMachines(ctx context.Context, projectID string) ([]*record.Machine, error) {
	var rows []machineRow
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("sheet_number ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*record.Machine, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toMachine())
	}
	return out, nil
}

func (s *Store) UpdateMachine(ctx context.Context, m *record.Machine) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing machineRow
		if err := first(tx, &existing, m.ID, "machine"); err != nil {
			return err
		}
		row := toMachineRow(m)
		row.CreatedAt = existing.CreatedAt
		if err := tx.Save(&row).Error; err != nil {
			return err
		}

		var p projectRow
		if err := tx.First(&p, "id = ?", m.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		for i := range p.Machines {
			if p.Machines[i].ID == m.ID {
				p.Machines[i].Name = m.Name
			}
		}
		return tx.Save(&p).Error
	})
}

func (s *Store) DeleteMachine(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row machineRow
		if err := first(tx, &row, id, "machine"); err != nil {
			return err
		}
		if err := tx.Delete(&machineRow{ID: id}).Error; err != nil {
			return err
		}

		var p projectRow
		if err := tx.First(&p, "id = ?", row.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		refs := make([]record.MachineRef, 0, len(p.Machines))
		for _, r := range p.Machines {
			if r.ID != id {
				refs = append(refs, r)
			}
		}
		p.Machines = refs
		return tx.Save(&p).Error
	})
}

// DB exposes the underlying connection for pool metrics
func (s *Store) DB() *gorm.DB { return s.db }

// Ping checks that the database answers
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func findProject(db *gorm.DB, id, owner string) (*projectRow, error) {
	var row projectRow
	err := db.Where("id = ? AND owner = ?", id, owner).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project %s: %w", id, record.ErrNotFound)
		}
		return nil, err
	}
	return &row, nil
}

func first(db *gorm.DB, dest any, id, kind string) error {
	if err := db.First(dest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s %s: %w", kind, id, record.ErrNotFound)
		}
		return err
	}
	return nil
}

func toProjectRow(p *record.Project) projectRow {
	c := p.Clone()
	return projectRow{
		ID:        c.ID,
		Name:      c.Name,
		Family:    c.Family,
		Owner:     c.Owner,
		Details:   c.Details,
		Machines:  c.Machines,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (r *projectRow) toProject() *record.Project {
	p := &record.Project{
		ID:        r.ID,
		Name:      r.Name,
		Family:    r.Family,
		Owner:     r.Owner,
		Details:   r.Details,
		Machines:  r.Machines,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if p.Details == nil {
		p.Details = make(map[string]record.Value)
	}
	return p
}

func toMachineRow(m *record.Machine) machineRow {
	return machineRow{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		Name:        m.Name,
		SheetNumber: m.SheetNumber,
		Family:      m.Family,
		Sections:    record.CloneSections(m.Sections),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (r *machineRow) toMachine() *record.Machine {
	return &record.Machine{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Name:        r.Name,
		SheetNumber: r.SheetNumber,
		Family:      r.Family,
		Sections:    r.Sections,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
