package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Requip-Digital/Inspection-Tool/internal/record"
	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "inspection.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func machineTemplate() *template.Template {
	return &template.Template{
		ID:   "a-machine",
		Name: "A",
		Role: template.RoleMachine,
		Sections: []template.Section{{
			ID:   "general",
			Name: "General",
			Fields: []template.Field{
				{ID: "label1", Name: "label1", Label: "Label1", Type: template.FieldNumber},
				{ID: "built", Name: "built", Label: "Built", Type: template.FieldDate},
				{ID: "shedding", Name: "shedding", Label: "Shedding", Type: template.FieldMultiSelect, Options: []string{"Cam", "Dobby"}},
			},
		}},
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestNewMigratesInMemoryDatabase(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	_, err = New(db)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable("projects"))
	assert.True(t, db.Migrator().HasTable("machines"))
}

func TestStorePing(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
	assert.NotNil(t, s.DB())
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &record.Project{
		ID:        "p1",
		Name:      "Pune Mill",
		Family:    "A",
		Owner:     "alice",
		Details:   map[string]record.Value{"city": record.Text("Pune"), "looms": record.Number(12)},
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateProject(ctx, p))

	m := &record.Machine{
		ID:          "m1",
		ProjectID:   "p1",
		Name:        "Loom 1",
		SheetNumber: 1,
		Family:      "A",
		Sections:    record.NewMachineSections(machineTemplate()),
	}
	record.ApplyValues(m.Sections, map[string]any{
		"label1":   "42",
		"built":    "2019-05-01",
		"shedding": []any{"Cam"},
	})
	require.NoError(t, s.CreateMachine(ctx, m))

	got, err := s.GetProject(ctx, "p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Pune", got.Details["city"].String())
	n, ok := got.Details["looms"].Number()
	assert.True(t, ok)
	assert.Equal(t, 12.0, n)
	assert.Equal(t, []record.MachineRef{{ID: "m1", Name: "Loom 1"}}, got.Machines)

	gm, err := s.GetMachine(ctx, "m1")
	require.NoError(t, err)
	fields := gm.Sections[0].Fields
	require.Len(t, fields, 3)
	v, ok := fields[0].Value.Number()
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)
	assert.Equal(t, record.KindDate, fields[1].Value.Kind())
	assert.Equal(t, []string{"Cam"}, fields[2].Value.List())
	assert.Equal(t, []string{"Cam", "Dobby"}, fields[2].Options)

	_, err = s.GetProject(ctx, "p1", "bob")
	assert.ErrorIs(t, err, record.ErrNotFound)
	_, err = s.GetMachine(ctx, "missing")
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestStoreMachineReferences(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateProject(ctx, &record.Project{ID: "p1", Owner: "alice", Name: "P"}))

	for i, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, s.CreateMachine(ctx, &record.Machine{
			ID: id, ProjectID: "p1", Name: "Loom " + id, SheetNumber: 3 - i,
		}))
	}

	list, err := s.ListMachines(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "m3", list[0].ID)

	m2, err := s.GetMachine(ctx, "m2")
	require.NoError(t, err)
	m2.Name = "Renamed"
	require.NoError(t, s.UpdateMachine(ctx, m2))

	require.NoError(t, s.DeleteMachine(ctx, "m1"))

	p, err := s.GetProject(ctx, "p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []record.MachineRef{{ID: "m2", Name: "Renamed"}, {ID: "m3", Name: "Loom m3"}}, p.Machines)

	assert.ErrorIs(t, s.CreateMachine(ctx, &record.Machine{ID: "m4", ProjectID: "missing"}), record.ErrNotFound)
}

func TestStoreUpdateProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateProject(ctx, &record.Project{ID: "p1", Owner: "alice", Name: "P"}))
	require.NoError(t, s.CreateMachine(ctx, &record.Machine{ID: "m1", ProjectID: "p1", Name: "Loom"}))

	p, err := s.GetProject(ctx, "p1", "alice")
	require.NoError(t, err)
	p.Name = "Renamed"
	p.Details["city"] = record.Text("Surat")
	p.Machines = nil
	require.NoError(t, s.UpdateProject(ctx, p))

	got, err := s.GetProject(ctx, "p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "Surat", got.Details["city"].String())
	assert.Len(t, got.Machines, 1)

	p.Owner = "bob"
	assert.ErrorIs(t, s.UpdateProject(ctx, p), record.ErrNotFound)
}

func TestStoreCascadeDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateProject(ctx, &record.Project{ID: "p1", Owner: "alice"}))
	require.NoError(t, s.CreateProject(ctx, &record.Project{ID: "p2", Owner: "alice"}))
	require.NoError(t, s.CreateMachine(ctx, &record.Machine{ID: "m1", ProjectID: "p1"}))
	require.NoError(t, s.CreateMachine(ctx, &record.Machine{ID: "m2", ProjectID: "p1"}))
	require.NoError(t, s.CreateMachine(ctx, &record.Machine{ID: "m3", ProjectID: "p2"}))

	_, err := s.DeleteProject(ctx, "p1", "bob")
	assert.ErrorIs(t, err, record.ErrNotFound)

	removed, err := s.DeleteProject(ctx, "p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	orphans, err := s.ListMachines(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, orphans)

	projects, err := s.ListProjects(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "p2", projects[0].ID)

	_, err = s.GetMachine(ctx, "m3")
	assert.NoError(t, err)
}
