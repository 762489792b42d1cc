package inspection

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Requip-Digital/Inspection-Tool/internal/record"
	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

func newTestService(t *testing.T, maxMachines int) *Service {
	t.Helper()
	reg, err := template.DefaultRegistry()
	require.NoError(t, err)
	s := NewService(record.NewMemoryStore(), reg, maxMachines)
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

func toyotaDetails() map[string]any {
	return map[string]any{
		"inspectionDate":   "2024-11-12",
		"city":             "Pune",
		"originallyBought": "New",
		"mfgOrigin":        2012,
		"nearestAirport":   "PNQ",
		"condition":        "Good",
	}
}

func createToyotaProject(t *testing.T, s *Service) *record.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), CreateProjectRequest{
		Owner: "alice", Name: "Pune Mill", Family: "Toyota", Details: toyotaDetails(),
	})
	require.NoError(t, err)
	return p
}

func TestCreateProject(t *testing.T) {
	s := newTestService(t, 0)
	p := createToyotaProject(t, s)

	assert.Equal(t, "id-1", p.ID)
	assert.Empty(t, p.Machines)
	assert.Equal(t, record.KindDate, p.Details["inspectionDate"].Kind())
	n, ok := p.Details["mfgOrigin"].Number()
	assert.True(t, ok)
	assert.Equal(t, 2012.0, n)

	got, err := s.GetProject(context.Background(), p.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Pune Mill", got.Name)
}

func TestCreateProjectValidation(t *testing.T) {
	s := newTestService(t, 0)
	ctx := context.Background()

	tests := []struct {
		name      string
		req       CreateProjectRequest
		wantField string
	}{
		{"missing name", CreateProjectRequest{Family: "Toyota", Details: toyotaDetails()}, "name"},
		{"markup-only name", CreateProjectRequest{Name: "<b></b>", Family: "Toyota", Details: toyotaDetails()}, "name"},
		{"unknown family", CreateProjectRequest{Name: "x", Family: "Sulzer"}, "family"},
		{"missing required details", CreateProjectRequest{Name: "x", Family: "Toyota", Details: map[string]any{"city": "Pune"}}, "condition"},
		{"year out of range", CreateProjectRequest{Name: "x", Family: "Toyota", Details: func() map[string]any {
			d := toyotaDetails()
			d["mfgOrigin"] = 1800
			return d
		}()}, "mfgOrigin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateProject(ctx, tt.req)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.wantField)
		})
	}
}

func TestCreateProjectDropsUnknownDetails(t *testing.T) {
	s := newTestService(t, 0)
	details := toyotaDetails()
	details["millName"] = "Not a Toyota attribute"
	details["city"] = "<i>Pune</i>"

	p, err := s.CreateProject(context.Background(), CreateProjectRequest{
		Owner: "alice", Name: "Pune Mill", Family: "Toyota", Details: details,
	})
	require.NoError(t, err)
	assert.NotContains(t, p.Details, "millName")
	assert.Equal(t, "Pune", p.Details["city"].String())
}

func TestUpdateProject(t *testing.T) {
	s := newTestService(t, 0)
	ctx := context.Background()
	p := createToyotaProject(t, s)

	name := "Surat Mill"
	got, err := s.UpdateProject(ctx, UpdateProjectRequest{
		ID: p.ID, Owner: "alice", Name: &name,
		Details: map[string]any{"city": "Surat"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Surat Mill", got.Name)
	assert.Equal(t, "Surat", got.Details["city"].String())
	assert.Equal(t, "Good", got.Details["condition"].String())

	_, err = s.UpdateProject(ctx, UpdateProjectRequest{ID: p.ID, Owner: "bob", Name: &name})
	assert.ErrorIs(t, err, record.ErrNotFound)

	_, err = s.UpdateProject(ctx, UpdateProjectRequest{ID: p.ID, Owner: "alice", Details: map[string]any{"condition": "Broken"}})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMachineLifecycle(t *testing.T) {
	s := newTestService(t, 0)
	ctx := context.Background()
	p := createToyotaProject(t, s)

	m, err := s.CreateMachine(ctx, CreateMachineRequest{
		Owner: "alice", ProjectID: p.ID, Name: "Loom 1", SheetNumber: 1,
		Values: map[string]any{"millMachineNo": "M-1", "model": "JAT 710", "workingWidth": 190, "bogus": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Toyota", m.Family)
	assert.Len(t, m.Sections, 8)

	form := record.FormValues(m)
	assert.Equal(t, "190", form["workingWidth"])
	assert.Equal(t, "", form["yearOfMfg"])
	assert.NotContains(t, form, "bogus")

	proj, err := s.GetProject(ctx, p.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []record.MachineRef{{ID: m.ID, Name: "Loom 1"}}, proj.Machines)

	name := "Loom A"
	updated, err := s.UpdateMachine(ctx, UpdateMachineRequest{
		ID: m.ID, Owner: "alice", Name: &name,
		Values: map[string]any{"yearOfMfg": "2016", "workingWidth": nil},
	})
	require.NoError(t, err)
	form = record.FormValues(updated)
	assert.Equal(t, 2016.0, form["yearOfMfg"])
	assert.Equal(t, "", form["workingWidth"])

	proj, _ = s.GetProject(ctx, p.ID, "alice")
	assert.Equal(t, "Loom A", proj.Machines[0].Name)

	_, err = s.UpdateMachine(ctx, UpdateMachineRequest{ID: m.ID, Owner: "alice", Values: map[string]any{"yearOfMfg": 1990}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Only above 2000", verr.Fields["yearOfMfg"])

	_, err = s.GetMachine(ctx, m.ID, "bob")
	assert.ErrorIs(t, err, record.ErrNotFound)

	require.NoError(t, s.DeleteMachine(ctx, m.ID, "alice"))
	proj, _ = s.GetProject(ctx, p.ID, "alice")
	assert.Empty(t, proj.Machines)
}

func TestCreateMachineGuards(t *testing.T) {
	s := newTestService(t, 1)
	ctx := context.Background()
	p := createToyotaProject(t, s)
	values := map[string]any{"millMachineNo": "M-1", "model": "JAT 710"}

	_, err := s.CreateMachine(ctx, CreateMachineRequest{Owner: "bob", ProjectID: p.ID, Name: "x", Values: values})
	assert.ErrorIs(t, err, record.ErrNotFound)

	_, err = s.CreateMachine(ctx, CreateMachineRequest{Owner: "alice", ProjectID: p.ID, Name: "x", Values: map[string]any{}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "model")

	_, err = s.CreateMachine(ctx, CreateMachineRequest{Owner: "alice", ProjectID: p.ID, Name: "x", Values: values})
	require.NoError(t, err)

	_, err = s.CreateMachine(ctx, CreateMachineRequest{Owner: "alice", ProjectID: p.ID, Name: "y", Values: values})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "maximum of 1")
}

func TestDeleteProjectCascades(t *testing.T) {
	s := newTestService(t, 0)
	ctx := context.Background()
	p := createToyotaProject(t, s)
	values := map[string]any{"millMachineNo": "M-1", "model": "JAT 710"}

	var ids []string
	for i := 0; i < 3; i++ {
		m, err := s.CreateMachine(ctx, CreateMachineRequest{Owner: "alice", ProjectID: p.ID, Name: fmt.Sprintf("Loom %d", i), Values: values})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	result, err := s.DeleteProject(ctx, p.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, result.MachinesRemoved)

	for _, id := range ids {
		_, err := s.store.GetMachine(ctx, id)
		assert.ErrorIs(t, err, record.ErrNotFound)
	}
	_, err = s.GetProject(ctx, p.ID, "alice")
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestReapplyTemplate(t *testing.T) {
	s := newTestService(t, 0)
	ctx := context.Background()
	p := createToyotaProject(t, s)

	m, err := s.CreateMachine(ctx, CreateMachineRequest{
		Owner: "alice", ProjectID: p.ID, Name: "Loom",
		Values: map[string]any{"millMachineNo": "M-1", "model": "JAT 710"},
	})
	require.NoError(t, err)

	// simulate a machine captured with an older, shorter template
	m.Sections = m.Sections[:1]
	require.NoError(t, s.store.UpdateMachine(ctx, m))

	got, err := s.ReapplyTemplate(ctx, m.ID, "alice")
	require.NoError(t, err)
	assert.Len(t, got.Sections, 8)
	assert.Equal(t, "JAT 710", record.FormValues(got)["model"])
}

func TestListMachines(t *testing.T) {
	s := newTestService(t, 0)
	ctx := context.Background()
	p := createToyotaProject(t, s)

	for _, sheet := range []int{3, 1, 2} {
		_, err := s.CreateMachine(ctx, CreateMachineRequest{
			Owner: "alice", ProjectID: p.ID, Name: fmt.Sprintf("Loom %d", sheet), SheetNumber: sheet,
			Values: map[string]any{"millMachineNo": fmt.Sprintf("M-%d", sheet), "model": "JAT 710"},
		})
		require.NoError(t, err)
	}

	list, err := s.ListMachines(ctx, p.ID, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, m := range list {
		assert.Equal(t, i+1, m.SheetNumber)
	}

	_, err = s.ListMachines(ctx, p.ID, "bob")
	assert.ErrorIs(t, err, record.ErrNotFound)
}
