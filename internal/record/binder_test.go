package record

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

func twoFieldTemplate() *template.Template {
	return &template.Template{
		ID:   "a-machine",
		Name: "A",
		Role: template.RoleMachine,
		Sections: []template.Section{
			{
				ID:   "general",
				Name: "General",
				Fields: []template.Field{
					{ID: "label1", Name: "label1", Label: "Label1", Type: template.FieldText},
					{ID: "label2", Name: "label2", Label: "Label2", Type: template.FieldText},
				},
			},
		},
	}
}

func TestBindMachineNotSet(t *testing.T) {
	m := &Machine{ID: "m1", Name: "Loom", Sections: NewMachineSections(twoFieldTemplate())}
	unknown := ApplyValues(m.Sections, map[string]any{"label1": "42"})
	assert.Empty(t, unknown)

	sections := BindMachineSections(m)
	require.Len(t, sections, 1)
	assert.Equal(t, "General", sections[0].Name)

	var got [][2]string
	for _, r := range sections[0].Rows.Rows() {
		got = append(got, [2]string{r.Label, r.Value})
	}
	assert.Equal(t, [][2]string{{"Label1", "42"}, {"Label2", NotSet}}, got)

	flat := BindMachine(m)
	assert.Equal(t, map[string]string{"label1": "42", "label2": NotSet}, flat.Map())
}

func TestFormValuesLeaveUnsetEmpty(t *testing.T) {
	m := &Machine{Sections: NewMachineSections(twoFieldTemplate())}
	ApplyValues(m.Sections, map[string]any{"label1": "42"})

	assert.Equal(t, map[string]any{"label1": "42", "label2": ""}, FormValues(m))
	assert.Empty(t, FormValues(nil))
}

func TestBindProjectOmitsAbsentFields(t *testing.T) {
	reg, err := template.DefaultRegistry()
	require.NoError(t, err)
	tmpl, ok := reg.Project("Toyota")
	require.True(t, ok)

	p := &Project{
		Name:   "Pune Mill",
		Family: "Toyota",
		Details: map[string]Value{
			"city":      Text("Pune"),
			"condition": Text("Good"),
		},
	}

	b := BindProject(p, tmpl, reg.ExtendedDetails())
	var got [][2]string
	for _, r := range b.Rows() {
		got = append(got, [2]string{r.Label, r.Value})
	}
	assert.Equal(t, [][2]string{{"City", "Pune"}, {"Condition", "Good"}}, got)
	assert.False(t, b.Has("inspectionDate"))
}

func TestBindProjectExtendedDetails(t *testing.T) {
	reg, err := template.DefaultRegistry()
	require.NoError(t, err)

	details := map[string]Value{
		"city":        Text("Gent"),
		"millName":    Text("Flanders Weaving"),
		"askingPrice": Text("40000 EUR"),
	}

	picanol, _ := reg.Project("Picanol")
	b := BindProject(&Project{Details: details}, picanol, reg.ExtendedDetails())
	assert.Equal(t, []string{"millName", "city", "askingPrice"}, rowNames(b))

	// extended attributes stored on a family without the capability stay hidden
	custom := &template.Template{
		Name: "Custom", Role: template.RoleProject,
		Sections: []template.Section{{ID: "details", Fields: []template.Field{
			{ID: "city", Name: "city", Label: "City", Type: template.FieldText},
		}}},
	}
	b = BindProject(&Project{Details: details}, custom, reg.ExtendedDetails())
	assert.Equal(t, []string{"city"}, rowNames(b))

	custom.IncludesExtendedDetails = true
	b = BindProject(&Project{Details: details}, custom, reg.ExtendedDetails())
	assert.Equal(t, []string{"city", "millName", "askingPrice"}, rowNames(b))
}

func TestBindProjectWithoutTemplate(t *testing.T) {
	p := &Project{Details: map[string]Value{"city": Text("Pune")}}
	assert.Equal(t, 0, BindProject(p, nil, nil).Len())
	assert.Equal(t, 0, BindMachine(nil).Len())
	assert.Nil(t, BindMachineSections(nil))
}

func TestBindFormatsDates(t *testing.T) {
	tmpl := &template.Template{
		Name: "A", Role: template.RoleProject,
		Sections: []template.Section{{ID: "details", Fields: []template.Field{
			{ID: "d1", Name: "d1", Label: "Inspected", Type: template.FieldDate},
			{ID: "d2", Name: "d2", Label: "Delivered", Type: template.FieldDate},
		}}},
	}
	p := &Project{Details: map[string]Value{
		"d1": Coerce(template.FieldDate, "2024-11-12"),
		"d2": Coerce(template.FieldDate, "next week"),
	}}

	b := BindProject(p, tmpl, nil)
	d1, _ := b.Get("d1")
	d2, _ := b.Get("d2")
	assert.Equal(t, "12 November 2024", d1.Value)
	assert.Equal(t, NotApplicable, d2.Value)
}

func TestBoundPutReplacesInPlace(t *testing.T) {
	b := NewBound()
	b.Put(Row{Name: "a", Value: "1"})
	b.Put(Row{Name: "b", Value: "2"})
	b.Put(Row{Name: "a", Value: "3"})

	assert.Equal(t, []string{"a", "b"}, rowNames(b))
	r, ok := b.Get("a")
	require.True(t, ok)
	assert.Equal(t, "3", r.Value)
}

func TestSnapshotIndependence(t *testing.T) {
	tmpl := twoFieldTemplate()
	m := &Machine{Sections: NewMachineSections(tmpl)}
	ApplyValues(m.Sections, map[string]any{"label1": "42"})
	before := CloneSections(m.Sections)

	tmpl.Sections[0].Name = "Renamed"
	tmpl.Sections[0].Fields[0].Label = "Changed"
	tmpl.Sections[0].Fields = append(tmpl.Sections[0].Fields, template.Field{ID: "x", Name: "x", Type: template.FieldText})

	if diff := cmp.Diff(before, m.Sections); diff != "" {
		t.Errorf("snapshot changed after template edit (-before +after):\n%s", diff)
	}
}

func TestApplyValues(t *testing.T) {
	reg, err := template.DefaultRegistry()
	require.NoError(t, err)
	tmpl, _ := reg.Machine("Toyota")
	sections := NewMachineSections(tmpl)

	unknown := ApplyValues(sections, map[string]any{
		"yearOfMfg":     "2015",
		"model":         "JAT 710",
		"doesNotExist":  "x",
		"alsoMissing":   1,
		"millMachineNo": "M-1",
	})
	assert.Equal(t, []string{"alsoMissing", "doesNotExist"}, unknown)

	values := FormValues(&Machine{Sections: sections})
	assert.Equal(t, 2015.0, values["yearOfMfg"])
	assert.Equal(t, "JAT 710", values["model"])

	// nil clears
	ApplyValues(sections, map[string]any{"model": nil})
	assert.Equal(t, "", FormValues(&Machine{Sections: sections})["model"])
}

func TestReapplyTemplate(t *testing.T) {
	old := NewMachineSections(twoFieldTemplate())
	ApplyValues(old, map[string]any{"label1": "42", "label2": "kept"})

	next := &template.Template{
		Name: "A", Role: template.RoleMachine,
		Sections: []template.Section{
			{ID: "one", Name: "One", Fields: []template.Field{
				{ID: "label1", Name: "label1", Label: "Label One", Type: template.FieldNumber},
			}},
			{ID: "two", Name: "Two", Fields: []template.Field{
				{ID: "label3", Name: "label3", Label: "Label3", Type: template.FieldText},
			}},
		},
	}

	got := ReapplyTemplate(old, next)
	require.Len(t, got, 2)
	assert.Equal(t, "Label One", got[0].Fields[0].Label)
	n, ok := got[0].Fields[0].Value.Number()
	assert.True(t, ok)
	assert.Equal(t, 42.0, n)
	assert.True(t, got[1].Fields[0].Value.IsNull())
}

func rowNames(b *Bound) []string {
	var out []string
	for _, r := range b.Rows() {
		out = append(out, r.Name)
	}
	return out
}
