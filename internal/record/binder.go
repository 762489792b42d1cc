package record

import (
	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

const (
	// NotSet is shown for machine fields that were never filled in
	NotSet = "Not Set"
	// NotApplicable marks values that should disappear from reports
	NotApplicable = "N/A"

	longDateLayout = "2 January 2006"
)

// Row is one label/value pair of a bound record
type Row struct {
	Name  string
	Label string
	Type  template.FieldType
	Value string
	Raw   Value
}

// Bound is an insertion-ordered map of field name to display-ready row
type Bound struct {
	rows  []Row
	index map[string]int
}

// NewBound returns an empty ordered map
func NewBound() *Bound {
	return &Bound{index: make(map[string]int)}
}

// Put adds a row, replacing an earlier row with the same name in place
func (b *Bound) Put(r Row) {
	if i, ok := b.index[r.Name]; ok {
		b.rows[i] = r
		return
	}
	b.index[r.Name] = len(b.rows)
	b.rows = append(b.rows, r)
}

// Get returns the row bound to name
func (b *Bound) Get(name string) (Row, bool) {
	i, ok := b.index[name]
	if !ok {
		return Row{}, false
	}
	return b.rows[i], true
}

func (b *Bound) Has(name string) bool {
	_, ok := b.index[name]
	return ok
}

func (b *Bound) Len() int { return len(b.rows) }

// Rows returns the rows in insertion order
func (b *Bound) Rows() []Row {
	return append([]Row(nil), b.rows...)
}

// Map flattens the rows into name -> display value
func (b *Bound) Map() map[string]string {
	out := make(map[string]string, len(b.rows))
	for _, r := range b.rows {
		out[r.Name] = r.Value
	}
	return out
}

// BoundSection is the display form of one snapshot section
type BoundSection struct {
	ID   string
	Name string
	Rows *Bound
}

// FormatDate renders a date value in long form, e.g. "12 November 2024".
// Values that are not dates render as N/A.
func FormatDate(v Value) string {
	if t, ok := v.Date(); ok {
		return t.Format(longDateLayout)
	}
	if v.Kind() == KindText {
		if t, ok := template.ParseDate(v.String()); ok {
			return t.Format(longDateLayout)
		}
	}
	return NotApplicable
}

// Display renders v for a field of type ft
func Display(ft template.FieldType, v Value) string {
	if ft == template.FieldDate && !v.IsNull() {
		return FormatDate(v)
	}
	return v.String()
}

func fieldLabel(f template.Field) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// BindMachineSections binds every snapshot section. Fields without a value
// are bound to NotSet.
func BindMachineSections(m *Machine) []BoundSection {
	if m == nil {
		return nil
	}
	out := make([]BoundSection, 0, len(m.Sections))
	for _, s := range m.Sections {
		b := NewBound()
		for _, f := range s.Fields {
			b.Put(machineRow(f))
		}
		out = append(out, BoundSection{ID: s.ID, Name: s.Name, Rows: b})
	}
	return out
}

// BindMachine flattens every section of the machine into one map
func BindMachine(m *Machine) *Bound {
	b := NewBound()
	if m == nil {
		return b
	}
	for _, s := range m.Sections {
		for _, f := range s.Fields {
			b.Put(machineRow(f))
		}
	}
	return b
}

func machineRow(f FieldSnapshot) Row {
	r := Row{Name: f.Name, Label: fieldLabel(f.Field), Type: f.Type, Raw: f.Value}
	if f.Value.IsNull() || f.Value.String() == NotApplicable {
		r.Value = NotSet
		return r
	}
	r.Value = Display(f.Type, f.Value)
	return r
}

// BindProject binds the project details in template order. Fields absent
// from details are omitted. When the template includes extended details,
// the extended attributes present in details follow.
func BindProject(p *Project, tmpl *template.Template, extended []template.Field) *Bound {
	b := NewBound()
	if p == nil || tmpl == nil {
		return b
	}
	add := func(f template.Field) {
		if b.Has(f.Name) {
			return
		}
		v, ok := p.Details[f.Name]
		if !ok {
			return
		}
		b.Put(Row{Name: f.Name, Label: fieldLabel(f), Type: f.Type, Value: Display(f.Type, v), Raw: v})
	}
	for _, f := range tmpl.Fields() {
		add(f)
	}
	if tmpl.IncludesExtendedDetails {
		for _, f := range extended {
			add(f)
		}
	}
	return b
}

// FormValues returns the edit-form view of a machine: set fields carry their
// raw value and unset fields an empty string
func FormValues(m *Machine) map[string]any {
	out := make(map[string]any)
	if m == nil {
		return out
	}
	for _, s := range m.Sections {
		for _, f := range s.Fields {
			if f.Value.IsNull() {
				out[f.Name] = ""
				continue
			}
			out[f.Name] = f.Value.Raw()
		}
	}
	return out
}
