package record

import (
	"sort"

	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

// NewMachineSections clones the machine-level template into a value-less
// snapshot. A nil template yields no sections.
func NewMachineSections(tmpl *template.Template) []SectionSnapshot {
	if tmpl == nil {
		return nil
	}
	sections := template.CloneSections(tmpl.Sections)
	out := make([]SectionSnapshot, len(sections))
	for i, s := range sections {
		out[i] = SectionSnapshot{ID: s.ID, Name: s.Name, Fields: make([]FieldSnapshot, len(s.Fields))}
		for j, f := range s.Fields {
			out[i].Fields[j] = FieldSnapshot{Field: f}
		}
	}
	return out
}

// CloneSections deep-copies a snapshot
func CloneSections(sections []SectionSnapshot) []SectionSnapshot {
	if sections == nil {
		return nil
	}
	out := make([]SectionSnapshot, len(sections))
	for i, s := range sections {
		out[i] = SectionSnapshot{ID: s.ID, Name: s.Name, Fields: make([]FieldSnapshot, len(s.Fields))}
		for j, f := range s.Fields {
			out[i].Fields[j] = FieldSnapshot{Field: f.Field.Clone(), Value: f.Value.clone()}
		}
	}
	return out
}

// ApplyValues slots submitted values into the snapshot by field name. A key
// present with a nil value clears the field. Names matching no field are
// returned sorted and otherwise ignored.
func ApplyValues(sections []SectionSnapshot, values map[string]any) []string {
	type pos struct{ s, f int }
	index := make(map[string]pos)
	for i := range sections {
		for j := range sections[i].Fields {
			name := sections[i].Fields[j].Name
			if _, dup := index[name]; !dup {
				index[name] = pos{i, j}
			}
		}
	}

	var unknown []string
	for name, raw := range values {
		p, ok := index[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		field := &sections[p.s].Fields[p.f]
		field.Value = Coerce(field.Type, raw)
	}
	sort.Strings(unknown)
	return unknown
}

// ReapplyTemplate rebuilds a snapshot from tmpl and carries over values of
// fields whose names still exist, coerced to the new field type
func ReapplyTemplate(sections []SectionSnapshot, tmpl *template.Template) []SectionSnapshot {
	out := NewMachineSections(tmpl)
	values := make(map[string]any)
	for _, s := range sections {
		for _, f := range s.Fields {
			if !f.Value.IsNull() {
				values[f.Name] = f.Value
			}
		}
	}
	ApplyValues(out, values)
	return out
}
