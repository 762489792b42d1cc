package template

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// File is the on-disk layout of a template configuration
type File struct {
	Version         string     `yaml:"version"`
	ExtendedDetails []Field    `yaml:"extendedDetails"`
	Templates       []Template `yaml:"templates"`
}

type key struct {
	family string
	role   Role
}

// Registry is a read-only set of templates keyed by family and role
type Registry struct {
	version   string
	extended  []Field
	templates map[key]*Template
	order     []key
}

// DefaultRegistry loads the templates shipped with the binary
func DefaultRegistry() (*Registry, error) {
	return ParseRegistry(defaultTemplates)
}

// LoadRegistry reads a template configuration from path, or the embedded
// defaults when path is empty
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read template file %s: %w", path, err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes and validates a YAML template configuration
func ParseRegistry(data []byte) (*Registry, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return NewRegistry(file)
}

// NewRegistry builds a registry from decoded configuration
func NewRegistry(file File) (*Registry, error) {
	r := &Registry{
		version:   file.Version,
		templates: make(map[key]*Template, len(file.Templates)),
	}

	extended := Section{ID: "extendedDetails", Fields: file.ExtendedDetails}
	if err := extended.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extended details: %w", err)
	}
	for _, f := range file.ExtendedDetails {
		r.extended = append(r.extended, f.Clone())
	}

	for i := range file.Templates {
		t := file.Templates[i].Clone()
		if err := t.Validate(); err != nil {
			return nil, err
		}
		k := key{family: t.Name, role: t.Role}
		if _, exists := r.templates[k]; exists {
			return nil, fmt.Errorf("ambiguous template: family %q has more than one %s template", t.Name, t.Role)
		}
		r.templates[k] = t
		r.order = append(r.order, k)
	}
	return r, nil
}

// Version returns the configuration version string
func (r *Registry) Version() string {
	return r.version
}

// Lookup returns a copy of the template for a family and role
func (r *Registry) Lookup(family string, role Role) (*Template, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.templates[key{family: family, role: role}]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Project returns the project-level template of a family
func (r *Registry) Project(family string) (*Template, bool) {
	return r.Lookup(family, RoleProject)
}

// Machine returns the machine-level template of a family
func (r *Registry) Machine(family string) (*Template, bool) {
	return r.Lookup(family, RoleMachine)
}

// ExtendedDetails returns the attributes shown only for templates that
// declare IncludesExtendedDetails
func (r *Registry) ExtendedDetails() []Field {
	if r == nil {
		return nil
	}
	out := make([]Field, len(r.extended))
	for i, f := range r.extended {
		out[i] = f.Clone()
	}
	return out
}

// Families lists the distinct family names in sorted order
func (r *Registry) Families() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, k := range r.order {
		if !seen[k.family] {
			seen[k.family] = true
			out = append(out, k.family)
		}
	}
	sort.Strings(out)
	return out
}

// All returns copies of every template in configuration order
func (r *Registry) All() []*Template {
	if r == nil {
		return nil
	}
	out := make([]*Template, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.templates[k].Clone())
	}
	return out
}

// String summarises the registry for logs
func (r *Registry) String() string {
	parts := make([]string, 0, len(r.order))
	for _, k := range r.order {
		parts = append(parts, fmt.Sprintf("%s/%s", k.family, k.role))
	}
	return fmt.Sprintf("Registry{Version: %s, Templates: [%s]}", r.version, strings.Join(parts, ", "))
}
