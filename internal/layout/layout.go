package layout

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/commissionhub/portal/internal/authgate"
)

// ErrInvalidLayouts is returned when a layouts document fails validation.
var ErrInvalidLayouts = errors.New("invalid layouts")

// reservedPrefixes are served by the shell itself and cannot host a layout.
var reservedPrefixes = []string{"/api", "/health", "/metrics", "/openapi.json"}

// Layout is a role-scoped portal section mounted at Path.
type Layout struct {
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Path     string `json:"path"`
	Requires string `json:"requires,omitempty"`

	requirement authgate.Requirement
}

// Requirement returns the parsed role requirement of the layout.
func (l Layout) Requirement() authgate.Requirement {
	return l.requirement
}

type document struct {
	Layouts []Layout `json:"layouts"`
}

// Registry is the validated, ordered set of layouts.
type Registry struct {
	layouts []Layout
}

// Default returns the organizer, partner and customer portals.
func Default() *Registry {
	r, err := Parse([]byte(defaultLayouts))
	if err != nil {
		panic(fmt.Sprintf("default layouts: %v", err))
	}
	return r
}

const defaultLayouts = `
layouts:
  - name: admin
    title: Organizer
    path: /admin
    requires: admin
  - name: partner
    title: Partner
    path: /partner
    requires: partner
  - name: customer
    title: Customer
    path: /customer
    requires: customer
`

// Load reads a layouts YAML file. An empty path yields Default().
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layouts file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a layouts YAML document.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayouts, err)
	}
	if len(doc.Layouts) == 0 {
		return nil, fmt.Errorf("%w: no layouts defined", ErrInvalidLayouts)
	}

	names := make(map[string]bool, len(doc.Layouts))
	paths := make(map[string]bool, len(doc.Layouts))

	for i := range doc.Layouts {
		l := &doc.Layouts[i]
		l.Name = strings.TrimSpace(l.Name)
		l.Path = "/" + strings.Trim(strings.TrimSpace(l.Path), "/")

		if l.Name == "" {
			return nil, fmt.Errorf("%w: layout %d has no name", ErrInvalidLayouts, i)
		}
		if names[l.Name] {
			return nil, fmt.Errorf("%w: duplicate layout name %q", ErrInvalidLayouts, l.Name)
		}
		names[l.Name] = true

		if l.Path == "/" {
			return nil, fmt.Errorf("%w: layout %q cannot be mounted at the root", ErrInvalidLayouts, l.Name)
		}
		if paths[l.Path] {
			return nil, fmt.Errorf("%w: duplicate layout path %q", ErrInvalidLayouts, l.Path)
		}
		for _, p := range reservedPrefixes {
			if l.Path == p || strings.HasPrefix(l.Path, p+"/") {
				return nil, fmt.Errorf("%w: layout %q uses reserved path %q", ErrInvalidLayouts, l.Name, l.Path)
			}
		}
		paths[l.Path] = true

		req, err := authgate.ParseRequirement(strings.TrimSpace(l.Requires))
		if err != nil {
			return nil, fmt.Errorf("%w: layout %q: %v", ErrInvalidLayouts, l.Name, err)
		}
		l.requirement = req
		l.Requires = req.String()

		if l.Title == "" {
			l.Title = l.Name
		}
	}

	return &Registry{layouts: doc.Layouts}, nil
}

// Layouts returns the layouts in declaration order.
func (r *Registry) Layouts() []Layout {
	out := make([]Layout, len(r.layouts))
	copy(out, r.layouts)
	return out
}
