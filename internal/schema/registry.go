package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed forms/*.yaml
var builtinForms embed.FS

type Registry struct {
	forms map[string]*Form
}

// LoadBuiltin returns the forms shipped with the binary.
func LoadBuiltin() (*Registry, error) {
	sub, err := fs.Sub(builtinForms, "forms")
	if err != nil {
		return nil, fmt.Errorf("open builtin forms: %w", err)
	}
	return LoadFS(sub)
}

// LoadFS reads every *.yaml / *.yml file at the root of fsys.
func LoadFS(fsys fs.FS) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read form schemas: %w", err)
	}

	registry := &Registry{forms: map[string]*Form{}}
	for _, entry := range entries {
		extension := strings.ToLower(path.Ext(entry.Name()))
		if entry.IsDir() || (extension != ".yaml" && extension != ".yml") {
			continue
		}

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read form schema %s: %w", entry.Name(), err)
		}
		form, err := Parse(content)
		if err != nil {
			return nil, fmt.Errorf("form schema %s: %w", entry.Name(), err)
		}
		if _, exists := registry.forms[form.Name]; exists {
			return nil, fmt.Errorf("duplicate form schema %q in %s", form.Name, entry.Name())
		}
		registry.forms[form.Name] = form
	}

	if len(registry.forms) == 0 {
		return nil, fmt.Errorf("no form schemas found")
	}
	return registry, nil
}

func (registry *Registry) Lookup(name string) (*Form, bool) {
	form, ok := registry.forms[strings.TrimSpace(name)]
	return form, ok
}

func (registry *Registry) Names() []string {
	names := make([]string, 0, len(registry.forms))
	for name := range registry.forms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (registry *Registry) Forms() []*Form {
	names := registry.Names()
	forms := make([]*Form, 0, len(names))
	for _, name := range names {
		forms = append(forms, registry.forms[name])
	}
	return forms
}
