package providers

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/roelfdiedericks/chatpilot/internal/apperr"
	. "github.com/roelfdiedericks/chatpilot/internal/logging"
)

// Registry holds the provider tables in effect.
type Registry struct {
	tables map[string]Table
}

// NewRegistry returns the built-in tables.
func NewRegistry() *Registry {
	r := &Registry{tables: map[string]Table{}}
	for _, t := range []Table{chatGPT(), gemini()} {
		r.tables[t.Name] = t
	}
	return r
}

// overrideFile is the YAML layout: provider name to partial table.
type overrideFile struct {
	Providers map[string]Table `yaml:"providers"`
}

// LoadOverrides merges a YAML override file over the tables. Set fields
// replace built-in ones; unknown provider names add new tables.
func (r *Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidConfig, "load provider overrides", err)
	}
	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return apperr.Wrap(apperr.KindInvalidConfig, "parse provider overrides", fmt.Errorf("%s: %w", path, err))
	}
	for name, over := range f.Providers {
		name = strings.ToLower(name)
		if err := r.Override(name, over); err != nil {
			return err
		}
	}
	L_debug("providers: loaded overrides", "path", path, "count", len(f.Providers))
	return nil
}

// Override merges over into the named table.
func (r *Registry) Override(name string, over Table) error {
	base, ok := r.tables[name]
	if !ok {
		base = Table{Name: name}
	}
	if err := mergo.Merge(&base, over, mergo.WithOverride); err != nil {
		return apperr.Wrap(apperr.KindInvalidConfig, "merge provider "+name, err)
	}
	base.Name = name
	r.tables[name] = base
	return nil
}

// Get returns the table for name.
func (r *Registry) Get(name string) (Table, error) {
	t, ok := r.tables[strings.ToLower(name)]
	if !ok {
		return Table{}, apperr.New(apperr.KindInvalidConfig, "provider", "unknown provider %q (known: %s)",
			name, strings.Join(r.Names(), ", "))
	}
	if len(t.Input) == 0 || len(t.Turns) == 0 || t.BaseURL == "" {
		return Table{}, apperr.New(apperr.KindInvalidConfig, "provider", "provider %q needs baseURL, input and turns selectors", name)
	}
	return t, nil
}

// Names lists the known providers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
