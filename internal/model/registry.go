package model

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"QueryFilter/internal/parser"
	"QueryFilter/internal/schema"

	"github.com/hashicorp/go-multierror"
)

var (
	registryMu sync.RWMutex
	Registry   = map[string]*Model{}
)

// InitRegistry loads dir and registers every valid model. Day boundaries of
// _from_date/_to_date are computed in loc.
func InitRegistry(dir string, loc *time.Location) error {
	before := readAllocBytes()
	models, loadErr := LoadModelsFromDir(dir)
	var result *multierror.Error
	if loadErr != nil {
		result = multierror.Append(result, fmt.Errorf("load error: %w", loadErr))
	}
	for _, m := range models {
		if err := Register(m, loc); err != nil {
			result = multierror.Append(result, err)
		}
	}
	logRegistryFootprint(before)
	return result.ErrorOrNil()
}

// Register validates m, compiles its parser and makes it reachable by name.
func Register(m *Model, loc *time.Location) error {
	if err := ValidateModel(m); err != nil {
		return fmt.Errorf("validation error in %s: %w", m.Name, err)
	}
	if err := m.compile(loc); err != nil {
		return fmt.Errorf("compile error in %s: %w", m.Name, err)
	}
	registryMu.Lock()
	Registry[m.Name] = m
	registryMu.Unlock()
	return nil
}

// Get returns the registered model called name.
func Get(name string) (*Model, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	m, ok := Registry[name]
	return m, ok
}

// Names lists the registered models in lexical order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResetRegistry drops every model. Used by tests and reloads.
func ResetRegistry() {
	registryMu.Lock()
	Registry = map[string]*Model{}
	registryMu.Unlock()
}

func (m *Model) compile(loc *time.Location) error {
	custom := make(map[string]parser.CustomHandler, len(m.Search))
	for key, fields := range m.Search {
		canonical := make([]string, len(fields))
		for i, f := range fields {
			canonical[i] = m.canonical(f)
		}
		custom[key] = SearchHandler(canonical)
	}
	p, err := parser.New(parser.Config{
		Schema:       m.Fields,
		Required:     m.Required,
		AllowList:    m.AllowList,
		DenyList:     m.DenyList,
		Defaults:     m.Defaults,
		Custom:       custom,
		Alias:        m.Alias,
		DeniedValues: m.DeniedValues,
		Location:     loc,
	})
	if err != nil {
		return err
	}
	m._Parser = p
	return nil
}

// SearchHandler matches the raw value, as a literal case-insensitive
// substring, against any of fields.
func SearchHandler(fields []string) parser.CustomHandler {
	fields = append([]string(nil), fields...)
	return func(value any) parser.Filter {
		pattern := regexp.QuoteMeta(schema.Stringify(value))
		or := make([]any, 0, len(fields))
		for _, field := range fields {
			or = append(or, parser.Filter{field: parser.Regex{Pattern: pattern, Options: "gi"}})
		}
		return parser.Filter{"$or": or}
	}
}
