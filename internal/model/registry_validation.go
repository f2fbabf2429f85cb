package model

import (
	"fmt"
	"sort"

	"QueryFilter/internal/schema"

	"github.com/hashicorp/go-multierror"
)

// ValidateModel выполняет полную проверку модели:
// 1) все пути (alias, required, search, списки) существуют в схеме,
// 2) поля поиска строковые, первичные ключи: колонки верхнего уровня.
func ValidateModel(m *Model) error {
	if m == nil || m.Fields == nil {
		return fmt.Errorf("model has no fields")
	}
	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	for _, name := range sortedNames(m.Alias) {
		target := m.Alias[name]
		if !m.Fields.Resolve(target).Exists {
			fail("alias %q points to unknown field %q", name, target)
		}
		if _, chained := m.Alias[target]; chained {
			fail("alias %q points to another alias %q", name, target)
		}
	}

	for _, field := range m.Required {
		if !m.Fields.Resolve(m.canonical(field)).Exists {
			fail("required field %q is not declared", field)
		}
	}

	for _, list := range []struct {
		name   string
		fields []string
	}{{"allow_list", m.AllowList}, {"deny_list", m.DenyList}} {
		for _, field := range list.fields {
			if field == "*" {
				if len(list.fields) > 1 {
					fail("%s: '*' must be the only entry", list.name)
				}
				continue
			}
			if !m.Fields.Resolve(field).Exists {
				fail("%s: unknown field %q", list.name, field)
			}
		}
	}

	for _, key := range sortedNames(m.Search) {
		if m.Fields.Resolve(key).Exists {
			fail("search key %q shadows a field", key)
		}
		for _, field := range m.Search[key] {
			spec := m.Fields.Resolve(m.canonical(field))
			switch {
			case !spec.Exists:
				fail("search %q: unknown field %q", key, field)
			case spec.Type != schema.TypeString && spec.Type != schema.TypeUnknown:
				fail("search %q: field %q has type %s, expected string", key, field, spec.Type)
			}
		}
	}

	for _, pk := range m.PrimaryKeys {
		node := m.Fields.Lookup(pk)
		if node == nil || node.Kind != schema.KindLeaf {
			fail("primary key %q must be a top-level scalar field", pk)
		}
	}

	return result.ErrorOrNil()
}

func (m *Model) canonical(field string) string {
	if target, ok := m.Alias[field]; ok {
		return target
	}
	return field
}

// --- helpers ---

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
