package parser

import (
	"sort"
	"strings"

	"QueryFilter/internal/schema"
)

// parseFields replaces the projection with the one given by the `fields`
// key: either a mapping or a comma separated list where "-name" excludes.
// Fields blocked by the allow/deny lists are left out.
func (c *parseContext) parseFields(value any) {
	proj := Projection{}
	for _, cand := range projectionCandidates(value) {
		if cand.field == "" {
			continue
		}
		field := c.p.canonical(cand.field)
		if cand.include {
			if !c.p.available(field) {
				continue
			}
			proj[field] = 1
			continue
		}
		if !c.p.allowed(field) {
			continue
		}
		proj[field] = 0
	}
	c.fields = proj
}

type projectionCandidate struct {
	field   string
	include bool
}

func projectionCandidates(value any) []projectionCandidate {
	var out []projectionCandidate
	switch v := value.(type) {
	case Projection:
		for field, flag := range v {
			out = append(out, projectionCandidate{field: field, include: flag > 0})
		}
	case map[string]int:
		for field, flag := range v {
			out = append(out, projectionCandidate{field: field, include: flag > 0})
		}
	case map[string]any:
		for field, flag := range v {
			out = append(out, projectionCandidate{field: field, include: truthy(flag)})
		}
	default:
		raw := schema.Stringify(value)
		if raw == "" {
			return nil
		}
		for _, tok := range strings.Split(raw, ",") {
			tok = strings.TrimSpace(tok)
			if strings.HasPrefix(tok, "-") {
				out = append(out, projectionCandidate{field: tok[1:]})
			} else if tok != "" {
				out = append(out, projectionCandidate{field: tok, include: true})
			}
		}
	}
	return out
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && x != "0" && x != "-1" && x != "false"
	}
	if f, ok := schema.ToFloat(v); ok {
		return f > 0
	}
	return true
}

// finalizeFields adds the allow-list as inclusions and the deny-list as
// exclusions, then drops every exclusion when both kinds are present.
func (c *parseContext) finalizeFields() {
	if c.fields == nil {
		c.fields = Projection{}
	}
	if c.p.allow.declared() && !c.p.allow.wildcard {
		for _, field := range c.p.allow.names {
			if _, ok := c.fields[field]; !ok {
				c.fields[field] = 1
			}
		}
	}
	if !c.p.deny.wildcard {
		for _, field := range c.p.deny.names {
			c.fields[field] = 0
		}
	}

	var includes, excludes bool
	for _, flag := range c.fields {
		if flag != 0 {
			includes = true
		} else {
			excludes = true
		}
	}
	if includes && excludes {
		for field, flag := range c.fields {
			if flag == 0 {
				delete(c.fields, field)
			}
		}
	}
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
