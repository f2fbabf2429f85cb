// Package parser turns a flat map of query parameters into a document-style
// filter plus pagination, sort and projection directives.
//
// Keys are dispatched, in order, to custom handlers, the `fields`
// projection, the `page`/`limit`/`sort` pagination keys and finally the
// suffix operator table (`status_in`, `created_at_gte`, `name_like`, ...).
// Problems are collected as Errors; a Parse never stops half way.
package parser

import (
	"errors"
	"fmt"
	"math"
	"time"

	"QueryFilter/internal/schema"
)

// CustomHandler turns the raw value of its key into a top-level filter
// fragment, e.g. {"$or": [...]}.
type CustomHandler func(value any) Filter

// Config declares how queries of one collection are parsed.
type Config struct {
	Schema *schema.Schema
	// Required fields must end up in the filter.
	Required []string
	// AllowList restricts the fields that may be filtered and projected.
	// Empty or ["*"] allows everything.
	AllowList []string
	// DenyList wins over AllowList.
	DenyList []string
	// Defaults seed every parse. page, limit, sort and fields feed the
	// pagination and projection state; any other key seeds the filter.
	Defaults map[string]any
	// Custom handlers are matched on the exact key before any built-in.
	Custom map[string]CustomHandler
	// Alias maps a query name to its canonical field path.
	Alias map[string]string
	// Keys whose raw value equals one of DeniedValues are ignored.
	DeniedValues []any
	// Location is used for _from_date/_to_date day boundaries. Defaults to
	// time.Local.
	Location *time.Location
}

// Parser is built once per collection and is safe for concurrent use.
type Parser struct {
	schema    *schema.Schema
	required  []string
	allow     fieldList
	deny      fieldList
	alias     map[string]string
	denied    []any
	loc       *time.Location
	resolvers []resolver
	defaults  defaults
}

type defaults struct {
	filter Filter
	fields Projection
	page   *int
	limit  *int
	sort   Sort
}

// resolver consumes the keys it matches.
type resolver struct {
	name  string
	match func(key string) bool
	apply func(c *parseContext, key string, value any)
}

// New validates cfg and builds a parser.
func New(cfg Config) (*Parser, error) {
	if cfg.Schema == nil {
		return nil, errors.New("parser: schema is required")
	}
	p := &Parser{
		schema: cfg.Schema,
		allow:  newFieldList(cfg.AllowList),
		deny:   newFieldList(cfg.DenyList),
		alias:  make(map[string]string, len(cfg.Alias)),
		denied: append([]any(nil), cfg.DeniedValues...),
		loc:    cfg.Location,
	}
	if p.loc == nil {
		p.loc = time.Local
	}
	for name, target := range cfg.Alias {
		if _, chained := cfg.Alias[target]; chained {
			return nil, fmt.Errorf("parser: alias %q points to another alias %q", name, target)
		}
		p.alias[name] = target
	}
	for _, field := range cfg.Required {
		p.required = append(p.required, p.canonical(field))
	}
	if err := p.loadDefaults(cfg.Defaults); err != nil {
		return nil, err
	}

	for _, key := range sortedKeys(cfg.Custom) {
		key, handler := key, cfg.Custom[key]
		if handler == nil {
			return nil, fmt.Errorf("parser: custom handler %q is nil", key)
		}
		p.resolvers = append(p.resolvers, resolver{
			name:  "custom:" + key,
			match: func(k string) bool { return k == key },
			apply: func(c *parseContext, _ string, value any) { c.merge(handler(value)) },
		})
	}
	p.resolvers = append(p.resolvers,
		resolver{name: "fields", match: exactly("fields"), apply: func(c *parseContext, _ string, v any) { c.parseFields(v) }},
		resolver{name: "page", match: exactly("page"), apply: func(c *parseContext, _ string, v any) { c.parsePage(v) }},
		resolver{name: "limit", match: exactly("limit"), apply: func(c *parseContext, _ string, v any) { c.parseLimit(v) }},
		resolver{name: "sort", match: exactly("sort"), apply: func(c *parseContext, _ string, v any) { c.parseSort(v) }},
		resolver{name: "operator", match: func(string) bool { return true }, apply: (*parseContext).applyOperator},
	)
	return p, nil
}

func exactly(name string) func(string) bool {
	return func(key string) bool { return key == name }
}

func (p *Parser) loadDefaults(raw map[string]any) error {
	filter := Filter{}
	for _, key := range sortedKeys(raw) {
		value := raw[key]
		switch key {
		case "page", "limit":
			n, ok := parseIntPrefix(value)
			if !ok || n < 0 || (key == "page" && n == 0) {
				return fmt.Errorf("parser: invalid default %s %v", key, value)
			}
			if key == "page" {
				p.defaults.page = intPtr(n)
			} else {
				p.defaults.limit = intPtr(n)
			}
		case "skip":
			// derived from page and limit
		case "sort":
			if m, ok := value.(map[string]any); ok {
				for _, field := range sortedKeys(m) {
					dir := 1
					if f, _ := schema.ToFloat(m[field]); f < 0 {
						dir = -1
					}
					p.defaults.sort = append(p.defaults.sort, SortField{Field: field, Direction: dir})
				}
				continue
			}
			sort, bad, ok := parseSortTokens(schema.Stringify(value))
			if !ok {
				return fmt.Errorf("parser: invalid default sort token %q", bad)
			}
			p.defaults.sort = sort
		case "fields":
			proj := Projection{}
			for _, cand := range projectionCandidates(value) {
				if cand.include {
					proj[cand.field] = 1
				} else {
					proj[cand.field] = 0
				}
			}
			p.defaults.fields = proj
		default:
			filter[p.canonical(key)] = value
		}
	}
	p.defaults.filter = cloneFilter(filter)
	return nil
}

// canonical resolves an alias. Alias targets are never aliases themselves,
// so applying it twice is harmless.
func (p *Parser) canonical(field string) string {
	if target, ok := p.alias[field]; ok {
		return target
	}
	return field
}

// Option tunes a single Parse call.
type Option func(*parseContext)

// WithPermission restricts the values callers may see: for each field, the
// list of allowed values.
func WithPermission(permission map[string][]any) Option {
	return func(c *parseContext) {
		c.permission = permission
	}
}

// Parse transpiles q. The returned Result always holds the full error list.
func (p *Parser) Parse(q Query, opts ...Option) *Result {
	c := p.newContext()
	for _, opt := range opts {
		opt(c)
	}

	for _, param := range q {
		if p.isDenied(param.Value) {
			continue
		}
		for _, r := range p.resolvers {
			if r.match(param.Key) {
				r.apply(c, param.Key, param.Value)
				break
			}
		}
	}

	p.finalize(c)
	return c.result()
}

func (p *Parser) newContext() *parseContext {
	c := &parseContext{
		p:     p,
		page:  copyInt(p.defaults.page),
		limit: copyInt(p.defaults.limit),
		sort:  p.defaults.sort.clone(),
	}
	c.filter = cloneFilter(p.defaults.filter)
	if p.defaults.fields != nil {
		c.fields = make(Projection, len(p.defaults.fields))
		for k, v := range p.defaults.fields {
			c.fields[k] = v
		}
	}
	return c
}

func (p *Parser) isDenied(value any) bool {
	for _, d := range p.denied {
		if sameValue(d, value) {
			return true
		}
	}
	return false
}

func (p *Parser) finalize(c *parseContext) {
	for _, field := range p.required {
		if v, ok := c.filter[field]; !ok || v == nil {
			c.fail(&Error{
				Code:    ErrRequired,
				Field:   field,
				Message: fmt.Sprintf("%s is required", field),
			})
		}
	}
	if len(c.errors) > 0 {
		return
	}

	for _, field := range sortedKeys(c.permission) {
		allowed := c.permission[field]
		if allowed == nil || !needsPermissionBackfill(c.filter[field]) {
			continue
		}
		c.assign(field, Cond{"$in": append([]any(nil), allowed...)})
	}

	if c.page != nil && c.limit != nil && *c.page > 0 && *c.limit > 0 {
		limit := *c.limit
		if *c.page-1 > math.MaxInt/limit {
			c.fail(&Error{
				Code:    ErrInvalidType,
				Key:     "page",
				Value:   *c.page,
				Message: fmt.Sprintf("page %d is too large for limit %d", *c.page, *c.limit),
			})
		} else {
			c.skip = intPtr((*c.page - 1) * limit)
		}
	}

	c.finalizeFields()
}

// needsPermissionBackfill is true for unset fields and for fields only
// constrained by $ne or $nin.
func needsPermissionBackfill(current any) bool {
	if current == nil {
		return true
	}
	cond, ok := asCond(current)
	if !ok {
		return false
	}
	if _, hasIn := asList(cond["$in"]); hasIn {
		return false
	}
	_, hasNe := cond["$ne"]
	_, hasNin := asList(cond["$nin"])
	return hasNe || hasNin
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	return intPtr(*v)
}
