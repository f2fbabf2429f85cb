package parser

import "strings"

// fieldList is an allow- or deny-list of field names. ["*"] is the wildcard.
type fieldList struct {
	names    []string
	set      map[string]struct{}
	wildcard bool
}

func newFieldList(names []string) fieldList {
	l := fieldList{names: append([]string(nil), names...), set: make(map[string]struct{}, len(names))}
	for _, n := range names {
		l.set[n] = struct{}{}
	}
	l.wildcard = len(names) == 1 && names[0] == "*"
	return l
}

func (l fieldList) declared() bool { return len(l.names) > 0 }

// has reports whether field is listed, the wildcard matching everything.
func (l fieldList) has(field string) bool {
	if l.wildcard {
		return true
	}
	_, ok := l.set[field]
	return ok
}

// hasPath also accepts the top-level segment of a dotted path.
func (l fieldList) hasPath(field string) bool {
	if l.has(field) {
		return true
	}
	if i := strings.IndexByte(field, '.'); i > 0 {
		return l.has(field[:i])
	}
	return false
}

// allowed applies the allow-list only.
func (p *Parser) allowed(field string) bool {
	return !p.allow.declared() || p.allow.hasPath(field)
}

// available is false for denied fields and for fields outside a declared
// allow-list. The deny-list wins.
func (p *Parser) available(field string) bool {
	if p.deny.has(field) {
		return false
	}
	return p.allowed(field)
}
