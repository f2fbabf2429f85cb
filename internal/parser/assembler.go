package parser

import "fmt"

// writable resolves the alias of field and checks that it may be filtered
// on. Unavailable fields are reported and must not be written.
func (c *parseContext) writable(field string) (string, bool) {
	field = c.p.canonical(field)
	if !c.p.available(field) {
		c.fail(&Error{
			Code:    ErrUnavailableField,
			Field:   field,
			Message: fmt.Sprintf("Can't search on field %s", field),
		})
		return field, false
	}
	return field, true
}

// set replaces the filter value of field.
func (c *parseContext) set(field string, value any) {
	field, ok := c.writable(field)
	if !ok {
		return
	}
	c.filter[field] = value
}

// assign shallow-merges a comparison fragment onto field, so successive
// operators on one field accumulate into a single Cond. A plain value
// already stored on the field is replaced.
func (c *parseContext) assign(field string, frag Cond) {
	field, ok := c.writable(field)
	if !ok {
		return
	}
	merged := Cond{}
	if existing, ok := asCond(c.filter[field]); ok {
		for k, v := range existing {
			merged[k] = v
		}
	}
	for k, v := range frag {
		merged[k] = v
	}
	c.filter[field] = merged
}

// merge folds a field-less fragment into the top level of the filter. Two
// $or groups are never allowed to overwrite each other: both are moved
// under $and and the top-level $or is cleared.
func (c *parseContext) merge(frag Filter) {
	if len(frag) == 0 {
		return
	}
	incoming := make(Filter, len(frag))
	for k, v := range frag {
		incoming[k] = v
	}

	current, curOK := asList(c.filter["$or"])
	next, nextOK := asList(incoming["$or"])
	if curOK && nextOK {
		and, _ := asList(c.filter["$and"])
		c.filter["$and"] = append(and, Filter{"$or": current}, Filter{"$or": next})
		delete(c.filter, "$or")
		delete(incoming, "$or")
	}

	if extra, ok := asList(incoming["$and"]); ok {
		if and, ok := asList(c.filter["$and"]); ok {
			c.filter["$and"] = append(and, extra...)
			delete(incoming, "$and")
		}
	}

	for k, v := range incoming {
		c.filter[k] = v
	}
}
