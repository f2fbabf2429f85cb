package parser

// parseContext is the mutable state of a single Parse call.
type parseContext struct {
	p          *Parser
	permission map[string][]any

	errors Errors
	filter Filter
	fields Projection
	page   *int
	limit  *int
	skip   *int
	sort   Sort
}

func (c *parseContext) fail(e *Error) {
	c.errors = append(c.errors, e)
}

func (c *parseContext) result() *Result {
	return &Result{
		Errors: c.errors,
		Filter: c.filter,
		Fields: c.fields,
		Page:   c.page,
		Limit:  c.limit,
		Skip:   c.skip,
		Sort:   c.sort,
	}
}
