package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"QueryFilter/internal/schema"
)

const (
	sortAsc  = "_asc"
	sortDesc = "_desc"
)

func (c *parseContext) parsePage(value any) {
	page, ok := parseIntPrefix(value)
	if !ok || page <= 0 {
		c.page = nil
		c.fail(&Error{
			Code:    ErrInvalidType,
			Key:     "page",
			Value:   value,
			Message: "page must be an integer and greater than 0",
		})
		return
	}
	c.page = intPtr(page)
}

func (c *parseContext) parseLimit(value any) {
	limit, ok := parseIntPrefix(value)
	if !ok || limit < 0 {
		c.limit = nil
		c.fail(&Error{
			Code:    ErrInvalidType,
			Key:     "limit",
			Value:   value,
			Message: "limit must be an positive integer",
		})
		return
	}
	c.limit = intPtr(limit)
}

// parseSort keeps the previous sort when any token is malformed.
func (c *parseContext) parseSort(value any) {
	sort, bad, ok := parseSortTokens(schema.Stringify(value))
	if !ok {
		c.fail(&Error{
			Code:    ErrInvalidSort,
			Key:     "sort",
			Value:   bad,
			Message: fmt.Sprintf("sort token %q must end with %s or %s", bad, sortAsc, sortDesc),
		})
		return
	}
	c.sort = sort
}

// parseSortTokens reads "a_asc,b_desc". A repeated field keeps its first
// position and takes the last direction. On failure it returns the first
// malformed token.
func parseSortTokens(raw string) (Sort, string, bool) {
	tokens := strings.Split(raw, ",")
	sort := make(Sort, 0, len(tokens))
	pos := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		var sf SortField
		switch {
		case strings.HasSuffix(tok, sortAsc):
			sf = SortField{Field: strings.TrimSuffix(tok, sortAsc), Direction: 1}
		case strings.HasSuffix(tok, sortDesc):
			sf = SortField{Field: strings.TrimSuffix(tok, sortDesc), Direction: -1}
		default:
			return nil, tok, false
		}
		if i, seen := pos[sf.Field]; seen {
			sort[i].Direction = sf.Direction
			continue
		}
		pos[sf.Field] = len(sort)
		sort = append(sort, sf)
	}
	return sort, "", true
}

// parseIntPrefix reads the leading integer of a value the way query
// strings are usually read: "10", " 10", "10abc" and 10.7 all give 10.
func parseIntPrefix(value any) (int, bool) {
	if f, ok := schema.ToFloat(value); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(f), true
	}
	s := strings.TrimSpace(schema.Stringify(value))
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
