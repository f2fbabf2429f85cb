package parser

import (
	"fmt"
	"strings"
)

// Code identifies the kind of a parse error.
type Code string

const (
	ErrInvalidField     Code = "ERR_INVALID_FIELD"
	ErrUnavailableField Code = "ERR_UNAVAILABLE_FIELD"
	ErrWrongOperator    Code = "ERR_WRONG_OPERATOR"
	ErrInvalidType      Code = "ERR_INVALID_TYPE"
	ErrNotPermission    Code = "ERR_NOT_PERMISSION"
	ErrRequired         Code = "ERR_REQUIRED"
	ErrInvalidSort      Code = "INVALID_SORT"
	ErrInvalidQuery     Code = "ERR_INVALID_QUERY"
)

// ReactionFixData tells the caller the request data has to change.
const ReactionFixData = "FIX_DATA"

// Error is one problem found while parsing a query. Parsing never stops on
// an Error; they are collected in the order they were raised.
type Error struct {
	Code     Code     `json:"code"`
	Field    string   `json:"field,omitempty"`
	Key      string   `json:"key,omitempty"`
	Operator string   `json:"operator,omitempty"`
	Type     string   `json:"type,omitempty"`
	Expected []string `json:"expected,omitempty"`
	Value    any      `json:"value,omitempty"`
	Message  string   `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Errors is the ordered error list of one parse.
type Errors []*Error

// Error summarizes the first few entries.
func (es Errors) Error() string {
	if len(es) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	for i, e := range es {
		if i == maxShown {
			fmt.Fprintf(b, "; ... (total %d)", len(es))
			break
		}
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.Error())
	}
	return b.String()
}

// Codes lists the code of every entry, in order.
func (es Errors) Codes() []Code {
	codes := make([]Code, len(es))
	for i, e := range es {
		codes[i] = e.Code
	}
	return codes
}

// InvalidQueryError wraps the whole error list of a rejected query.
type InvalidQueryError struct {
	Code      Code     `json:"code"`
	Message   string   `json:"message"`
	Model     string   `json:"model,omitempty"`
	Errors    Errors   `json:"errors"`
	Reactions []string `json:"reactions"`
}

// NewInvalidQueryError builds the error returned for a query of model.
func NewInvalidQueryError(model string, errs Errors) *InvalidQueryError {
	return &InvalidQueryError{
		Code:      ErrInvalidQuery,
		Message:   "Invalid query",
		Model:     model,
		Errors:    errs,
		Reactions: []string{ReactionFixData},
	}
}

func (e *InvalidQueryError) Error() string {
	if len(e.Errors) == 0 {
		return e.Message
	}
	return e.Message + ": " + e.Errors.Error()
}

func (e *InvalidQueryError) Unwrap() error {
	return e.Errors
}
