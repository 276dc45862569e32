package validate

import "fmt"

// Code classifies a validation error.
type Code string

const (
	// CodeStructural: missing required field or wrong container type.
	CodeStructural Code = "structural"
	// CodeFormat: value present but fails a pattern or format check.
	CodeFormat Code = "format"
	// CodeVocabulary: value outside a closed allowed set.
	CodeVocabulary Code = "vocabulary"
	// CodeReferential: duplicate id, dangling file, or path escape.
	CodeReferential Code = "referential"
)

// ValidationError is one failed check on a record or registry.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    Code   `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Result is the outcome of validating one record. Errors keep the order in
// which checks ran.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Messages returns the error messages in check order.
func (r Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// collector accumulates errors across independent checks.
type collector struct {
	errs []ValidationError
}

func (c *collector) add(field string, code Code, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (c *collector) addMessage(field string, code Code, msg string) {
	c.errs = append(c.errs, ValidationError{Field: field, Message: msg, Code: code})
}

func (c *collector) merge(errs []ValidationError) {
	c.errs = append(c.errs, errs...)
}

func (c *collector) result() Result {
	return Result{Valid: len(c.errs) == 0, Errors: c.errs}
}
