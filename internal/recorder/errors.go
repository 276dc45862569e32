package recorder

import (
	"errors"
	"fmt"
)

// ContractCode identifies which run contract was violated.
type ContractCode string

const (
	// ErrCodeInvalidRunID: supplied run id is empty, has whitespace, or is
	// not a single path component.
	ErrCodeInvalidRunID ContractCode = "INVALID_RUN_ID"

	// ErrCodeUnknownMethod: method id is not in the method registry.
	ErrCodeUnknownMethod ContractCode = "UNKNOWN_METHOD"

	// ErrCodeInactiveMethod: method exists but is not active.
	ErrCodeInactiveMethod ContractCode = "INACTIVE_METHOD"

	// ErrCodeMethodOutputs: method declares outputs the layout never writes.
	ErrCodeMethodOutputs ContractCode = "METHOD_OUTPUTS"

	// ErrCodeInputScope: input scope is missing or not a directory.
	ErrCodeInputScope ContractCode = "INPUT_SCOPE"

	// ErrCodeOutputPath: output location is outside the allowed roots.
	ErrCodeOutputPath ContractCode = "OUTPUT_PATH"

	// ErrCodeRunExists: the run directory is already present.
	ErrCodeRunExists ContractCode = "RUN_EXISTS"
)

// Category is the taxonomy code shared by every contract violation.
const Category = "contract"

// ContractError reports a run contract violation. No artifact has been
// written when one is returned.
type ContractError struct {
	Code    ContractCode
	Message string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	return e.Message
}

func contractErrorf(code ContractCode, format string, args ...any) *ContractError {
	return &ContractError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsContractError reports whether err wraps a *ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

// ContractCodeOf returns the code of a wrapped *ContractError, or "".
func ContractCodeOf(err error) ContractCode {
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
