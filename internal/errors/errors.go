// Package errors defines stable error codes for SLX failure modes.
package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SessionNotFound indicates the session log file does not exist
	SessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// IndexNotReady indicates no index has been built for the session yet
	IndexNotReady ErrorCode = "INDEX_NOT_READY"
	// EditNotFound indicates no edit metadata exists for a line
	EditNotFound ErrorCode = "EDIT_NOT_FOUND"
	// ParseFailed indicates an argument or record could not be parsed
	ParseFailed ErrorCode = "PARSE_FAILED"
	// IOFailed indicates the session log could not be opened, stat'd, or read
	IOFailed ErrorCode = "IO_FAILED"
	// SnapshotInvalid indicates a persisted index snapshot could not be decoded
	SnapshotInvalid ErrorCode = "SNAPSHOT_INVALID"
	// RegistryUnavailable indicates the session registry database failed to open
	RegistryUnavailable ErrorCode = "REGISTRY_UNAVAILABLE"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Command     string `json:"command,omitempty"`
	Safe        bool   `json:"safe,omitempty"`
	Description string `json:"description,omitempty"`
}

// SlxError represents an SLX error with a code, message, and suggestions
type SlxError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new SlxError
func New(code ErrorCode, message string, cause error) *SlxError {
	return &SlxError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *SlxError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SlxError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *SlxError) WithDetails(details interface{}) *SlxError {
	e.Details = details
	return e
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	IndexNotReady: {
		{
			Command:     "slx build <session.jsonl>",
			Safe:        true,
			Description: "Build the session index",
		},
	},
	SnapshotInvalid: {
		{
			Command:     "slx build <session.jsonl>",
			Safe:        true,
			Description: "Rebuild the index from the session log",
		},
	},
	RegistryUnavailable: {
		{
			Command:     "slx sessions",
			Safe:        true,
			Description: "Retry after closing other slx processes",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
