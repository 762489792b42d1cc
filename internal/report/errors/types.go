// Package errors classifies report generation failures and collects the
// degraded conditions a report was produced under.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorises report errors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeConfiguration is a missing or ambiguous template
	ErrorTypeConfiguration
	// ErrorTypeResolution is a record that could not be found
	ErrorTypeResolution
	// ErrorTypeAsset is an unreadable logo, watermark or photo
	ErrorTypeAsset
	// ErrorTypeIO is a temp file or output stream failure
	ErrorTypeIO
	// ErrorTypeValidation is an invalid request
	ErrorTypeValidation
	// ErrorTypeFinalized is a write into a finalized document
	ErrorTypeFinalized
)

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConfiguration:
		return "CONFIGURATION"
	case ErrorTypeResolution:
		return "RESOLUTION"
	case ErrorTypeAsset:
		return "ASSET"
	case ErrorTypeIO:
		return "IO"
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeFinalized:
		return "FINALIZED"
	default:
		return "UNKNOWN"
	}
}

// IsRecoverable reports whether a report can still be produced after an
// error of this type
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeConfiguration, ErrorTypeAsset:
		return true
	default:
		return false
	}
}

// ReportError is a classified report error
type ReportError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	Err         error     `json:"-"`
}

func (e *ReportError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReportError) Unwrap() error { return e.Err }

// New creates a ReportError
func New(errorType ErrorType, message string) *ReportError {
	return &ReportError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// Wrap classifies err
func Wrap(errorType ErrorType, message string, err error) *ReportError {
	e := New(errorType, message)
	e.Err = err
	return e
}

// WithContext adds context such as a record id or file path
func (e *ReportError) WithContext(context string) *ReportError {
	e.Context = context
	return e
}

// TypeOf returns the type of the first ReportError in err's chain
func TypeOf(err error) ErrorType {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries a ReportError of the given type
func Is(err error, errorType ErrorType) bool {
	return err != nil && TypeOf(err) == errorType
}

// Collection gathers the recoverable problems met while producing a report
type Collection struct {
	Warnings []*ReportError `json:"warnings"`
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{Warnings: make([]*ReportError, 0)}
}

// Add records a problem
func (c *Collection) Add(err *ReportError) {
	c.Warnings = append(c.Warnings, err)
}

// Count returns the number of recorded problems
func (c *Collection) Count() int {
	return len(c.Warnings)
}

// Messages returns the recorded problems as strings
func (c *Collection) Messages() []string {
	out := make([]string, 0, len(c.Warnings))
	for _, w := range c.Warnings {
		out = append(out, w.Error())
	}
	return out
}

// Summary returns a text summary of the collection
func (c *Collection) Summary() string {
	if len(c.Warnings) == 0 {
		return "No warnings"
	}
	return fmt.Sprintf("Found %d warning(s)", len(c.Warnings))
}
