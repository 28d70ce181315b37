package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeStore represents persistent store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeNotify represents notification delivery errors
	ErrorTypeNotify ErrorType = "notify"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError represents an error raised by one source's ingestion pipeline
type PipelineError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if a later scheduled tick may succeed
func (e *PipelineError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeParsing, ErrorTypeNotify:
		return true
	default:
		return false
	}
}

// TypeOf returns the ErrorType of err, or an empty string for plain errors
func TypeOf(err error) ErrorType {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ""
}

// New creates a new PipelineError
func New(errType ErrorType, source, message string, err error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *PipelineError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *PipelineError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *PipelineError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewStore creates a new store error
func NewStore(source, message string, err error) *PipelineError {
	return New(ErrorTypeStore, source, message, err)
}

// NewNotify creates a new notification error
func NewNotify(source, message string, err error) *PipelineError {
	return New(ErrorTypeNotify, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *PipelineError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "", message, err)
}
