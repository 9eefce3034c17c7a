package main

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeCapability ErrorType = "capability"
	ErrorTypeSearch     ErrorType = "search"
	ErrorTypeScrape     ErrorType = "scrape"
	ErrorTypePipeline   ErrorType = "pipeline"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeAPI        ErrorType = "api"
)

// Error codes
const (
	ErrCapabilityUnreachable = "CAP_001"
	ErrCapabilityBadOutput   = "CAP_002"
	ErrCapabilityRateLimit   = "CAP_003"

	ErrSearchNoResults  = "SEARCH_001"
	ErrSearchAPIFailure = "SEARCH_002"

	ErrScrapeTimeout = "SCRAPE_001"
	ErrScrapeShort   = "SCRAPE_002"

	ErrPipelineFatal = "PIPE_001"

	ErrConfigLoad       = "CONFIG_001"
	ErrConfigValidation = "CONFIG_002"

	ErrStorageWrite    = "STORE_001"
	ErrStorageNotFound = "STORE_002"
)

// AppError is the application error type, carrying a category and code so
// handlers can decide between retry, degrade and abort without string
// matching.
type AppError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Inner   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("[%s-%s] %s: %v", e.Type, e.Code, e.Message, e.Inner)
	}
	return fmt.Sprintf("[%s-%s] %s", e.Type, e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Inner
}

// NewError creates a new AppError
func NewError(errType ErrorType, code string, message string, inner error) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Inner:   inner,
	}
}

func NewCapabilityError(code string, message string, inner error) *AppError {
	return NewError(ErrorTypeCapability, code, message, inner)
}

func NewSearchError(code string, message string, inner error) *AppError {
	return NewError(ErrorTypeSearch, code, message, inner)
}

func NewPipelineError(code string, message string, inner error) *AppError {
	return NewError(ErrorTypePipeline, code, message, inner)
}

func NewConfigError(code string, message string, inner error) *AppError {
	return NewError(ErrorTypeConfig, code, message, inner)
}

func NewStorageError(code string, message string, inner error) *AppError {
	return NewError(ErrorTypeStorage, code, message, inner)
}

// IsTransient determines if an error is likely temporary
func IsTransient(err error) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		switch ae.Code {
		case ErrCapabilityRateLimit, ErrScrapeTimeout, ErrScrapeShort:
			return true
		}
	}
	return false
}
