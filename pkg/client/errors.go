package client

import (
	"fmt"
	"net/http"
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassParse represents responses that do not parse as the
	// expected payload.
	ErrorClassParse ErrorClass = "parse"
)

// ServiceError represents a failed exchange with the Map Service.
type ServiceError struct {
	StatusCode int
	Class      ErrorClass
	URL        string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service %s error (status %d) for %s: %s: %v",
			e.Class, e.StatusCode, e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("service %s error (status %d) for %s: %s",
		e.Class, e.StatusCode, e.URL, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// DescriptorError reports that a layer's descriptor could not be fetched
// or parsed. It is fatal: no partitions are attempted after it.
type DescriptorError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *DescriptorError) Error() string {
	return fmt.Sprintf("layer descriptor unavailable for %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DescriptorError) Unwrap() error {
	return e.Err
}

// classifyStatus categorizes an HTTP status for observability.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// statusMessage renders a human-readable status line.
func statusMessage(status int) string {
	text := http.StatusText(status)
	if text == "" {
		text = "unknown status"
	}
	return fmt.Sprintf("%d %s", status, text)
}
