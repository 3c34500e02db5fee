package xplane

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates a non-2xx status from the REST API
	ErrTypeHTTP
	// ErrTypeParse indicates a malformed response
	ErrTypeParse
	// ErrTypeNotFound indicates an unknown dataref or command name
	ErrTypeNotFound
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening on the web API port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeNotConnected indicates the WebSocket stream is down
	ErrTypeNotConnected
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeNotConnected:
		return "Not Connected"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ClientError represents an error talking to the X-Plane web API
type ClientError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
	Host       string    // Simulator address (for context)
	Retryable  bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ClientError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes an error and returns a more specific error type
func ClassifyNetworkError(err error, host string) *ClientError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &ClientError{Type: ErrTypeTimeout, Message: "Request timed out", Err: err, Host: host, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ClientError{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:       err,
			Host:      host,
			Retryable: false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		// X-Plane not started yet; keep trying
		return &ClientError{Type: ErrTypeConnectionRefused, Message: "Simulator refused connection", Err: err, Host: host, Retryable: true}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err, host)
	}

	return &ClientError{Type: ErrTypeNetwork, Message: "Network error occurred", Err: err, Host: host, Retryable: true}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *ClientError {
	classified := ClassifyNetworkError(err, "")
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &ClientError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, message string) *ClientError {
	return &ClientError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500 || statusCode == http.StatusTooManyRequests,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *ClientError {
	return &ClientError{Type: ErrTypeParse, Message: message, Err: err}
}

// NewNotFoundError reports an unknown dataref or command.
func NewNotFoundError(kind, name string) *ClientError {
	return &ClientError{
		Type:       ErrTypeNotFound,
		Message:    fmt.Sprintf("%s %q not found", kind, name),
		StatusCode: http.StatusNotFound,
	}
}

// errNotConnected is returned when a command is sent while the stream is down.
var errNotConnected = &ClientError{Type: ErrTypeNotConnected, Message: "simulator stream is not connected", Retryable: true}

func asClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	ok := errors.As(err, &ce)
	return ce, ok
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	if ce, ok := asClientError(err); ok {
		return ce.Type == ErrTypeNetwork ||
			ce.Type == ErrTypeTimeout ||
			ce.Type == ErrTypeConnectionRefused ||
			ce.Type == ErrTypeDNS
	}
	return false
}

// IsNotFound checks if an error reports an unknown name
func IsNotFound(err error) bool {
	ce, ok := asClientError(err)
	return ok && ce.Type == ErrTypeNotFound
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if ce, ok := asClientError(err); ok {
		return ce.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	ce, ok := asClientError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch ce.Type {
	case ErrTypeConnectionRefused, ErrTypeNotConnected:
		return strings.Join([]string{
			"X-Plane is not accepting connections.",
			"Troubleshooting:",
			"  • Start X-Plane 12.1.1 or later",
			"  • Check that the web API is enabled (Settings > Network)",
			"  • Verify the port (default is 8086)",
		}, "\n")

	case ErrTypeTimeout:
		return strings.Join([]string{
			"X-Plane did not respond in time.",
			"Troubleshooting:",
			"  • The simulator may still be loading a flight",
			"  • Check the host address when X-Plane runs on another machine",
		}, "\n")

	case ErrTypeDNS:
		return "Could not resolve the simulator hostname. Use its IP address instead."

	case ErrTypeNotFound:
		return strings.Join([]string{
			ce.Message + ".",
			"Check the spelling in the profile; names are case sensitive.",
			"Datarefs provided by plugins only exist once the plugin is loaded.",
		}, "\n")

	case ErrTypeHTTP:
		return fmt.Sprintf("X-Plane returned HTTP error %d.", ce.StatusCode)

	case ErrTypeParse:
		return "Failed to parse the simulator's response. Is something else listening on the web API port?"

	default:
		return "Network communication with X-Plane failed. Check your network connection."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	ce, ok := asClientError(err)
	if !ok {
		return err.Error()
	}

	switch ce.Type {
	case ErrTypeTimeout:
		return "Simulator not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Simulator refused connection - is X-Plane running?"
	case ErrTypeNotConnected:
		return "Simulator stream not connected"
	case ErrTypeDNS:
		return "Cannot resolve simulator hostname"
	case ErrTypeHTTP:
		return fmt.Sprintf("Simulator error (HTTP %d)", ce.StatusCode)
	case ErrTypeParse:
		return "Failed to parse simulator response"
	default:
		return ce.Message
	}
}
