package multifetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Code classifies how a transfer ended.
type Code int

const (
	// CodeOK means the response status was in [200,300) and the body was read fully.
	CodeOK Code = iota
	// CodeInitError means the request could not be built; nothing was sent.
	CodeInitError
	// CodeTimeout means the per-transfer timeout elapsed first.
	CodeTimeout
	// CodeTransportFailure is any other connection or read failure.
	CodeTransportFailure
	// CodeHTTPClientError is a 403 response.
	CodeHTTPClientError
	// CodeHTTPNotFound is a 404 response.
	CodeHTTPNotFound
	// CodeHTTPGatewayTimeout is a 502 response.
	CodeHTTPGatewayTimeout
	// CodeHTTPOtherError is any other status >= 300; Result.Status has the code.
	CodeHTTPOtherError
)

var codeNames = map[Code]string{
	CodeOK:                 "ok",
	CodeInitError:          "init_error",
	CodeTimeout:            "timeout",
	CodeTransportFailure:   "transport_failure",
	CodeHTTPClientError:    "http_client_error",
	CodeHTTPNotFound:       "http_not_found",
	CodeHTTPGatewayTimeout: "http_gateway_timeout",
	CodeHTTPOtherError:     "http_other_error",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Common errors returned by Result.Err.
var (
	ErrInit           = errors.New("multifetch: request initialization failed")
	ErrTimeout        = errors.New("multifetch: transfer timed out")
	ErrTransport      = errors.New("multifetch: transport failure")
	ErrForbidden      = errors.New("multifetch: access forbidden")
	ErrNotFound       = errors.New("multifetch: resource not found")
	ErrGatewayTimeout = errors.New("multifetch: bad gateway")
	ErrBadStatus      = errors.New("multifetch: unexpected status")
)

// Result is the terminal event of a transfer.
type Result struct {
	Code Code

	// Status is the final HTTP status code, 0 if no response was received.
	Status int

	// Cause is the underlying transport or init error, if any.
	Cause error
}

// OK reports whether the transfer succeeded.
func (r Result) OK() bool {
	return r.Code == CodeOK
}

// Err returns nil for a successful transfer and otherwise an error that
// matches one of the package sentinels with errors.Is.
func (r Result) Err() error {
	var sentinel error
	switch r.Code {
	case CodeOK:
		return nil
	case CodeInitError:
		sentinel = ErrInit
	case CodeTimeout:
		sentinel = ErrTimeout
	case CodeTransportFailure:
		sentinel = ErrTransport
	case CodeHTTPClientError:
		sentinel = ErrForbidden
	case CodeHTTPNotFound:
		sentinel = ErrNotFound
	case CodeHTTPGatewayTimeout:
		sentinel = ErrGatewayTimeout
	default:
		sentinel = ErrBadStatus
	}
	if r.Cause != nil {
		return fmt.Errorf("%w: %w", sentinel, r.Cause)
	}
	if r.Status != 0 {
		return fmt.Errorf("%w: %d", sentinel, r.Status)
	}
	return sentinel
}

// resultForStatus maps a completed response status to a Result.
func resultForStatus(status int) Result {
	switch {
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return Result{Code: CodeOK, Status: status}
	case status == http.StatusForbidden:
		return Result{Code: CodeHTTPClientError, Status: status}
	case status == http.StatusNotFound:
		return Result{Code: CodeHTTPNotFound, Status: status}
	case status == http.StatusBadGateway:
		return Result{Code: CodeHTTPGatewayTimeout, Status: status}
	default:
		return Result{Code: CodeHTTPOtherError, Status: status}
	}
}

// resultForError maps a transport failure to a Result.
func resultForError(err error, status int) Result {
	if isTimeout(err) {
		return Result{Code: CodeTimeout, Status: status, Cause: err}
	}
	return Result{Code: CodeTransportFailure, Status: status, Cause: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
