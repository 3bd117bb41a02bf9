package types

import "fmt"

// FailureKind classifies why an operation could not produce a result.
type FailureKind string

const (
	FailConnection        FailureKind = "connection_failed"
	FailTimeout           FailureKind = "timeout"
	FailHTTP              FailureKind = "http_error"
	FailEngineUnavailable FailureKind = "engine_unavailable"
	FailToolUnavailable   FailureKind = "tool_unavailable"
	FailMalformedInput    FailureKind = "malformed_input"
	FailOther             FailureKind = "other"
)

// Failure is a tagged error value. Components return it instead of aborting
// their caller; only malformed input at the outermost boundary becomes a hard
// rejection.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	StatusCode int         `json:"status_code,omitempty"`
	Message    string      `json:"message"`
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", f.Kind, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// NewFailure builds a failure with a formatted message.
func NewFailure(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// HTTPFailure tags a non-2xx response.
func HTTPFailure(status int) *Failure {
	return &Failure{Kind: FailHTTP, StatusCode: status, Message: fmt.Sprintf("HTTP %d", status)}
}

// AsFailure extracts a *Failure from err, wrapping unknown errors as FailOther.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	if f, ok := err.(*Failure); ok {
		return f
	}
	return &Failure{Kind: FailOther, Message: err.Error()}
}
