package gateway

import "fmt"

// FallbackAnalysisMessage is shown when a failed analysis carries no server detail.
const FallbackAnalysisMessage = "Failed to analyze Reddit profile. Please check the URL and try again."

// TransportError reports a failed list or report request. StatusCode is 0 when no
// response was received.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AnalysisError reports a failed analysis request. Message is user-facing.
type AnalysisError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AnalysisError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("analyze: status %d: %s", e.StatusCode, e.Message)
	}
	return "analyze: " + e.Message
}

func (e *AnalysisError) Unwrap() error { return e.Err }
