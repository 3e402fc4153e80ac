package dto

import "fmt"

type StreamEventKind string

const (
	EventFragment StreamEventKind = "fragment"
	EventProgress StreamEventKind = "progress"
	EventError    StreamEventKind = "error"
	EventDone     StreamEventKind = "done"
)

type ErrorKind string

const (
	ErrRequestFailed         ErrorKind = "request_failed"
	ErrIteratorUnavailable   ErrorKind = "iterator_unavailable"
	ErrChunkProcessingFailed ErrorKind = "chunk_processing_failed"
	ErrStreamReadFailed      ErrorKind = "stream_read_failed"
	ErrCancelled             ErrorKind = "cancelled"
	ErrAnalysisFailed        ErrorKind = "analysis_failed"
	ErrDataUnavailable       ErrorKind = "data_unavailable"
)

// ErrorDetail describes a session level failure. Body is kept for logs only.
type ErrorDetail struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	Body       string    `json:"-"`
}

func (e *ErrorDetail) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// StreamEvent carries exactly one payload, selected by Kind.
type StreamEvent struct {
	Kind     StreamEventKind
	Fragment string
	Status   AnalysisStatus
	Err      *ErrorDetail
	Result   *AnalysisResult
}

func FragmentEvent(text string) StreamEvent {
	return StreamEvent{Kind: EventFragment, Fragment: text}
}

func ProgressEvent(status AnalysisStatus) StreamEvent {
	return StreamEvent{Kind: EventProgress, Status: status}
}

func ErrorEvent(detail *ErrorDetail) StreamEvent {
	return StreamEvent{Kind: EventError, Err: detail}
}

func DoneEvent(result *AnalysisResult) StreamEvent {
	return StreamEvent{Kind: EventDone, Result: result}
}
