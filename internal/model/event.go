package model

// ProgressEvent is an immutable snapshot of a running job's progress.
type ProgressEvent struct {
	Step          int     `json:"step"`
	StepName      string  `json:"step_name"`
	Message       string  `json:"message"`
	Progress      float64 `json:"progress"`
	TotalProgress float64 `json:"total_progress"`
}

// EventKind discriminates the items carried on a job's event channel.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventDone     EventKind = "done"
	EventError    EventKind = "error"
)

// Event is one item on a job's event channel.
type Event struct {
	Kind     EventKind
	Progress *ProgressEvent
	JobID    string
	Message  string
}

// Terminal reports whether the event ends the job's stream.
func (e Event) Terminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}

// ProgressOf wraps a progress snapshot as a channel event.
func ProgressOf(p ProgressEvent) Event {
	return Event{Kind: EventProgress, Progress: &p}
}

// DoneEvent signals successful completion of a job.
func DoneEvent(jobID string) Event {
	return Event{Kind: EventDone, JobID: jobID}
}

// ErrorEvent signals that a job failed with message.
func ErrorEvent(message string) Event {
	return Event{Kind: EventError, Message: message}
}
