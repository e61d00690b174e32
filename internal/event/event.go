package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	BatchStarted Type = iota + 1
	FileStarted
	FileCompleted
	FileFailed
	FileSkipped
	VerifyOK
	VerifyFailed
)

var typeNames = [...]string{
	BatchStarted:  "BatchStarted",
	FileStarted:   "FileStarted",
	FileCompleted: "FileCompleted",
	FileFailed:    "FileFailed",
	FileSkipped:   "FileSkipped",
	VerifyOK:      "VerifyOK",
	VerifyFailed:  "VerifyFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Timestamp time.Time
	Error     error
	Path      string // source path
	Dst       string // resolved destination path
	Method    string // copy strategy (FileCompleted)
	Size      int64  // file size or bytes-so-far
	Punched   int64  // bytes left as holes (FileCompleted)
	Total     int64  // number of sources (BatchStarted)
	TotalSize int64  // bytes across sources (BatchStarted)
	Type      Type
	WorkerID  int
}
