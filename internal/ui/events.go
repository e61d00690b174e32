package ui

import "github.com/bamsammich/sparsecp/internal/event"

// Event is the engine's progress event.
type Event = event.Event

// Re-export event types for convenience.
const (
	BatchStarted  = event.BatchStarted
	FileStarted   = event.FileStarted
	FileCompleted = event.FileCompleted
	FileFailed    = event.FileFailed
	FileSkipped   = event.FileSkipped
	VerifyOK      = event.VerifyOK
	VerifyFailed  = event.VerifyFailed
)
