package session

// EventKind tags what changed in the session.
type EventKind int

const (
	// EventStatus marks a status line change.
	EventStatus EventKind = iota
	// EventLog marks a new conversion log entry.
	EventLog
	// EventScanned marks a finished rescan, successful or not.
	EventScanned
	// EventBatchDone marks the end of a conversion batch.
	EventBatchDone
)

// Event is one progress notification. Consumers that need the full
// picture take a Snapshot when one arrives.
type Event struct {
	Kind   EventKind
	Status string

	// Entry is set for EventLog.
	Entry *LogEntry
}
