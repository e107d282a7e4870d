package logging

// Standardized attribute keys. Using the same keys everywhere keeps log
// filtering predictable across cachestore, download, and playback.
const (
	FieldComponent = "component"
	FieldTrackID   = "track_id"
	FieldSessionID = "session_id"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
)
