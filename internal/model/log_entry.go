package model

// LogEntry is one ordered progress record emitted while an agent session is
// being initialized. Entries are returned to the caller (and optionally
// streamed) but never persisted.
type LogEntry struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

const (
	LogInfo    = "info"
	LogSuccess = "success"
	LogWarning = "warning"
	LogError   = "error"
)
