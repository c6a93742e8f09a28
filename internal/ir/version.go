package ir

// Version constants for persisted records and the tool.
const (
	// RecordVersion is the format version of persisted resolution records.
	RecordVersion = "1"

	// ToolVersion is the configured release version.
	ToolVersion = "0.1.0"
)
