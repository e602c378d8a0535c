package models

// SessionStatus represents the status of a decode session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusDecoding SessionStatus = "decoding"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusError    SessionStatus = "error"
)

// DecodeSession tracks decoding of one recording (configuration, data, optional info file).
type DecodeSession struct {
	ID                string        `json:"id"`
	ConfigFileID      string        `json:"configFileId"`
	DataFileID        string        `json:"dataFileId"`
	InfoFileID        string        `json:"infoFileId,omitempty"`
	CriticalTimestamp bool          `json:"criticalTimestamp"`
	Status            SessionStatus `json:"status"`
	Progress          float64       `json:"progress"` // 0-100
	StationName       string        `json:"stationName,omitempty"`
	FileType          FileType      `json:"fileType,omitempty"`
	RecordCount       int           `json:"recordCount,omitempty"`
	AnalogChannels    int           `json:"analogChannels,omitempty"`
	StatusChannels    int           `json:"statusChannels,omitempty"`
	ProcessingTimeMs  int64         `json:"processingTimeMs,omitempty"`
	StartTime         *int64        `json:"startTime,omitempty"` // Unix ns of first timestamped record
	EndTime           *int64        `json:"endTime,omitempty"`   // Unix ns of last timestamped record
	Errors            []ParseError  `json:"errors,omitempty"`
}

// ParseError is a decode failure reported on a session.
type ParseError struct {
	File   string `json:"file,omitempty"` // "cfg", "dat" or "inf"
	Kind   string `json:"kind,omitempty"`
	Line   int    `json:"line,omitempty"`
	Reason string `json:"reason"`
}

// NewDecodeSession creates a new DecodeSession in pending status.
func NewDecodeSession(id, configFileID, dataFileID, infoFileID string) *DecodeSession {
	return &DecodeSession{
		ID:           id,
		ConfigFileID: configFileID,
		DataFileID:   dataFileID,
		InfoFileID:   infoFileID,
		Status:       SessionStatusPending,
		Progress:     0,
		Errors:       make([]ParseError, 0),
	}
}
