package models

import "time"

// FileKind is the role a file plays in a COMTRADE recording.
type FileKind string

const (
	FileKindConfig  FileKind = "cfg"
	FileKindData    FileKind = "dat"
	FileKindInfo    FileKind = "inf"
	FileKindUnknown FileKind = "unknown"
)

// FileInfo represents metadata about an uploaded file.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       FileKind  `json:"kind"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}
