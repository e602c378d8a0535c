// Package models contains domain types for the COMTRADE viewer.
package models

import (
	"strings"
	"time"
)

// FileType is the encoding of a recording's data file.
type FileType string

const (
	FileTypeASCII  FileType = "ascii"
	FileTypeBinary FileType = "binary"
)

// ParseFileType matches s case-insensitively against the known file types.
func ParseFileType(s string) (FileType, bool) {
	switch {
	case strings.EqualFold(s, string(FileTypeASCII)):
		return FileTypeASCII, true
	case strings.EqualFold(s, string(FileTypeBinary)):
		return FileTypeBinary, true
	}
	return "", false
}

// ScalingIdentifier marks whether an analog channel's factors refer to primary or secondary values.
type ScalingIdentifier string

const (
	ScalingPrimary   ScalingIdentifier = "primary"
	ScalingSecondary ScalingIdentifier = "secondary"
)

// DefaultRevisionYear is used when the revision year field cannot be parsed.
const DefaultRevisionYear = 1991

// StationRecord holds the station line and the channel count line.
// TotalChannels is stored as read; it is not checked against Analog+Status.
type StationRecord struct {
	StationName       string `json:"stationName" yaml:"station_name" msgpack:"station_name"`
	RecordingDeviceID string `json:"recordingDeviceId" yaml:"recording_device_id" msgpack:"recording_device_id"`
	RevisionYear      int    `json:"revisionYear" yaml:"revision_year" msgpack:"revision_year"`
	TotalChannels     int    `json:"totalChannels" yaml:"total_channel_count" msgpack:"total_channel_count"`
	AnalogChannels    int    `json:"analogChannels" yaml:"analog_channel_count" msgpack:"analog_channel_count"`
	StatusChannels    int    `json:"statusChannels" yaml:"status_channel_count" msgpack:"status_channel_count"`
}

// AnalogChannel describes one analog channel. Factors are carried verbatim and never applied.
type AnalogChannel struct {
	Index              int               `json:"index" yaml:"index" msgpack:"index"`
	ID                 string            `json:"id" yaml:"id" msgpack:"id"`
	Phase              string            `json:"phase" yaml:"phase" msgpack:"phase"`
	MonitoredComponent string            `json:"monitoredComponent" yaml:"monitored_component" msgpack:"monitored_component"`
	Units              string            `json:"units" yaml:"units" msgpack:"units"`
	Multiplier         float64           `json:"multiplier" yaml:"multiplier" msgpack:"multiplier"`
	OffsetAdder        float64           `json:"offsetAdder" yaml:"offset_adder" msgpack:"offset_adder"`
	Skew               float64           `json:"skew" yaml:"skew" msgpack:"skew"`
	Min                int               `json:"min" yaml:"min" msgpack:"min"`
	Max                int               `json:"max" yaml:"max" msgpack:"max"`
	PrimaryFactor      float64           `json:"primaryFactor" yaml:"primary_factor" msgpack:"primary_factor"`
	SecondaryFactor    float64           `json:"secondaryFactor" yaml:"secondary_factor" msgpack:"secondary_factor"`
	Scaling            ScalingIdentifier `json:"scaling" yaml:"scaling_identifier" msgpack:"scaling_identifier"`
}

// StatusChannel describes one status (digital) channel.
type StatusChannel struct {
	Index              int    `json:"index" yaml:"index" msgpack:"index"`
	ID                 string `json:"id" yaml:"id" msgpack:"id"`
	Phase              string `json:"phase" yaml:"phase" msgpack:"phase"`
	MonitoredComponent string `json:"monitoredComponent" yaml:"monitored_component" msgpack:"monitored_component"`
	NormalState        uint8  `json:"normalState" yaml:"normal_state" msgpack:"normal_state"`
}

// SampleRateEntry is one "rate,last sample" pair.
type SampleRateEntry struct {
	Rate             float64 `json:"rate" yaml:"rate" msgpack:"rate"`
	LastSampleNumber int     `json:"lastSampleNumber" yaml:"last_sample_number" msgpack:"last_sample_number"`
}

// SampleRates is the sample rate block. DeclaredCount is the literal value from the file;
// when it is zero, Entries still holds the one line that follows it.
type SampleRates struct {
	DeclaredCount int               `json:"declaredCount" yaml:"declared_count" msgpack:"declared_count"`
	Entries       []SampleRateEntry `json:"entries" yaml:"entries" msgpack:"entries"`
}

// TimeRecord holds the first data time and the trigger time as Unix nanoseconds.
// A nil value means the source line did not have the fixed timestamp layout.
type TimeRecord struct {
	FirstDataTime *int64 `json:"firstDataTime" yaml:"first_data_time" msgpack:"first_data_time"`
	EventTime     *int64 `json:"eventTime" yaml:"event_time" msgpack:"event_time"`
}

// FirstDataTimeValue returns the first data time, or 0 when it is null.
func (t TimeRecord) FirstDataTimeValue() int64 {
	if t.FirstDataTime == nil {
		return 0
	}
	return *t.FirstDataTime
}

// ConfigurationRecord is the decoded .cfg file, in file order.
type ConfigurationRecord struct {
	Station         StationRecord   `json:"station" yaml:"station" msgpack:"station"`
	AnalogChannels  []AnalogChannel `json:"analogChannels" yaml:"analog_channels" msgpack:"analog_channels"`
	StatusChannels  []StatusChannel `json:"statusChannels" yaml:"status_channels" msgpack:"status_channels"`
	LineFrequency   *float64        `json:"lineFrequency" yaml:"line_frequency" msgpack:"line_frequency"`
	SampleRates     SampleRates     `json:"sampleRates" yaml:"sample_rates" msgpack:"sample_rates"`
	Times           TimeRecord      `json:"times" yaml:"times" msgpack:"times"`
	FileType        FileType        `json:"fileType" yaml:"file_type" msgpack:"file_type"`
	TimestampFactor float64         `json:"timestampFactor" yaml:"timestamp_multiplication_factor" msgpack:"timestamp_multiplication_factor"`
}

// NanosToTime converts a Unix nanosecond timestamp into a UTC time.
func NanosToTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
