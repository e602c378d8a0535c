package parser

import (
	"fmt"
	"math"

	"github.com/comtrade-viewer/backend/internal/models"
)

// DataSchema carries everything the data decoder needs to know about a recording.
// It is normally filled from a ConfigurationRecord with SchemaFor, but the decoder
// never looks at the configuration itself.
type DataSchema struct {
	AnalogChannels    int
	StatusChannels    int
	CriticalTimestamp bool
	FirstDataTime     int64 // Unix ns
	TimestampFactor   float64
	Encoding          models.FileType
}

// SchemaFor builds the data schema described by cfg.
// A null first data time is treated as the epoch.
func SchemaFor(cfg *models.ConfigurationRecord, critical bool) DataSchema {
	return DataSchema{
		AnalogChannels:    cfg.Station.AnalogChannels,
		StatusChannels:    cfg.Station.StatusChannels,
		CriticalTimestamp: critical,
		FirstDataTime:     cfg.Times.FirstDataTimeValue(),
		TimestampFactor:   cfg.TimestampFactor,
		Encoding:          cfg.FileType,
	}
}

// FieldCount is the number of comma-separated fields in one ASCII record.
func (s DataSchema) FieldCount() int {
	return 2 + s.AnalogChannels + s.StatusChannels
}

// StatusGroups is the number of 16-channel groups in one binary record.
func (s DataSchema) StatusGroups() int {
	return (s.StatusChannels + 15) / 16
}

// RecordSize is the size in bytes of one binary record.
func (s DataSchema) RecordSize() int {
	return 8 + 2*s.AnalogChannels + 2*s.StatusGroups()
}

func (s DataSchema) validate() error {
	if s.AnalogChannels < 0 || s.StatusChannels < 0 {
		return invalidField(fileData, 0, fmt.Sprintf("invalid channel counts: %d analog, %d status", s.AnalogChannels, s.StatusChannels))
	}
	if s.Encoding != models.FileTypeASCII && s.Encoding != models.FileTypeBinary {
		return invalidField(fileData, 0, "invalid file type: "+string(s.Encoding))
	}
	return nil
}

// timestamp scales a raw per-record offset in microseconds into Unix nanoseconds.
func (s DataSchema) timestamp(micros int64) int64 {
	return s.FirstDataTime + int64(math.Round(float64(1000*micros)*s.TimestampFactor))
}

// ParseData decodes a whole data file. It returns either every record or a single error.
func ParseData(input []byte, schema DataSchema) (models.DataTable, error) {
	table := make(models.DataTable, 0, estimateRecords(input, schema))
	_, err := DecodeData(input, schema, func(rec models.DataRecord) error {
		table = append(table, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// DecodeData decodes input record by record and hands each record to fn.
// Decoding stops at the first error, either from the input or returned by fn.
// For binary input the length is checked before fn is ever called; ASCII input
// is validated line by line, so fn may already have seen earlier records.
// Returns the number of records passed to fn.
func DecodeData(input []byte, schema DataSchema, fn func(models.DataRecord) error) (int, error) {
	if err := schema.validate(); err != nil {
		return 0, err
	}
	if schema.Encoding == models.FileTypeBinary {
		return decodeBinary(input, schema, fn)
	}
	return decodeASCII(string(input), schema, fn)
}

func estimateRecords(input []byte, schema DataSchema) int {
	if schema.Encoding == models.FileTypeBinary {
		if size := schema.RecordSize(); size > 0 {
			return len(input) / size
		}
		return 0
	}
	// Rough guess: a few bytes per field.
	return len(input) / (4*schema.FieldCount() + 2)
}
