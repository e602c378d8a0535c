package models

import "fmt"

// DataRecord is one sample row of a data file.
// AnalogValues and StatusValues are aligned with the configuration's channel order.
type DataRecord struct {
	SampleNumber int      `json:"sampleNumber" yaml:"sample_number" msgpack:"sample_number"`
	Timestamp    *int64   `json:"timestamp" yaml:"time" msgpack:"time"` // Unix ns, nil when absent
	AnalogValues []*int32 `json:"analog" yaml:"analog" msgpack:"analog"`
	StatusValues []bool   `json:"status" yaml:"status" msgpack:"status"`
}

// DataTable is every record of a data file in file order.
type DataTable []DataRecord

// AnalogColumnName is the column name used for the i-th (0-based) analog channel.
func AnalogColumnName(i int) string {
	return fmt.Sprintf("analog_channel_%d", i)
}

// StatusColumnName is the column name used for the i-th (0-based) status channel.
func StatusColumnName(i int) string {
	return fmt.Sprintf("status_channel_%d", i)
}

// Int32Ptr returns a pointer to v.
func Int32Ptr(v int32) *int32 { return &v }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }
