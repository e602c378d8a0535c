// Package testutil provides recordings and a storage fake for package tests.
package testutil

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/comtrade-viewer/backend/internal/models"
	"github.com/comtrade-viewer/backend/internal/parser"
)

// Channel counts of the fixture recording.
const (
	FixtureAnalog = 2
	FixtureStatus = 3
)

// FixtureFirstDataTime is the first data time of the fixture recording in Unix ns.
var FixtureFirstDataTime = time.Date(2020, time.February, 1, 10, 20, 30, 0, time.UTC).UnixNano()

// CRLF joins lines with CRLF terminators.
func CRLF(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

// ConfigText returns a small valid configuration file with the given data file type.
func ConfigText(ft models.FileType) string {
	return CRLF(
		"SUB_NORTH,RELAY_7,1999",
		fmt.Sprintf("%d,%dA,%dD", FixtureAnalog+FixtureStatus, FixtureAnalog, FixtureStatus),
		"1,IA,A,Feeder12,A,0.01,0.0,0.0,-32767,32767,600.0,1.0,S",
		"2,VA,A,Bus1,kV,0.005,0.0,0.0,-32767,32767,110.0,0.11,P",
		"1,TRIP,,Breaker52,0",
		"2,CLOSE,,Breaker52,0",
		"3,ALARM,,Relay7,1",
		"50",
		"1",
		"1000,4",
		"01/02/2020,10:20:30.000000",
		"01/02/2020,10:20:30.002000",
		strings.ToUpper(string(ft)),
		"1.0",
	)
}

// Records returns the data records of the fixture recording.
func Records() models.DataTable {
	ts := func(micros int64) *int64 {
		return models.Int64Ptr(FixtureFirstDataTime + micros*1000)
	}
	return models.DataTable{
		{SampleNumber: 1, Timestamp: ts(0), AnalogValues: []*int32{models.Int32Ptr(120), models.Int32Ptr(-5)}, StatusValues: []bool{false, false, true}},
		{SampleNumber: 2, Timestamp: ts(1000), AnalogValues: []*int32{models.Int32Ptr(980), nil}, StatusValues: []bool{true, false, true}},
		{SampleNumber: 3, Timestamp: ts(2000), AnalogValues: []*int32{models.Int32Ptr(-1500), models.Int32Ptr(32767)}, StatusValues: []bool{true, false, false}},
		{SampleNumber: 4, Timestamp: ts(3000), AnalogValues: []*int32{models.Int32Ptr(0), models.Int32Ptr(-32767)}, StatusValues: []bool{false, true, false}},
	}
}

// Schema returns the data schema of the fixture recording.
func Schema(ft models.FileType) parser.DataSchema {
	cfg, err := parser.ParseConfiguration(ConfigText(ft))
	if err != nil {
		panic(fmt.Sprintf("fixture configuration: %v", err))
	}
	return parser.SchemaFor(cfg, false)
}

// DataBytes returns the data file of the fixture recording in the given encoding.
func DataBytes(ft models.FileType) []byte {
	var buf bytes.Buffer
	if err := parser.NewDataEncoder(&buf, Schema(ft)).EncodeAll(Records()); err != nil {
		panic(fmt.Sprintf("fixture data: %v", err))
	}
	return buf.Bytes()
}

// InfoText returns a small info file.
func InfoText() string {
	return CRLF(
		"[Public Record Information]",
		"Source=RELAY_7",
		"Event=Phase A trip,Zone 1",
		"",
		"[Private Vendor Settings]",
		"firmware=4.2.1",
	)
}
