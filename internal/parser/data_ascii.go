package parser

import (
	"fmt"
	"strconv"

	"github.com/comtrade-viewer/backend/internal/models"
)

// AnalogNullASCII marks a missing analog sample in ASCII data files.
const AnalogNullASCII = 99999

// decodeASCII decodes "n,timestamp,A1,...,Ak,D1,...,Dm" lines.
func decodeASCII(input string, schema DataSchema, fn func(models.DataRecord) error) (int, error) {
	lines := splitLines(input)
	want := schema.FieldCount()

	for i, line := range lines {
		rec, err := decodeASCIILine(line, i+1, want, schema)
		if err != nil {
			return i, err
		}
		if err := fn(rec); err != nil {
			return i, err
		}
	}
	return len(lines), nil
}

func decodeASCIILine(line string, lineNo, want int, schema DataSchema) (models.DataRecord, error) {
	var rec models.DataRecord
	f := splitFields(line)
	if len(f) != want {
		return rec, malformed(fileData, lineNo,
			fmt.Sprintf("the number of fields is fewer than expected: want %d, got %d", want, len(f)))
	}

	n, ok := parseInt(f[0])
	if !ok {
		return rec, malformed(fileData, lineNo, "invalid sample number")
	}
	rec.SampleNumber = n

	micros, err := strconv.ParseInt(f[1], 10, 64)
	switch {
	case err == nil:
		ts := schema.timestamp(micros)
		rec.Timestamp = &ts
	case schema.CriticalTimestamp:
		return rec, malformed(fileData, lineNo, "invalid timestamp")
	}

	rec.AnalogValues = make([]*int32, schema.AnalogChannels)
	for i := 0; i < schema.AnalogChannels; i++ {
		v, ok := parseInt32(f[2+i])
		if !ok {
			return rec, malformed(fileData, lineNo, fmt.Sprintf("invalid analog channel data: channel %d", i))
		}
		if v == AnalogNullASCII {
			continue
		}
		rec.AnalogValues[i] = &v
	}

	base := 2 + schema.AnalogChannels
	rec.StatusValues = make([]bool, schema.StatusChannels)
	for i := 0; i < schema.StatusChannels; i++ {
		switch f[base+i] {
		case "0":
		case "1":
			rec.StatusValues[i] = true
		default:
			return rec, invalidField(fileData, lineNo, fmt.Sprintf("invalid status channel data: channel %d", i))
		}
	}
	return rec, nil
}
