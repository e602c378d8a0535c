package parser

import (
	"encoding/binary"
	"fmt"

	"github.com/comtrade-viewer/backend/internal/models"
)

// Null sentinels of the binary data format.
const (
	TimestampNullBinary uint32 = 0xFFFFFFFF
	AnalogNullBinary    uint16 = 0x8000 // bytes 00 80, int16 -32768
)

// decodeBinary decodes back-to-back fixed-size records:
// sample number (4) | timestamp (4) | analog (2 each) | status groups (2 each).
func decodeBinary(input []byte, schema DataSchema, fn func(models.DataRecord) error) (int, error) {
	size := schema.RecordSize()
	if len(input)%size != 0 {
		return 0, earlyEOF(fileData, len(input)/size+1,
			fmt.Sprintf("the number of fields is fewer than expected: %d bytes is not a multiple of record size %d", len(input), size))
	}

	count := len(input) / size
	for i := 0; i < count; i++ {
		rec, err := decodeBinaryRecord(input[i*size:(i+1)*size], i+1, schema)
		if err != nil {
			return i, err
		}
		if err := fn(rec); err != nil {
			return i, err
		}
	}
	return count, nil
}

func decodeBinaryRecord(chunk []byte, recNo int, schema DataSchema) (models.DataRecord, error) {
	var rec models.DataRecord
	le := binary.LittleEndian

	rec.SampleNumber = int(int32(le.Uint32(chunk[0:4])))

	raw := le.Uint32(chunk[4:8])
	if raw == TimestampNullBinary {
		if schema.CriticalTimestamp {
			return rec, invalidField(fileData, recNo, "invalid timestamp")
		}
	} else {
		ts := schema.timestamp(int64(int32(raw)))
		rec.Timestamp = &ts
	}

	pos := 8
	rec.AnalogValues = make([]*int32, schema.AnalogChannels)
	for i := 0; i < schema.AnalogChannels; i++ {
		u := le.Uint16(chunk[pos : pos+2])
		pos += 2
		if u == AnalogNullBinary {
			continue
		}
		v := int32(int16(u))
		rec.AnalogValues[i] = &v
	}

	rec.StatusValues = make([]bool, 0, schema.StatusChannels)
	full := schema.StatusChannels / 16
	for g := 0; g < full; g++ {
		rec.StatusValues = append(rec.StatusValues, UnpackStatus(chunk[pos:pos+2], 16)...)
		pos += 2
	}
	if rem := schema.StatusChannels % 16; rem != 0 {
		// The trailing group still takes a full two-byte slot.
		rec.StatusValues = append(rec.StatusValues, UnpackStatus(chunk[pos:pos+2], rem)...)
	}
	return rec, nil
}
