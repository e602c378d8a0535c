package parser

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/comtrade-viewer/backend/internal/models"
)

// DataEncoder writes records in the data file layout described by a DataSchema.
// It is the inverse of DecodeData: nulls are written as the format's sentinels and
// absolute timestamps are converted back to raw offsets with the schema's factor.
type DataEncoder struct {
	writer io.Writer
	schema DataSchema
	buf    []byte
	count  int
}

// NewDataEncoder creates an encoder for schema. The encoding is taken from schema.Encoding.
func NewDataEncoder(w io.Writer, schema DataSchema) *DataEncoder {
	return &DataEncoder{
		writer: w,
		schema: schema,
		buf:    make([]byte, 0, schema.RecordSize()),
	}
}

// Count returns the number of records written so far.
func (enc *DataEncoder) Count() int {
	return enc.count
}

// Encode writes one record.
func (enc *DataEncoder) Encode(rec models.DataRecord) error {
	if len(rec.AnalogValues) != enc.schema.AnalogChannels || len(rec.StatusValues) != enc.schema.StatusChannels {
		return fmt.Errorf("record %d: want %d analog and %d status values, got %d and %d",
			enc.count+1, enc.schema.AnalogChannels, enc.schema.StatusChannels, len(rec.AnalogValues), len(rec.StatusValues))
	}

	var err error
	if enc.schema.Encoding == models.FileTypeBinary {
		err = enc.encodeBinary(rec)
	} else {
		err = enc.encodeASCII(rec)
	}
	if err != nil {
		return fmt.Errorf("record %d: %w", enc.count+1, err)
	}
	if _, err := enc.writer.Write(enc.buf); err != nil {
		return fmt.Errorf("writing record %d: %w", enc.count+1, err)
	}
	enc.count++
	return nil
}

// EncodeAll writes every record of table.
func (enc *DataEncoder) EncodeAll(table models.DataTable) error {
	for _, rec := range table {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// rawOffset converts an absolute timestamp back into the microsecond offset stored in the file.
func (enc *DataEncoder) rawOffset(ts int64) (int64, error) {
	if enc.schema.TimestampFactor == 0 {
		return 0, fmt.Errorf("timestamp factor is zero")
	}
	return int64(math.Round(float64(ts-enc.schema.FirstDataTime) / (1000 * enc.schema.TimestampFactor))), nil
}

func (enc *DataEncoder) encodeBinary(rec models.DataRecord) error {
	le := binary.LittleEndian
	b := enc.buf[:0]

	b = le.AppendUint32(b, uint32(int32(rec.SampleNumber)))

	if rec.Timestamp == nil {
		b = le.AppendUint32(b, TimestampNullBinary)
	} else {
		off, err := enc.rawOffset(*rec.Timestamp)
		if err != nil {
			return err
		}
		if off < math.MinInt32 || off > math.MaxInt32 || uint32(int32(off)) == TimestampNullBinary {
			return fmt.Errorf("timestamp offset %d does not fit the binary layout", off)
		}
		b = le.AppendUint32(b, uint32(int32(off)))
	}

	for i, v := range rec.AnalogValues {
		if v == nil {
			b = le.AppendUint16(b, AnalogNullBinary)
			continue
		}
		// -32768 is reserved for null.
		if *v <= math.MinInt16 || *v > math.MaxInt16 {
			return fmt.Errorf("analog channel %d: value %d does not fit the binary layout", i, *v)
		}
		b = le.AppendUint16(b, uint16(int16(*v)))
	}

	b = append(b, packStatusGroups(rec.StatusValues)...)
	enc.buf = b
	return nil
}

func (enc *DataEncoder) encodeASCII(rec models.DataRecord) error {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(rec.SampleNumber))
	sb.WriteByte(',')
	if rec.Timestamp != nil {
		off, err := enc.rawOffset(*rec.Timestamp)
		if err != nil {
			return err
		}
		sb.WriteString(strconv.FormatInt(off, 10))
	}

	for i, v := range rec.AnalogValues {
		sb.WriteByte(',')
		if v == nil {
			sb.WriteString(strconv.Itoa(AnalogNullASCII))
			continue
		}
		if *v == AnalogNullASCII {
			return fmt.Errorf("analog channel %d: value %d is reserved for null", i, *v)
		}
		sb.WriteString(strconv.FormatInt(int64(*v), 10))
	}
	for _, v := range rec.StatusValues {
		if v {
			sb.WriteString(",1")
		} else {
			sb.WriteString(",0")
		}
	}
	sb.WriteString(lineTerminator)

	enc.buf = append(enc.buf[:0], sb.String()...)
	return nil
}
