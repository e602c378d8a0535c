package parser

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comtrade-viewer/backend/internal/models"
)

func asciiSchema(analog, status int) DataSchema {
	return DataSchema{
		AnalogChannels:  analog,
		StatusChannels:  status,
		FirstDataTime:   1_000_000_000,
		TimestampFactor: 1.0,
		Encoding:        models.FileTypeASCII,
	}
}

func binarySchema(analog, status int) DataSchema {
	s := asciiSchema(analog, status)
	s.Encoding = models.FileTypeBinary
	return s
}

// binaryRecord assembles one binary record from raw parts.
func binaryRecord(sample int32, ts uint32, analog []uint16, groups ...uint16) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, sample)
	binary.Write(&buf, binary.LittleEndian, ts)
	for _, a := range analog {
		binary.Write(&buf, binary.LittleEndian, a)
	}
	for _, g := range groups {
		binary.Write(&buf, binary.LittleEndian, g)
	}
	return buf.Bytes()
}

func TestSchemaFor(t *testing.T) {
	cfg, err := ParseConfiguration(crlf(withLine(idxFactor, "2.5")...))
	require.NoError(t, err)

	s := SchemaFor(cfg, true)
	assert.Equal(t, 3, s.AnalogChannels)
	assert.Equal(t, 2, s.StatusChannels)
	assert.True(t, s.CriticalTimestamp)
	assert.Equal(t, *cfg.Times.FirstDataTime, s.FirstDataTime)
	assert.Equal(t, 2.5, s.TimestampFactor)
	assert.Equal(t, models.FileTypeASCII, s.Encoding)
}

func TestDataSchema_RecordSize(t *testing.T) {
	tests := []struct {
		analog, status, want int
	}{
		{0, 0, 8},
		{2, 0, 12},
		{0, 1, 10},
		{0, 16, 10},
		{0, 17, 12},
		{3, 18, 18},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, binarySchema(tt.analog, tt.status).RecordSize(), "%d analog, %d status", tt.analog, tt.status)
	}
}

func TestParseData_ASCII(t *testing.T) {
	t.Run("sentinel and status values", func(t *testing.T) {
		table, err := ParseData([]byte(crlf("10,5000,99999,120,0,1")), asciiSchema(2, 2))
		require.NoError(t, err)
		require.Len(t, table, 1)

		rec := table[0]
		assert.Equal(t, 10, rec.SampleNumber)
		require.NotNil(t, rec.Timestamp)
		assert.Equal(t, int64(1_000_000_000+5_000_000), *rec.Timestamp)
		require.Len(t, rec.AnalogValues, 2)
		assert.Nil(t, rec.AnalogValues[0])
		require.NotNil(t, rec.AnalogValues[1])
		assert.Equal(t, int32(120), *rec.AnalogValues[1])
		assert.Equal(t, []bool{false, true}, rec.StatusValues)
	})

	t.Run("timestamp factor is applied after scaling to nanoseconds", func(t *testing.T) {
		s := asciiSchema(0, 0)
		s.FirstDataTime = 0
		s.TimestampFactor = 0.0625
		table, err := ParseData([]byte(crlf("1,1")), s)
		require.NoError(t, err)
		// 1us -> 1000ns * 0.0625 = 62.5 -> rounds to 63
		assert.Equal(t, int64(63), *table[0].Timestamp)
	})

	t.Run("negative values", func(t *testing.T) {
		table, err := ParseData([]byte(crlf("1,-100,-5,0")), asciiSchema(1, 1))
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000_000-100_000), *table[0].Timestamp)
		assert.Equal(t, int32(-5), *table[0].AnalogValues[0])
	})

	t.Run("bad timestamp is null unless critical", func(t *testing.T) {
		input := []byte(crlf("1,,7,1", "2,20,8,0"))
		table, err := ParseData(input, asciiSchema(1, 1))
		require.NoError(t, err)
		require.Len(t, table, 2)
		assert.Nil(t, table[0].Timestamp)
		assert.NotNil(t, table[1].Timestamp)

		s := asciiSchema(1, 1)
		s.CriticalTimestamp = true
		table, err = ParseData(input, s)
		assert.Nil(t, table)
		assert.ErrorIs(t, err, ErrMalformedLine)
	})

	t.Run("empty input gives an empty table", func(t *testing.T) {
		table, err := ParseData(nil, asciiSchema(2, 2))
		require.NoError(t, err)
		assert.Empty(t, table)
	})

	t.Run("no channels", func(t *testing.T) {
		table, err := ParseData([]byte(crlf("1,0", "2,1000")), asciiSchema(0, 0))
		require.NoError(t, err)
		assert.Len(t, table, 2)
		assert.Empty(t, table[1].AnalogValues)
		assert.Empty(t, table[1].StatusValues)
	})
}

func TestParseData_ASCIIErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  error
		line  int
	}{
		{"too few fields", crlf("10,5000,1,2,0"), ErrMalformedLine, 1},
		{"too many fields", crlf("10,5000,1,2,0,1,1"), ErrMalformedLine, 1},
		{"bad sample number", crlf("x,5000,1,2,0,1"), ErrMalformedLine, 1},
		{"bad analog value", crlf("1,0,1,2,0,1", "2,0,1.5,2,0,1"), ErrMalformedLine, 2},
		{"status out of range", crlf("1,0,1,2,0,2"), ErrInvalidField, 1},
		{"status not a literal digit", crlf("1,0,1,2,0,01"), ErrInvalidField, 1},
		{"blank line", crlf("1,0,1,2,0,1", "", "3,0,1,2,0,1"), ErrMalformedLine, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseData([]byte(tt.input), asciiSchema(2, 2))
			assert.Nil(t, table)
			require.ErrorIs(t, err, tt.kind)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, "dat", de.File)
			assert.Equal(t, tt.line, de.Line)
		})
	}
}

func TestParseData_Binary(t *testing.T) {
	t.Run("analog sentinel and values", func(t *testing.T) {
		input := binaryRecord(1, 0, []uint16{0x8000, 0x0064, 0xFFFF})
		table, err := ParseData(input, binarySchema(3, 0))
		require.NoError(t, err)
		require.Len(t, table, 1)

		vals := table[0].AnalogValues
		assert.Nil(t, vals[0])
		assert.Equal(t, int32(100), *vals[1])
		assert.Equal(t, int32(-1), *vals[2])
	})

	t.Run("sample number and timestamp", func(t *testing.T) {
		input := append(binaryRecord(7, 250, nil), binaryRecord(-3, uint32(0xFFFFFF00), nil)...)
		table, err := ParseData(input, binarySchema(0, 0))
		require.NoError(t, err)
		require.Len(t, table, 2)
		assert.Equal(t, 7, table[0].SampleNumber)
		assert.Equal(t, int64(1_000_000_000+250_000), *table[0].Timestamp)
		assert.Equal(t, -3, table[1].SampleNumber)
		assert.Equal(t, int64(1_000_000_000-256_000), *table[1].Timestamp)
	})

	t.Run("null timestamp sentinel", func(t *testing.T) {
		input := binaryRecord(1, 0xFFFFFFFF, nil)
		table, err := ParseData(input, binarySchema(0, 0))
		require.NoError(t, err)
		assert.Nil(t, table[0].Timestamp)

		s := binarySchema(0, 0)
		s.CriticalTimestamp = true
		table, err = ParseData(input, s)
		assert.Nil(t, table)
		assert.ErrorIs(t, err, ErrInvalidField)
	})

	t.Run("18 status channels use one full and one partial group", func(t *testing.T) {
		// Full group: channels 0, 7, 8 and 15 set. Partial group: low bits 0b10, junk above.
		input := binaryRecord(1, 0, nil, 0x8181, 0xFFF2)
		require.Len(t, input, 12)

		table, err := ParseData(input, binarySchema(0, 18))
		require.NoError(t, err)
		status := table[0].StatusValues
		require.Len(t, status, 18)

		want := make([]bool, 18)
		want[0], want[7], want[8], want[15] = true, true, true, true
		want[17] = true
		assert.Equal(t, want, status)
	})

	t.Run("partial group wider than one byte", func(t *testing.T) {
		// 11 channels: bits 0, 9 and 10 set, bit 11 set but unused.
		input := binaryRecord(1, 0, nil, 0x0E01)
		table, err := ParseData(input, binarySchema(0, 11))
		require.NoError(t, err)

		want := make([]bool, 11)
		want[0], want[9], want[10] = true, true, true
		assert.Equal(t, want, table[0].StatusValues)
	})

	t.Run("empty buffer", func(t *testing.T) {
		table, err := ParseData([]byte{}, binarySchema(2, 3))
		require.NoError(t, err)
		assert.Empty(t, table)
	})
}

func TestDecodeData_BinaryLengthCheckedFirst(t *testing.T) {
	input := append(binaryRecord(1, 0, []uint16{1}), 0x00)

	calls := 0
	n, err := DecodeData(input, binarySchema(1, 0), func(models.DataRecord) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrEarlyEOF)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, calls)
}

func TestDecodeData_CallbackError(t *testing.T) {
	stop := errors.New("stop")
	input := []byte(crlf("1,0", "2,0", "3,0"))

	seen := 0
	n, err := DecodeData(input, asciiSchema(0, 0), func(models.DataRecord) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestDecodeData_InvalidSchema(t *testing.T) {
	_, err := ParseData(nil, DataSchema{AnalogChannels: -1, Encoding: models.FileTypeASCII})
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = ParseData(nil, DataSchema{Encoding: "hex"})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestParseData_Deterministic(t *testing.T) {
	input := append(binaryRecord(1, 10, []uint16{5, 0x8000}, 0x0003), binaryRecord(2, 0xFFFFFFFF, []uint16{6, 7}, 0x0000)...)
	a, err := ParseData(input, binarySchema(2, 2))
	require.NoError(t, err)
	b, err := ParseData(input, binarySchema(2, 2))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func BenchmarkParseData_Binary(b *testing.B) {
	var input []byte
	for i := 0; i < 1000; i++ {
		input = append(input, binaryRecord(int32(i), uint32(i*250), []uint16{1, 2, 3, 4}, 0xAAAA, 0x0001)...)
	}
	schema := binarySchema(4, 17)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseData(input, schema); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseData_ASCII(b *testing.B) {
	var buf bytes.Buffer
	for i := 0; i < 1000; i++ {
		buf.WriteString("1,250,100,-200,99999,300,0,1,1\r\n")
	}
	input := buf.Bytes()
	schema := asciiSchema(4, 3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseData(input, schema); err != nil {
			b.Fatal(err)
		}
	}
}
