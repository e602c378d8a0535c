package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comtrade-viewer/backend/internal/models"
)

func sampleTable(first int64) models.DataTable {
	return models.DataTable{
		{
			SampleNumber: 1,
			Timestamp:    models.Int64Ptr(first),
			AnalogValues: []*int32{models.Int32Ptr(100), nil},
			StatusValues: []bool{true, false, false, false, false, false, false, false, false, false, false, false, false, false, false, false, false, true},
		},
		{
			SampleNumber: 2,
			Timestamp:    nil,
			AnalogValues: []*int32{models.Int32Ptr(-32767), models.Int32Ptr(32767)},
			StatusValues: make([]bool, 18),
		},
		{
			SampleNumber: 3,
			Timestamp:    models.Int64Ptr(first + 500_000),
			AnalogValues: []*int32{models.Int32Ptr(0), models.Int32Ptr(-1)},
			StatusValues: []bool{false, true, false, false, false, false, false, false, true, false, false, false, false, false, false, false, true, false},
		},
	}
}

func TestDataEncoder_RoundTrip(t *testing.T) {
	for _, enc := range []models.FileType{models.FileTypeBinary, models.FileTypeASCII} {
		t.Run(string(enc), func(t *testing.T) {
			schema := DataSchema{
				AnalogChannels:  2,
				StatusChannels:  18,
				FirstDataTime:   1_600_000_000_000_000_000,
				TimestampFactor: 1.0,
				Encoding:        enc,
			}
			table := sampleTable(schema.FirstDataTime)

			var buf bytes.Buffer
			e := NewDataEncoder(&buf, schema)
			require.NoError(t, e.EncodeAll(table))
			assert.Equal(t, 3, e.Count())

			if enc == models.FileTypeBinary {
				assert.Equal(t, 3*schema.RecordSize(), buf.Len())
			}

			decoded, err := ParseData(buf.Bytes(), schema)
			require.NoError(t, err)
			assert.Equal(t, table, decoded)
		})
	}
}

func TestDataEncoder_BinaryLayout(t *testing.T) {
	schema := DataSchema{AnalogChannels: 1, StatusChannels: 2, TimestampFactor: 1.0, Encoding: models.FileTypeBinary}
	var buf bytes.Buffer
	err := NewDataEncoder(&buf, schema).Encode(models.DataRecord{
		SampleNumber: 1,
		Timestamp:    models.Int64Ptr(2000),
		AnalogValues: []*int32{nil},
		StatusValues: []bool{false, true},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x01, 0x00, 0x00, 0x00, // sample number
		0x02, 0x00, 0x00, 0x00, // 2us
		0x00, 0x80, // null analog
		0x02, 0x00, // channel 1 set
	}, buf.Bytes())
}

func TestDataEncoder_ASCIILayout(t *testing.T) {
	schema := DataSchema{AnalogChannels: 2, StatusChannels: 2, TimestampFactor: 1.0, Encoding: models.FileTypeASCII}
	var buf bytes.Buffer
	err := NewDataEncoder(&buf, schema).Encode(models.DataRecord{
		SampleNumber: 10,
		Timestamp:    models.Int64Ptr(5_000_000),
		AnalogValues: []*int32{nil, models.Int32Ptr(120)},
		StatusValues: []bool{false, true},
	})
	require.NoError(t, err)
	assert.Equal(t, "10,5000,99999,120,0,1\r\n", buf.String())
}

func TestDataEncoder_Errors(t *testing.T) {
	binarySchema := DataSchema{AnalogChannels: 1, TimestampFactor: 1.0, Encoding: models.FileTypeBinary}

	t.Run("wrong shape", func(t *testing.T) {
		err := NewDataEncoder(&bytes.Buffer{}, binarySchema).Encode(models.DataRecord{})
		assert.Error(t, err)
	})

	t.Run("analog value reserved for null", func(t *testing.T) {
		err := NewDataEncoder(&bytes.Buffer{}, binarySchema).Encode(models.DataRecord{
			AnalogValues: []*int32{models.Int32Ptr(-32768)},
		})
		assert.Error(t, err)
	})

	t.Run("analog value out of range", func(t *testing.T) {
		err := NewDataEncoder(&bytes.Buffer{}, binarySchema).Encode(models.DataRecord{
			AnalogValues: []*int32{models.Int32Ptr(40000)},
		})
		assert.Error(t, err)
	})

	t.Run("ascii null sentinel value", func(t *testing.T) {
		s := binarySchema
		s.Encoding = models.FileTypeASCII
		err := NewDataEncoder(&bytes.Buffer{}, s).Encode(models.DataRecord{
			AnalogValues: []*int32{models.Int32Ptr(AnalogNullASCII)},
		})
		assert.Error(t, err)
	})

	t.Run("zero factor", func(t *testing.T) {
		s := binarySchema
		s.TimestampFactor = 0
		err := NewDataEncoder(&bytes.Buffer{}, s).Encode(models.DataRecord{
			Timestamp:    models.Int64Ptr(1),
			AnalogValues: []*int32{nil},
		})
		assert.Error(t, err)
	})
}
