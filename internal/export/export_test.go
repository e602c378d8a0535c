package export

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comtrade-viewer/backend/internal/models"
)

func testTable() models.DataTable {
	return models.DataTable{
		{
			SampleNumber: 1,
			Timestamp:    models.Int64Ptr(1_000),
			AnalogValues: []*int32{models.Int32Ptr(5), nil},
			StatusValues: []bool{true},
		},
		{
			SampleNumber: 2,
			AnalogValues: []*int32{nil, models.Int32Ptr(-7)},
			StatusValues: []bool{false},
		},
		{
			SampleNumber: 3,
			Timestamp:    models.Int64Ptr(3_000),
			AnalogValues: []*int32{models.Int32Ptr(0), models.Int32Ptr(1)},
			StatusValues: []bool{true},
		},
	}
}

func testRecording() Recording {
	freq := 50.0
	first := int64(1_000)
	return Recording{
		Config: &models.ConfigurationRecord{
			Station: models.StationRecord{StationName: "S", RecordingDeviceID: "D", RevisionYear: 1999, TotalChannels: 3, AnalogChannels: 2, StatusChannels: 1},
			AnalogChannels: []models.AnalogChannel{
				{Index: 1, ID: "Ia", Units: "A", Multiplier: 1, Scaling: models.ScalingPrimary},
				{Index: 2, ID: "Ib", Units: "A", Multiplier: 1, Scaling: models.ScalingSecondary},
			},
			StatusChannels:  []models.StatusChannel{{Index: 1, ID: "CB", NormalState: 1}},
			LineFrequency:   &freq,
			SampleRates:     models.SampleRates{DeclaredCount: 1, Entries: []models.SampleRateEntry{{Rate: 1000, LastSampleNumber: 3}}},
			Times:           models.TimeRecord{FirstDataTime: &first},
			FileType:        models.FileTypeBinary,
			TimestampFactor: 1,
		},
		Info: &models.InfoRecord{Sections: []models.InfoSection{
			{Name: "General", Entries: []models.InfoEntry{{Key: "k", Values: []string{"a", "b"}}}},
		}},
		Data: testTable(),
	}
}

func TestArrowSchema(t *testing.T) {
	schema := ArrowSchema(2, 1)
	require.Equal(t, 5, schema.NumFields())
	assert.Equal(t, "sample_number", schema.Field(0).Name)
	assert.Equal(t, "time", schema.Field(1).Name)
	assert.Equal(t, arrow.TIMESTAMP, schema.Field(1).Type.ID())
	assert.Equal(t, "analog_channel_0", schema.Field(2).Name)
	assert.Equal(t, "analog_channel_1", schema.Field(3).Name)
	assert.Equal(t, "status_channel_0", schema.Field(4).Name)
	assert.Equal(t, arrow.BOOL, schema.Field(4).Type.ID())
}

func TestArrowRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteArrow(&buf, testTable(), 2, 1))

	got, err := ReadArrow(&buf)
	require.NoError(t, err)
	assert.Equal(t, testTable(), got)
}

func TestArrowWriter_Batches(t *testing.T) {
	var buf bytes.Buffer
	aw := NewArrowWriter(&buf, 2, 1, 2)
	require.NoError(t, aw.WriteTable(testTable()))
	assert.Equal(t, 2, aw.Rows())
	require.NoError(t, aw.Close())
	assert.Equal(t, 3, aw.Rows())

	got, err := ReadArrow(&buf)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestArrowWriter_RejectsWrongShape(t *testing.T) {
	aw := NewArrowWriter(&bytes.Buffer{}, 2, 1, 0)
	defer aw.Close()
	err := aw.Write(models.DataRecord{SampleNumber: 1, AnalogValues: []*int32{nil}, StatusValues: []bool{true}})
	assert.Error(t, err)
}

func TestFormats_RoundTrip(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatYAML, FormatMsgpack} {
		t.Run(string(f), func(t *testing.T) {
			rec := testRecording()
			data, err := Marshal(f, rec)
			require.NoError(t, err)

			var got Recording
			require.NoError(t, Unmarshal(f, data, &got))
			assert.Equal(t, rec.Config.Station, got.Config.Station)
			assert.Equal(t, rec.Config.AnalogChannels, got.Config.AnalogChannels)
			assert.Equal(t, *rec.Config.LineFrequency, *got.Config.LineFrequency)
			assert.Equal(t, rec.Info, got.Info)
			require.Len(t, got.Data, 3)
			assert.Nil(t, got.Data[1].Timestamp)
			assert.Nil(t, got.Data[0].AnalogValues[1])
			assert.Equal(t, int32(-7), *got.Data[1].AnalogValues[1])
		})
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, testRecording()))
	assert.Contains(t, buf.String(), "station_name: S")
	assert.Contains(t, buf.String(), "scaling_identifier: secondary")

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, testRecording()))
	assert.Contains(t, buf.String(), `"stationName": "S"`)

	assert.Error(t, Write(&buf, Format("xml"), nil))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	assert.Equal(t, "application/yaml", f.ContentType())

	f, err = ParseFormat("msgpack")
	require.NoError(t, err)
	assert.Equal(t, "application/msgpack", f.ContentType())

	_, err = ParseFormat("csv")
	assert.Error(t, err)
}
