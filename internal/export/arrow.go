// Package export serialises decoded recordings for downstream tooling.
package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/comtrade-viewer/backend/internal/models"
)

// DefaultArrowBatchSize is the number of rows per Arrow record batch.
const DefaultArrowBatchSize = 10000

// ArrowSchema returns the table schema for a recording:
// sample_number int32, time timestamp[ns] (nullable), analog_channel_<i> int32 (nullable),
// status_channel_<i> bool.
func ArrowSchema(analog, status int) *arrow.Schema {
	fields := make([]arrow.Field, 0, 2+analog+status)
	fields = append(fields,
		arrow.Field{Name: "sample_number", Type: arrow.PrimitiveTypes.Int32},
		arrow.Field{Name: "time", Type: arrow.FixedWidthTypes.Timestamp_ns, Nullable: true},
	)
	for i := 0; i < analog; i++ {
		fields = append(fields, arrow.Field{Name: models.AnalogColumnName(i), Type: arrow.PrimitiveTypes.Int32, Nullable: true})
	}
	for i := 0; i < status; i++ {
		fields = append(fields, arrow.Field{Name: models.StatusColumnName(i), Type: arrow.FixedWidthTypes.Boolean})
	}
	return arrow.NewSchema(fields, nil)
}

// ArrowWriter streams data records as Arrow IPC record batches.
type ArrowWriter struct {
	schema    *arrow.Schema
	analog    int
	status    int
	builder   *array.RecordBuilder
	writer    *ipc.Writer
	batchSize int
	pending   int
	written   int
}

// NewArrowWriter creates a writer for a recording with the given channel counts.
// batchSize <= 0 uses DefaultArrowBatchSize.
func NewArrowWriter(w io.Writer, analog, status, batchSize int) *ArrowWriter {
	if batchSize <= 0 {
		batchSize = DefaultArrowBatchSize
	}
	mem := memory.NewGoAllocator()
	schema := ArrowSchema(analog, status)
	return &ArrowWriter{
		schema:    schema,
		analog:    analog,
		status:    status,
		builder:   array.NewRecordBuilder(mem, schema),
		writer:    ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem)),
		batchSize: batchSize,
	}
}

// Schema returns the Arrow schema being written.
func (aw *ArrowWriter) Schema() *arrow.Schema {
	return aw.schema
}

// Write appends one record, emitting a batch when it is full.
func (aw *ArrowWriter) Write(rec models.DataRecord) error {
	if len(rec.AnalogValues) != aw.analog || len(rec.StatusValues) != aw.status {
		return fmt.Errorf("record %d: want %d analog and %d status values, got %d and %d",
			rec.SampleNumber, aw.analog, aw.status, len(rec.AnalogValues), len(rec.StatusValues))
	}

	aw.builder.Field(0).(*array.Int32Builder).Append(int32(rec.SampleNumber))

	tsb := aw.builder.Field(1).(*array.TimestampBuilder)
	if rec.Timestamp != nil {
		tsb.Append(arrow.Timestamp(*rec.Timestamp))
	} else {
		tsb.AppendNull()
	}

	for i, v := range rec.AnalogValues {
		b := aw.builder.Field(2 + i).(*array.Int32Builder)
		if v != nil {
			b.Append(*v)
		} else {
			b.AppendNull()
		}
	}
	for i, v := range rec.StatusValues {
		aw.builder.Field(2 + aw.analog + i).(*array.BooleanBuilder).Append(v)
	}

	aw.pending++
	if aw.pending >= aw.batchSize {
		return aw.flush()
	}
	return nil
}

// WriteTable appends every record of table.
func (aw *ArrowWriter) WriteTable(table models.DataTable) error {
	for _, rec := range table {
		if err := aw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func (aw *ArrowWriter) flush() error {
	if aw.pending == 0 {
		return nil
	}
	rec := aw.builder.NewRecord()
	defer rec.Release()
	if err := aw.writer.Write(rec); err != nil {
		return fmt.Errorf("writing arrow batch: %w", err)
	}
	aw.written += aw.pending
	aw.pending = 0
	return nil
}

// Rows returns the number of rows written in completed batches.
func (aw *ArrowWriter) Rows() int {
	return aw.written
}

// Close flushes the last partial batch and ends the IPC stream.
func (aw *ArrowWriter) Close() error {
	defer aw.builder.Release()
	if err := aw.flush(); err != nil {
		return err
	}
	return aw.writer.Close()
}

// WriteArrow writes a whole table as an Arrow IPC stream.
func WriteArrow(w io.Writer, table models.DataTable, analog, status int) error {
	aw := NewArrowWriter(w, analog, status, DefaultArrowBatchSize)
	if err := aw.WriteTable(table); err != nil {
		aw.builder.Release()
		return err
	}
	return aw.Close()
}

// ReadArrow decodes an Arrow IPC stream written by ArrowWriter back into data records.
func ReadArrow(r io.Reader) (models.DataTable, error) {
	rdr, err := ipc.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening arrow stream: %w", err)
	}
	defer rdr.Release()

	schema := rdr.Schema()
	analog, status := 0, 0
	for _, f := range schema.Fields()[2:] {
		if f.Type.ID() == arrow.INT32 {
			analog++
		} else {
			status++
		}
	}

	table := models.DataTable{}
	for rdr.Next() {
		rec := rdr.Record()
		samples := rec.Column(0).(*array.Int32)
		times := rec.Column(1).(*array.Timestamp)
		for row := 0; row < int(rec.NumRows()); row++ {
			dr := models.DataRecord{
				SampleNumber: int(samples.Value(row)),
				AnalogValues: make([]*int32, analog),
				StatusValues: make([]bool, status),
			}
			if times.IsValid(row) {
				ts := int64(times.Value(row))
				dr.Timestamp = &ts
			}
			for i := 0; i < analog; i++ {
				col := rec.Column(2 + i).(*array.Int32)
				if col.IsValid(row) {
					v := col.Value(row)
					dr.AnalogValues[i] = &v
				}
			}
			for i := 0; i < status; i++ {
				dr.StatusValues[i] = rec.Column(2 + analog + i).(*array.Boolean).Value(row)
			}
			table = append(table, dr)
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("reading arrow stream: %w", err)
	}
	return table, nil
}
