package parser

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/comtrade-viewer/backend/internal/models"
)

// ErrInvalidChannel is returned for a channel index outside the recording.
var ErrInvalidChannel = errors.New("invalid channel index")

// DefaultBatchSize is the number of records buffered before they are appended to DuckDB.
const DefaultBatchSize = 50000

// DuckStore keeps decoded data records in a temporary DuckDB file so large
// recordings can be paged and sliced per channel without holding the table in memory.
//
// Records are stored in long form:
//
//	samples(row_idx, sample_number, timestamp)
//	analog_values(row_idx, channel, value)   value NULL for the null sentinel
//	status_values(row_idx, channel, value)
type DuckStore struct {
	db             *sql.DB
	dbPath         string
	analogChannels int
	statusChannels int
	recordCount    int
	batchSize      int
	batch          []models.DataRecord
	minTs          *int64
	maxTs          *int64
	log            *zap.Logger

	// Semaphore to limit concurrent queries
	querySem chan struct{}
}

// ChannelPoint is one sample of a single analog channel.
type ChannelPoint struct {
	SampleNumber int    `json:"sampleNumber" msgpack:"sample_number"`
	Timestamp    *int64 `json:"timestamp" msgpack:"time"`
	Value        *int32 `json:"value" msgpack:"value"`
}

// StatusPoint is one sample of a single status channel.
type StatusPoint struct {
	SampleNumber int    `json:"sampleNumber" msgpack:"sample_number"`
	Timestamp    *int64 `json:"timestamp" msgpack:"time"`
	Value        bool   `json:"value" msgpack:"value"`
}

// DuckStoreOption configures a DuckStore.
type DuckStoreOption func(*DuckStore)

// WithLogger sets the logger used for batch and index diagnostics.
func WithLogger(l *zap.Logger) DuckStoreOption {
	return func(ds *DuckStore) { ds.log = l }
}

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) DuckStoreOption {
	return func(ds *DuckStore) {
		if n > 0 {
			ds.batchSize = n
		}
	}
}

// NewDuckStore creates a new DuckDB-backed store in the given temp directory.
func NewDuckStore(tempDir, sessionID string, analog, status int, opts ...DuckStoreOption) (*DuckStore, error) {
	dbPath := filepath.Join(tempDir, fmt.Sprintf("session_%s.duckdb", sessionID))
	return NewDuckStoreAtPath(dbPath, analog, status, opts...)
}

// NewDuckStoreAtPath creates a new DuckDB-backed store at a specific path.
func NewDuckStoreAtPath(dbPath string, analog, status int, opts ...DuckStoreOption) (*DuckStore, error) {
	ds := &DuckStore{
		dbPath:         dbPath,
		analogChannels: analog,
		statusChannels: status,
		batchSize:      DefaultBatchSize,
		log:            zap.NewNop(),
		querySem:       make(chan struct{}, 3), // Max 3 concurrent queries
	}
	for _, opt := range opts {
		opt(ds)
	}
	ds.batch = make([]models.DataRecord, 0, ds.batchSize)

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='1GB'",
			"PRAGMA threads=4",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	tables := []string{
		`CREATE TABLE samples (
			row_idx       INTEGER NOT NULL,
			sample_number INTEGER NOT NULL,
			timestamp     BIGINT
		)`,
		`CREATE TABLE analog_values (
			row_idx INTEGER NOT NULL,
			channel INTEGER NOT NULL,
			value   INTEGER
		)`,
		`CREATE TABLE status_values (
			row_idx INTEGER NOT NULL,
			channel INTEGER NOT NULL,
			value   BOOLEAN NOT NULL
		)`,
	}
	for _, ddl := range tables {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			os.Remove(dbPath)
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	ds.db = db

	ds.log.Debug("duckstore created",
		zap.String("path", dbPath),
		zap.Int("analog", analog),
		zap.Int("status", status))
	return ds, nil
}

// AddRecord buffers a record and flushes the batch once it is full.
func (ds *DuckStore) AddRecord(rec models.DataRecord) error {
	if len(rec.AnalogValues) != ds.analogChannels || len(rec.StatusValues) != ds.statusChannels {
		return fmt.Errorf("record %d has %d analog and %d status values, store expects %d and %d",
			ds.recordCount+1, len(rec.AnalogValues), len(rec.StatusValues), ds.analogChannels, ds.statusChannels)
	}
	ds.batch = append(ds.batch, rec)

	if ts := rec.Timestamp; ts != nil {
		if ds.minTs == nil || *ts < *ds.minTs {
			v := *ts
			ds.minTs = &v
		}
		if ds.maxTs == nil || *ts > *ds.maxTs {
			v := *ts
			ds.maxTs = &v
		}
	}
	ds.recordCount++

	if len(ds.batch) >= ds.batchSize {
		return ds.flushBatch()
	}
	return nil
}

// flushBatch writes the current batch to DuckDB using the native Appender API.
func (ds *DuckStore) flushBatch() error {
	if len(ds.batch) == 0 {
		return nil
	}
	startTime := time.Now()

	conn, err := ds.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	baseIdx := ds.recordCount - len(ds.batch)
	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		samples, err := duckdb.NewAppenderFromConn(dConn, "", "samples")
		if err != nil {
			return fmt.Errorf("failed to create samples appender: %w", err)
		}
		defer samples.Close()
		analog, err := duckdb.NewAppenderFromConn(dConn, "", "analog_values")
		if err != nil {
			return fmt.Errorf("failed to create analog appender: %w", err)
		}
		defer analog.Close()
		status, err := duckdb.NewAppenderFromConn(dConn, "", "status_values")
		if err != nil {
			return fmt.Errorf("failed to create status appender: %w", err)
		}
		defer status.Close()

		for i, rec := range ds.batch {
			row := int32(baseIdx + i)
			var ts driver.Value
			if rec.Timestamp != nil {
				ts = *rec.Timestamp
			}
			if err := samples.AppendRow(row, int32(rec.SampleNumber), ts); err != nil {
				return fmt.Errorf("failed to append sample %d: %w", row, err)
			}
			for ch, v := range rec.AnalogValues {
				var val driver.Value
				if v != nil {
					val = *v
				}
				if err := analog.AppendRow(row, int32(ch), val); err != nil {
					return fmt.Errorf("failed to append analog value %d/%d: %w", row, ch, err)
				}
			}
			for ch, v := range rec.StatusValues {
				if err := status.AppendRow(row, int32(ch), v); err != nil {
					return fmt.Errorf("failed to append status value %d/%d: %w", row, ch, err)
				}
			}
		}

		if err := samples.Flush(); err != nil {
			return err
		}
		if err := analog.Flush(); err != nil {
			return err
		}
		return status.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	ds.log.Debug("duckstore batch flushed",
		zap.Int("records", len(ds.batch)),
		zap.Int("first_row", baseIdx),
		zap.Duration("elapsed", time.Since(startTime)))
	ds.batch = ds.batch[:0]
	return nil
}

// Finalize flushes any remaining records and creates indexes.
func (ds *DuckStore) Finalize() error {
	if err := ds.flushBatch(); err != nil {
		return err
	}
	start := time.Now()

	indexes := []string{
		"CREATE INDEX idx_samples_row ON samples(row_idx)",
		"CREATE INDEX idx_analog_channel ON analog_values(channel, row_idx)",
		"CREATE INDEX idx_status_channel ON status_values(channel, row_idx)",
	}
	for _, stmt := range indexes {
		if _, err := ds.db.Exec(stmt); err != nil {
			return fmt.Errorf("index creation failed: %w", err)
		}
	}

	ds.log.Debug("duckstore finalized",
		zap.Int("records", ds.recordCount),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Len returns the total number of records.
func (ds *DuckStore) Len() int {
	return ds.recordCount
}

// Channels returns the analog and status channel counts of the stored records.
func (ds *DuckStore) Channels() (analog, status int) {
	return ds.analogChannels, ds.statusChannels
}

// TimeRange returns the smallest and largest non-null timestamps seen.
func (ds *DuckStore) TimeRange() (start, end *int64) {
	return ds.minTs, ds.maxTs
}

func (ds *DuckStore) acquire(ctx context.Context) (func(), error) {
	select {
	case ds.querySem <- struct{}{}:
		return func() { <-ds.querySem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetRecords returns records with start <= row index < end, in file order.
func (ds *DuckStore) GetRecords(ctx context.Context, start, end int) ([]models.DataRecord, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if start < 0 {
		start = 0
	}
	if end > ds.recordCount {
		end = ds.recordCount
	}
	if end <= start {
		return []models.DataRecord{}, nil
	}

	records := make([]models.DataRecord, end-start)
	for i := range records {
		records[i].AnalogValues = make([]*int32, ds.analogChannels)
		records[i].StatusValues = make([]bool, ds.statusChannels)
	}

	rows, err := ds.db.QueryContext(ctx,
		"SELECT row_idx, sample_number, timestamp FROM samples WHERE row_idx >= ? AND row_idx < ? ORDER BY row_idx",
		start, end)
	if err != nil {
		return nil, fmt.Errorf("samples query failed: %w", err)
	}
	for rows.Next() {
		var idx, sampleNumber int
		var ts sql.NullInt64
		if err := rows.Scan(&idx, &sampleNumber, &ts); err != nil {
			rows.Close()
			return nil, err
		}
		rec := &records[idx-start]
		rec.SampleNumber = sampleNumber
		if ts.Valid {
			v := ts.Int64
			rec.Timestamp = &v
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if ds.analogChannels > 0 {
		rows, err := ds.db.QueryContext(ctx,
			"SELECT row_idx, channel, value FROM analog_values WHERE row_idx >= ? AND row_idx < ?",
			start, end)
		if err != nil {
			return nil, fmt.Errorf("analog query failed: %w", err)
		}
		for rows.Next() {
			var idx, ch int
			var val sql.NullInt32
			if err := rows.Scan(&idx, &ch, &val); err != nil {
				rows.Close()
				return nil, err
			}
			if val.Valid {
				v := val.Int32
				records[idx-start].AnalogValues[ch] = &v
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	if ds.statusChannels > 0 {
		rows, err := ds.db.QueryContext(ctx,
			"SELECT row_idx, channel, value FROM status_values WHERE row_idx >= ? AND row_idx < ?",
			start, end)
		if err != nil {
			return nil, fmt.Errorf("status query failed: %w", err)
		}
		for rows.Next() {
			var idx, ch int
			var val bool
			if err := rows.Scan(&idx, &ch, &val); err != nil {
				rows.Close()
				return nil, err
			}
			records[idx-start].StatusValues[ch] = val
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// QueryRecords returns one page of records (1-based page) and the total record count.
func (ds *DuckStore) QueryRecords(ctx context.Context, page, pageSize int) ([]models.DataRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	offset := (page - 1) * pageSize
	records, err := ds.GetRecords(ctx, offset, offset+pageSize)
	if err != nil {
		return nil, 0, err
	}
	return records, ds.recordCount, nil
}

// AnalogSeries returns every sample of one analog channel (0-based) in file order.
func (ds *DuckStore) AnalogSeries(ctx context.Context, channel int) ([]ChannelPoint, error) {
	if channel < 0 || channel >= ds.analogChannels {
		return nil, fmt.Errorf("%w: analog %d", ErrInvalidChannel, channel)
	}
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := ds.db.QueryContext(ctx, `
		SELECT s.sample_number, s.timestamp, a.value
		FROM samples s JOIN analog_values a ON a.row_idx = s.row_idx
		WHERE a.channel = ?
		ORDER BY s.row_idx
	`, channel)
	if err != nil {
		return nil, fmt.Errorf("analog series query failed: %w", err)
	}
	defer rows.Close()

	points := make([]ChannelPoint, 0, ds.recordCount)
	for rows.Next() {
		var p ChannelPoint
		var ts sql.NullInt64
		var val sql.NullInt32
		if err := rows.Scan(&p.SampleNumber, &ts, &val); err != nil {
			return nil, err
		}
		if ts.Valid {
			v := ts.Int64
			p.Timestamp = &v
		}
		if val.Valid {
			v := val.Int32
			p.Value = &v
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// StatusSeries returns every sample of one status channel (0-based) in file order.
func (ds *DuckStore) StatusSeries(ctx context.Context, channel int) ([]StatusPoint, error) {
	if channel < 0 || channel >= ds.statusChannels {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidChannel, channel)
	}
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := ds.db.QueryContext(ctx, `
		SELECT s.sample_number, s.timestamp, d.value
		FROM samples s JOIN status_values d ON d.row_idx = s.row_idx
		WHERE d.channel = ?
		ORDER BY s.row_idx
	`, channel)
	if err != nil {
		return nil, fmt.Errorf("status series query failed: %w", err)
	}
	defer rows.Close()

	points := make([]StatusPoint, 0, ds.recordCount)
	for rows.Next() {
		var p StatusPoint
		var ts sql.NullInt64
		if err := rows.Scan(&p.SampleNumber, &ts, &p.Value); err != nil {
			return nil, err
		}
		if ts.Valid {
			v := ts.Int64
			p.Timestamp = &v
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Close closes the database and removes the temp file.
func (ds *DuckStore) Close() error {
	if ds.db != nil {
		ds.db.Close()
	}
	if ds.dbPath != "" {
		os.Remove(ds.dbPath)
		os.Remove(ds.dbPath + ".wal")
	}
	return nil
}
