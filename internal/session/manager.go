// Package session runs COMTRADE decodes in the background and keeps the
// decoded recordings queryable until they expire.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comtrade-viewer/backend/internal/metrics"
	"github.com/comtrade-viewer/backend/internal/models"
	"github.com/comtrade-viewer/backend/internal/parser"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultMaxSessions     = 10
	DefaultSessionMaxAge   = 30 * time.Minute
	SessionKeepAliveWindow = 5 * time.Minute
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionNotReady = errors.New("session is not complete")
	ErrWrongFileKind   = errors.New("wrong file kind")
)

// progressEvery is how many records are decoded between progress updates.
const progressEvery = 10000

// FileSource is the part of the file store the manager reads from.
type FileSource interface {
	Get(id string) (*models.FileInfo, error)
	ReadFile(id string) ([]byte, error)
}

// Options configures a Manager.
type Options struct {
	TempDir     string
	MaxSessions int
	MaxAge      time.Duration
	BatchSize   int
	Logger      *zap.Logger
}

// Request names the files of one recording. InfoFileID may be empty.
type Request struct {
	ConfigFileID      string `json:"configFileId"`
	DataFileID        string `json:"dataFileId"`
	InfoFileID        string `json:"infoFileId,omitempty"`
	CriticalTimestamp bool   `json:"criticalTimestamp"`
}

// Manager handles active decode sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	files    FileSource
	opts     Options
	log      *zap.Logger
}

// SessionState holds the session metadata and the decoded recording.
type SessionState struct {
	Session      *models.DecodeSession
	Config       *models.ConfigurationRecord
	Info         *models.InfoRecord
	DuckStore    *parser.DuckStore
	LastAccessed time.Time
	done         chan struct{}
}

// NewManager creates a session manager reading files from files.
func NewManager(files FileSource, opts Options) *Manager {
	if opts.TempDir == "" {
		opts.TempDir = "./data/temp"
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultSessionMaxAge
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = parser.DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	os.MkdirAll(opts.TempDir, 0755)

	return &Manager{
		sessions: make(map[string]*SessionState),
		files:    files,
		opts:     opts,
		log:      opts.Logger,
	}
}

// StartSession checks the referenced files and begins decoding them in the background.
func (m *Manager) StartSession(req Request) (*models.DecodeSession, error) {
	if err := m.checkKind(req.ConfigFileID, models.FileKindConfig); err != nil {
		return nil, err
	}
	if err := m.checkKind(req.DataFileID, models.FileKindData); err != nil {
		return nil, err
	}
	if req.InfoFileID != "" {
		if err := m.checkKind(req.InfoFileID, models.FileKindInfo); err != nil {
			return nil, err
		}
	}

	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()
	sess := models.NewDecodeSession(sessionID, req.ConfigFileID, req.DataFileID, req.InfoFileID)
	sess.CriticalTimestamp = req.CriticalTimestamp
	sess.Status = models.SessionStatusDecoding

	state := &SessionState{
		Session:      sess,
		LastAccessed: time.Now(),
		done:         make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[sessionID] = state
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	snapshot := cloneSession(sess)
	m.mu.Unlock()

	go m.runDecode(sessionID, req, state.done)

	return snapshot, nil
}

func (m *Manager) checkKind(id string, want models.FileKind) error {
	info, err := m.files.Get(id)
	if err != nil {
		return err
	}
	if info.Kind != want {
		return fmt.Errorf("%w: %s is %s, expected %s", ErrWrongFileKind, info.Name, info.Kind, want)
	}
	return nil
}

func (m *Manager) runDecode(sessionID string, req Request, done chan struct{}) {
	log := m.log.With(zap.String("session", sessionID))
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			log.Error("decode panicked", zap.Any("panic", r))
			m.updateSessionError(sessionID, fmt.Errorf("decode panicked: %v", r))
		}
	}()

	start := time.Now()
	log.Info("decode started",
		zap.String("cfg", req.ConfigFileID),
		zap.String("dat", req.DataFileID),
		zap.String("inf", req.InfoFileID))

	cfg, err := m.decodeConfig(req.ConfigFileID)
	if err != nil {
		log.Warn("configuration decode failed", zap.Error(err))
		m.updateSessionError(sessionID, err)
		return
	}
	m.setProgress(sessionID, 10)

	schema := parser.SchemaFor(cfg, req.CriticalTimestamp)
	store, err := parser.NewDuckStore(m.opts.TempDir, sessionID, schema.AnalogChannels, schema.StatusChannels,
		parser.WithLogger(log), parser.WithBatchSize(m.opts.BatchSize))
	if err != nil {
		log.Error("failed to create storage", zap.Error(err))
		m.updateSessionError(sessionID, fmt.Errorf("failed to create storage: %w", err))
		return
	}

	if err := m.decodeData(sessionID, req.DataFileID, schema, store); err != nil {
		store.Close()
		log.Warn("data decode failed", zap.Error(err))
		m.updateSessionError(sessionID, err)
		return
	}
	m.setProgress(sessionID, 90)

	var info *models.InfoRecord
	if req.InfoFileID != "" {
		info, err = m.decodeInfo(req.InfoFileID)
		if err != nil {
			store.Close()
			log.Warn("info decode failed", zap.Error(err))
			m.updateSessionError(sessionID, err)
			return
		}
	}

	elapsed := time.Since(start)
	log.Info("decode complete",
		zap.Int("records", store.Len()),
		zap.String("encoding", string(schema.Encoding)),
		zap.Duration("elapsed", elapsed))

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		store.Close()
		return
	}

	state.Config = cfg
	state.Info = info
	state.DuckStore = store

	s := state.Session
	s.Status = models.SessionStatusComplete
	s.Progress = 100
	s.StationName = cfg.Station.StationName
	s.FileType = cfg.FileType
	s.RecordCount = store.Len()
	s.AnalogChannels = schema.AnalogChannels
	s.StatusChannels = schema.StatusChannels
	s.ProcessingTimeMs = elapsed.Milliseconds()
	s.StartTime, s.EndTime = store.TimeRange()
}

func (m *Manager) decodeConfig(id string) (*models.ConfigurationRecord, error) {
	data, err := m.files.ReadFile(id)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	cfg, err := parser.ParseConfiguration(string(data))
	metrics.ObserveDecode("cfg", len(data), start, err, parser.KindName)
	return cfg, err
}

func (m *Manager) decodeData(sessionID, id string, schema parser.DataSchema, store *parser.DuckStore) error {
	data, err := m.files.ReadFile(id)
	if err != nil {
		return err
	}

	expected := expectedRecords(data, schema)
	start := time.Now()
	n, err := parser.DecodeData(data, schema, func(rec models.DataRecord) error {
		if err := store.AddRecord(rec); err != nil {
			return err
		}
		if c := store.Len(); c%progressEvery == 0 && expected > 0 {
			m.setProgress(sessionID, 10+80*min(1, float64(c)/float64(expected)))
		}
		return nil
	})
	metrics.ObserveDecode("dat", len(data), start, err, parser.KindName)
	if err != nil {
		return err
	}
	metrics.RecordsDecoded.WithLabelValues(string(schema.Encoding)).Add(float64(n))
	return store.Finalize()
}

func (m *Manager) decodeInfo(id string) (*models.InfoRecord, error) {
	data, err := m.files.ReadFile(id)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	info, err := parser.ParseInfo(string(data))
	metrics.ObserveDecode("inf", len(data), start, err, parser.KindName)
	return info, err
}

// expectedRecords estimates the record count for progress reporting.
func expectedRecords(data []byte, schema parser.DataSchema) int {
	if schema.Encoding == models.FileTypeBinary {
		if size := schema.RecordSize(); size > 0 {
			return len(data) / size
		}
		return 0
	}
	return bytes.Count(data, []byte("\r\n"))
}

func (m *Manager) setProgress(sessionID string, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.sessions[sessionID]; ok {
		state.Session.Progress = progress
	}
}

func (m *Manager) updateSessionError(sessionID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Session.Status = models.SessionStatusError
	state.Session.Errors = append(state.Session.Errors, ToParseError(err))
}

// ToParseError converts a decode failure into its reported form.
func ToParseError(err error) models.ParseError {
	var de *parser.DecodeError
	if errors.As(err, &de) {
		return models.ParseError{
			File:   de.File,
			Kind:   parser.KindName(err),
			Line:   de.Line,
			Reason: de.Reason,
		}
	}
	return models.ParseError{Kind: parser.KindName(err), Reason: err.Error()}
}

// Wait blocks until the session has finished decoding or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (*models.DecodeSession, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	select {
	case <-state.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	sess, ok := m.GetSession(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// cleanupOldSessionsIfNeeded removes finished sessions, least recently used
// first, until there is room for one more.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.sessions) >= m.opts.MaxSessions {
		var oldestID string
		var oldest time.Time
		for id, state := range m.sessions {
			if !finished(state.Session.Status) {
				continue
			}
			if oldestID == "" || state.LastAccessed.Before(oldest) {
				oldestID, oldest = id, state.LastAccessed
			}
		}
		if oldestID == "" {
			return
		}
		m.removeLocked(oldestID)
		m.log.Info("evicted session to make room", zap.String("session", oldestID))
	}
}

// CleanupOldSessions removes finished sessions not accessed within maxAge.
// Sessions used within SessionKeepAliveWindow are always kept.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	removed := 0
	for id, state := range m.sessions {
		if !finished(state.Session.Status) {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			m.removeLocked(id)
			removed++
			m.log.Info("cleaned up aged session",
				zap.String("session", id),
				zap.Duration("idle", now.Sub(state.LastAccessed).Round(time.Second)))
		}
	}
	return removed
}

// RunCleanup sweeps expired sessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldSessions(m.opts.MaxAge)
		}
	}
}

func finished(status models.SessionStatus) bool {
	return status == models.SessionStatusComplete || status == models.SessionStatusError
}

func (m *Manager) removeLocked(id string) {
	state, ok := m.sessions[id]
	if !ok {
		return
	}
	if state.DuckStore != nil {
		if err := state.DuckStore.Close(); err != nil {
			m.log.Warn("failed to close session store", zap.String("session", id), zap.Error(err))
		}
	}
	delete(m.sessions, id)
	metrics.SessionsActive.Set(float64(len(m.sessions)))
}

// DeleteSession removes a finished session and its storage.
func (m *Manager) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if !finished(state.Session.Status) {
		return ErrSessionNotReady
	}
	m.removeLocked(id)
	return nil
}

// Close waits for running decodes and releases every session.
func (m *Manager) Close() {
	m.mu.RLock()
	pending := make([]chan struct{}, 0, len(m.sessions))
	for _, state := range m.sessions {
		pending = append(pending, state.done)
	}
	m.mu.RUnlock()
	for _, done := range pending {
		<-done
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.sessions {
		m.removeLocked(id)
	}
}

// GetSession returns a snapshot of a session by ID.
func (m *Manager) GetSession(id string) (*models.DecodeSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return cloneSession(state.Session), true
}

// ListSessions returns snapshots of all sessions.
func (m *Manager) ListSessions() []*models.DecodeSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.DecodeSession, 0, len(m.sessions))
	for _, state := range m.sessions {
		list = append(list, cloneSession(state.Session))
	}
	return list
}

func cloneSession(s *models.DecodeSession) *models.DecodeSession {
	c := *s
	c.Errors = append([]models.ParseError(nil), s.Errors...)
	return &c
}

// TouchSession updates the LastAccessed timestamp for a session so it is
// not cleaned up while in use.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// completeState returns the state of a completed session and marks it used.
func (m *Manager) completeState(id string) (*SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if state.Session.Status != models.SessionStatusComplete {
		return nil, ErrSessionNotReady
	}
	state.LastAccessed = time.Now()
	return state, nil
}

// Config returns the decoded configuration of a completed session.
func (m *Manager) Config(id string) (*models.ConfigurationRecord, error) {
	state, err := m.completeState(id)
	if err != nil {
		return nil, err
	}
	return state.Config, nil
}

// Info returns the decoded info file, or nil when the session had none.
func (m *Manager) Info(id string) (*models.InfoRecord, error) {
	state, err := m.completeState(id)
	if err != nil {
		return nil, err
	}
	return state.Info, nil
}

// QueryRecords returns one page of data records.
func (m *Manager) QueryRecords(ctx context.Context, id string, page, pageSize int) ([]models.DataRecord, int, error) {
	state, err := m.completeState(id)
	if err != nil {
		return nil, 0, err
	}
	return state.DuckStore.QueryRecords(ctx, page, pageSize)
}

// Records returns the whole data table of a completed session.
func (m *Manager) Records(ctx context.Context, id string) (models.DataTable, error) {
	state, err := m.completeState(id)
	if err != nil {
		return nil, err
	}
	records, err := state.DuckStore.GetRecords(ctx, 0, state.DuckStore.Len())
	if err != nil {
		return nil, err
	}
	return models.DataTable(records), nil
}

// AnalogSeries returns every sample of one analog channel.
func (m *Manager) AnalogSeries(ctx context.Context, id string, channel int) ([]parser.ChannelPoint, error) {
	state, err := m.completeState(id)
	if err != nil {
		return nil, err
	}
	return state.DuckStore.AnalogSeries(ctx, channel)
}

// StatusSeries returns every sample of one status channel.
func (m *Manager) StatusSeries(ctx context.Context, id string, channel int) ([]parser.StatusPoint, error) {
	state, err := m.completeState(id)
	if err != nil {
		return nil, err
	}
	return state.DuckStore.StatusSeries(ctx, channel)
}

// Channels returns the channel counts of a completed session.
func (m *Manager) Channels(id string) (analog, status int, err error) {
	state, err := m.completeState(id)
	if err != nil {
		return 0, 0, err
	}
	analog, status = state.DuckStore.Channels()
	return analog, status, nil
}
