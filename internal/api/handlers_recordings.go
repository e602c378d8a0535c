// handlers_recordings.go - Decode session handlers
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/comtrade-viewer/backend/internal/export"
	"github.com/comtrade-viewer/backend/internal/models"
	"github.com/comtrade-viewer/backend/internal/parser"
	"github.com/comtrade-viewer/backend/internal/session"
	"github.com/comtrade-viewer/backend/internal/storage"
)

const (
	defaultPageSize = 100
	maxPageSize     = 5000
)

// RecordingHandlerImpl implements the RecordingHandler interface
type RecordingHandlerImpl struct {
	sessionMgr        SessionManager
	criticalTimestamp bool
	log               *zap.Logger
}

// NewRecordingHandler creates a new recording handler. criticalTimestamp is
// the default for requests that do not set it.
func NewRecordingHandler(sessionMgr SessionManager, criticalTimestamp bool, log *zap.Logger) RecordingHandler {
	return &RecordingHandlerImpl{
		sessionMgr:        sessionMgr,
		criticalTimestamp: criticalTimestamp,
		log:               log,
	}
}

// HandleStartDecode starts decoding an uploaded cfg/dat(/inf) set
func (h *RecordingHandlerImpl) HandleStartDecode(c echo.Context) error {
	var req startDecodeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	critical := h.criticalTimestamp
	if req.CriticalTimestamp != nil {
		critical = *req.CriticalTimestamp
	}

	sess, err := h.sessionMgr.StartSession(session.Request{
		ConfigFileID:      req.ConfigFileID,
		DataFileID:        req.DataFileID,
		InfoFileID:        req.InfoFileID,
		CriticalTimestamp: critical,
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NewNotFoundError("file", err.Error())
	case errors.Is(err, session.ErrWrongFileKind):
		return NewBadRequestError("file has the wrong type for its role", err)
	case err != nil:
		return NewInternalError("failed to start decode", err)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleListRecordings returns every decode session
func (h *RecordingHandlerImpl) HandleListRecordings(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessionMgr.ListSessions())
}

// HandleStatus returns the current status of a decode session
func (h *RecordingHandlerImpl) HandleStatus(c echo.Context) error {
	id := c.Param("id")
	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("recording", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleKeepAlive extends session lifetime for active viewing
func (h *RecordingHandlerImpl) HandleKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("recording", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleProgressStream streams decode progress via SSE
func (h *RecordingHandlerImpl) HandleProgressStream(c echo.Context) error {
	id := c.Param("id")

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	ctx := c.Request().Context()
	for {
		sess, ok := h.sessionMgr.GetSession(id)
		if !ok {
			sendSSEError(c, "recording not found")
			return nil
		}
		sendSSEData(c, sess)
		if sess.Status == models.SessionStatusComplete || sess.Status == models.SessionStatusError {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		case <-timeout.C:
			sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleConfig returns the decoded configuration file
func (h *RecordingHandlerImpl) HandleConfig(c echo.Context) error {
	id := c.Param("id")
	cfg, err := h.sessionMgr.Config(id)
	if err != nil {
		return sessionError(id, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// HandleInfo returns the decoded info file, or 404 when the recording has none
func (h *RecordingHandlerImpl) HandleInfo(c echo.Context) error {
	id := c.Param("id")
	info, err := h.sessionMgr.Info(id)
	if err != nil {
		return sessionError(id, err)
	}
	if info == nil {
		return NewNotFoundError("info file for recording", id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleSamples returns a page of data records
func (h *RecordingHandlerImpl) HandleSamples(c echo.Context) error {
	id := c.Param("id")
	page, pageSize := pagination(c)

	records, total, err := h.sessionMgr.QueryRecords(c.Request().Context(), id, page, pageSize)
	if err != nil {
		return sessionError(id, err)
	}

	return c.JSON(http.StatusOK, samplesResponse{
		Records:  records,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

// HandleSamplesMsgpack returns a page of data records in MessagePack format
func (h *RecordingHandlerImpl) HandleSamplesMsgpack(c echo.Context) error {
	id := c.Param("id")
	page, pageSize := pagination(c)

	records, total, err := h.sessionMgr.QueryRecords(c.Request().Context(), id, page, pageSize)
	if err != nil {
		return sessionError(id, err)
	}

	data, err := export.Marshal(export.FormatMsgpack, samplesResponse{
		Records:  records,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, export.FormatMsgpack.ContentType(), data)
}

// HandleSamplesArrow streams the whole data table as an Arrow IPC stream
func (h *RecordingHandlerImpl) HandleSamplesArrow(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	analog, status, err := h.sessionMgr.Channels(id)
	if err != nil {
		return sessionError(id, err)
	}
	table, err := h.sessionMgr.Records(ctx, id)
	if err != nil {
		return sessionError(id, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.apache.arrow.stream")
	c.Response().WriteHeader(http.StatusOK)
	if err := export.WriteArrow(c.Response(), table, analog, status); err != nil {
		// Headers are already sent; all we can do is log.
		h.log.Error("arrow export failed", zap.String("recording", id), zap.Error(err))
	}
	return nil
}

// HandleAnalogChannel returns one analog channel as a series
func (h *RecordingHandlerImpl) HandleAnalogChannel(c echo.Context) error {
	id := c.Param("id")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return NewValidationError("index")
	}

	points, err := h.sessionMgr.AnalogSeries(c.Request().Context(), id, index)
	if err != nil {
		return sessionError(id, err)
	}
	return c.JSON(http.StatusOK, points)
}

// HandleStatusChannel returns one status channel as a series
func (h *RecordingHandlerImpl) HandleStatusChannel(c echo.Context) error {
	id := c.Param("id")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return NewValidationError("index")
	}

	points, err := h.sessionMgr.StatusSeries(c.Request().Context(), id, index)
	if err != nil {
		return sessionError(id, err)
	}
	return c.JSON(http.StatusOK, points)
}

// HandleExport returns the whole recording as json, yaml or msgpack (?format=)
func (h *RecordingHandlerImpl) HandleExport(c echo.Context) error {
	id := c.Param("id")
	format, err := formatParam(c)
	if err != nil {
		return err
	}

	cfg, err := h.sessionMgr.Config(id)
	if err != nil {
		return sessionError(id, err)
	}
	info, err := h.sessionMgr.Info(id)
	if err != nil {
		return sessionError(id, err)
	}
	table, err := h.sessionMgr.Records(c.Request().Context(), id)
	if err != nil {
		return sessionError(id, err)
	}

	data, err := export.Marshal(format, export.Recording{Config: cfg, Info: info, Data: table})
	if err != nil {
		return NewInternalError("failed to encode recording", err)
	}
	return c.Blob(http.StatusOK, format.ContentType(), data)
}

// HandleDeleteRecording drops a finished decode session
func (h *RecordingHandlerImpl) HandleDeleteRecording(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessionMgr.DeleteSession(id); err != nil {
		return sessionError(id, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// sessionError maps session manager errors to API errors.
func sessionError(id string, err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return NewNotFoundError("recording", id)
	case errors.Is(err, session.ErrSessionNotReady):
		return NewConflictError(fmt.Sprintf("recording %s is not decoded", id))
	case errors.Is(err, parser.ErrInvalidChannel):
		return NewBadRequestError("invalid channel", err)
	}
	return NewInternalError("query failed", err)
}

func pagination(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

func formatParam(c echo.Context) (export.Format, error) {
	name := c.QueryParam("format")
	if name == "" {
		return export.FormatJSON, nil
	}
	f, err := export.ParseFormat(name)
	if err != nil {
		return "", NewBadRequestError("invalid format", err)
	}
	return f, nil
}

func sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func sendSSEError(c echo.Context, message string) {
	sendSSEData(c, map[string]string{"error": message})
}

// Request/Response types

type startDecodeRequest struct {
	ConfigFileID      string `json:"configFileId"`
	DataFileID        string `json:"dataFileId"`
	InfoFileID        string `json:"infoFileId"`
	CriticalTimestamp *bool  `json:"criticalTimestamp"`
}

func (r *startDecodeRequest) validate() error {
	if r.ConfigFileID == "" {
		return NewValidationError("configFileId")
	}
	if r.DataFileID == "" {
		return NewValidationError("dataFileId")
	}
	return nil
}

type samplesResponse struct {
	Records  []models.DataRecord `json:"records" msgpack:"records"`
	Page     int                 `json:"page" msgpack:"page"`
	PageSize int                 `json:"pageSize" msgpack:"page_size"`
	Total    int                 `json:"total" msgpack:"total"`
}
