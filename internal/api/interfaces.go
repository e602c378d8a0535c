// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/comtrade-viewer/backend/internal/models"
	"github.com/comtrade-viewer/backend/internal/parser"
	"github.com/comtrade-viewer/backend/internal/session"
)

// FileHandler handles uploaded file operations
type FileHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadBinary(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
}

// RecordingHandler handles decode sessions over uploaded files
type RecordingHandler interface {
	HandleStartDecode(c echo.Context) error
	HandleListRecordings(c echo.Context) error
	HandleStatus(c echo.Context) error
	HandleProgressStream(c echo.Context) error
	HandleKeepAlive(c echo.Context) error
	HandleConfig(c echo.Context) error
	HandleInfo(c echo.Context) error
	HandleSamples(c echo.Context) error
	HandleSamplesMsgpack(c echo.Context) error
	HandleSamplesArrow(c echo.Context) error
	HandleAnalogChannel(c echo.Context) error
	HandleStatusChannel(c echo.Context) error
	HandleExport(c echo.Context) error
	HandleDeleteRecording(c echo.Context) error
}

// DecodeHandler decodes request bodies without storing anything
type DecodeHandler interface {
	HandleDecodeConfig(c echo.Context) error
	HandleDecodeInfo(c echo.Context) error
	HandleDecodeRecording(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	StartSession(req session.Request) (*models.DecodeSession, error)
	GetSession(id string) (*models.DecodeSession, bool)
	ListSessions() []*models.DecodeSession
	TouchSession(id string) bool
	DeleteSession(id string) error
	Config(id string) (*models.ConfigurationRecord, error)
	Info(id string) (*models.InfoRecord, error)
	Channels(id string) (analog, status int, err error)
	QueryRecords(ctx context.Context, id string, page, pageSize int) ([]models.DataRecord, int, error)
	Records(ctx context.Context, id string) (models.DataTable, error)
	AnalogSeries(ctx context.Context, id string, channel int) ([]parser.ChannelPoint, error)
	StatusSeries(ctx context.Context, id string, channel int) ([]parser.StatusPoint, error)
}

var _ SessionManager = (*session.Manager)(nil)
