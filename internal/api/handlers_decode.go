// handlers_decode.go - Stateless decode handlers
package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/comtrade-viewer/backend/internal/export"
	"github.com/comtrade-viewer/backend/internal/metrics"
	"github.com/comtrade-viewer/backend/internal/models"
	"github.com/comtrade-viewer/backend/internal/parser"
)

// DecodeHandlerImpl implements the DecodeHandler interface
type DecodeHandlerImpl struct {
	criticalTimestamp   bool
	allowPathReferences bool
}

// NewDecodeHandler creates a decode handler. When allowPathReferences is set,
// HandleDecodeRecording also accepts ":"-prefixed server paths in the
// cfgPath, datPath and infPath form fields.
func NewDecodeHandler(criticalTimestamp, allowPathReferences bool) DecodeHandler {
	return &DecodeHandlerImpl{
		criticalTimestamp:   criticalTimestamp,
		allowPathReferences: allowPathReferences,
	}
}

// HandleDecodeConfig decodes a .cfg file sent as the request body
func (h *DecodeHandlerImpl) HandleDecodeConfig(c echo.Context) error {
	format, err := formatParam(c)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read body", err)
	}

	start := time.Now()
	cfg, err := parser.ParseConfiguration(string(body))
	metrics.ObserveDecode("cfg", len(body), start, err, parser.KindName)
	if err != nil {
		return NewUnprocessableError("invalid configuration file", err)
	}
	return respond(c, format, cfg)
}

// HandleDecodeInfo decodes a .inf file sent as the request body
func (h *DecodeHandlerImpl) HandleDecodeInfo(c echo.Context) error {
	format, err := formatParam(c)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read body", err)
	}

	start := time.Now()
	info, err := parser.ParseInfo(string(body))
	metrics.ObserveDecode("inf", len(body), start, err, parser.KindName)
	if err != nil {
		return NewUnprocessableError("invalid info file", err)
	}
	return respond(c, format, info)
}

// HandleDecodeRecording decodes a multipart upload with cfg, dat and optional
// inf parts and returns the whole recording.
func (h *DecodeHandlerImpl) HandleDecodeRecording(c echo.Context) error {
	format, err := formatParam(c)
	if err != nil {
		return err
	}

	critical := h.criticalTimestamp
	if v := c.FormValue("critical"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return NewValidationError("critical")
		}
		critical = b
	}

	cfgText, err := h.part(c, "cfg")
	if err != nil {
		return err
	}
	if cfgText == nil {
		return NewValidationError("cfg")
	}
	cfg, err := parser.ParseConfiguration(string(cfgText))
	if err != nil {
		return NewUnprocessableError("invalid configuration file", err)
	}

	datBytes, err := h.part(c, "dat")
	if err != nil {
		return err
	}
	if datBytes == nil {
		return NewValidationError("dat")
	}
	schema := parser.SchemaFor(cfg, critical)
	start := time.Now()
	table, err := parser.ParseData(datBytes, schema)
	metrics.ObserveDecode("dat", len(datBytes), start, err, parser.KindName)
	if err != nil {
		return NewUnprocessableError("invalid data file", err)
	}
	metrics.RecordsDecoded.WithLabelValues(string(schema.Encoding)).Add(float64(len(table)))

	var info *models.InfoRecord
	infText, err := h.part(c, "inf")
	if err != nil {
		return err
	}
	if infText != nil {
		if info, err = parser.ParseInfo(string(infText)); err != nil {
			return NewUnprocessableError("invalid info file", err)
		}
	}

	return respond(c, format, export.Recording{Config: cfg, Info: info, Data: table})
}

// part returns the content of the named multipart file, or of the server
// path in "<name>Path" when path references are allowed. It returns nil
// when neither is present.
func (h *DecodeHandlerImpl) part(c echo.Context, name string) ([]byte, error) {
	if ref := c.FormValue(name + "Path"); ref != "" {
		if !h.allowPathReferences {
			return nil, NewBadRequestError("path references are disabled", nil)
		}
		data, err := parser.ReadBytes(ref)
		if err != nil {
			return nil, NewUnprocessableError("cannot read "+name+" file", err)
		}
		return data, nil
	}

	fh, err := c.FormFile(name)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, NewBadRequestError("invalid multipart body", err)
	}
	return readPart(fh)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, NewInternalError("failed to open uploaded file", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, NewBadRequestError("failed to read uploaded file", err)
	}
	return data, nil
}

func respond(c echo.Context, format export.Format, v interface{}) error {
	if format == export.FormatJSON {
		return c.JSON(http.StatusOK, v)
	}
	data, err := export.Marshal(format, v)
	if err != nil {
		return NewInternalError("failed to encode response", err)
	}
	return c.Blob(http.StatusOK, format.ContentType(), data)
}
