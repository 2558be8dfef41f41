package echo

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/geomap-tools/shareholder-import/internal/application/importer"
	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

type ImportHandler struct {
	service app.API
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func NewImportHandler(service app.API) *ImportHandler {
	return &ImportHandler{service: service}
}

func (h *ImportHandler) UploadShareholders(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "missing_file",
			Message: "multipart field 'file' is required",
		}})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "unreadable_file",
			Message: "could not open uploaded file",
		}})
	}
	defer src.Close()

	payload, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "unreadable_file",
			Message: "could not read uploaded file",
		}})
	}

	runID, err := h.service.Start(c.Request().Context(), app.Upload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(echo.HeaderContentType),
		Payload:     payload,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			return c.JSON(http.StatusUnsupportedMediaType, apiResponse{Error: &errorBody{
				Code:    "unsupported_format",
				Message: "file must be an Excel workbook or CSV",
			}})
		}
		if errors.Is(err, domain.ErrMalformedSpreadsheet) {
			return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
				Code:    "parse_error",
				Message: "spreadsheet could not be decoded",
			}})
		}
		if errors.Is(err, domain.ErrMissingColumn) {
			return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
				Code:    "schema_error",
				Message: err.Error(),
			}})
		}

		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to start import",
		}})
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: map[string]string{
		"run_id": runID,
		"status": string(domain.RunRunning),
	}})
}

func (h *ImportHandler) GetRun(c echo.Context) error {
	summary, err := h.service.Run(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
				Code:    "not_found",
				Message: "import run not found",
			}})
		}
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to get import run",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: map[string]any{
		"id":        summary.ID,
		"filename":  summary.Filename,
		"status":    summary.Status,
		"processed": summary.Processed,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"error":     summary.ErrorReason,
	}})
}

func (h *ImportHandler) GetProgress(c echo.Context) error {
	view, err := h.service.Progress(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
				Code:    "not_found",
				Message: "import run not found",
			}})
		}
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to get progress",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: view})
}
