package echo

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/geomap-tools/shareholder-import/internal/application/importer"
	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

const actorHeader = "X-Actor"

type FailuresHandler struct {
	service app.API
}

func NewFailuresHandler(service app.API) *FailuresHandler {
	return &FailuresHandler{service: service}
}

func (h *FailuresHandler) ListFailures(c echo.Context) error {
	entries, err := h.service.Failures(c.Param("id"))
	if err != nil {
		return failureError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: entries})
}

func (h *FailuresHandler) EditFailure(c echo.Context) error {
	var fields app.EditFields
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "invalid_body",
			Message: "request body must be valid JSON",
		}})
	}

	entry, err := h.service.EditFailure(c.Param("id"), c.Param("key"), fields)
	if err != nil {
		return failureError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: entry})
}

func (h *FailuresHandler) RetryFailure(c echo.Context) error {
	result, err := h.service.RetryFailure(c.Request().Context(), c.Param("id"), c.Param("key"), actor(c))
	if err != nil {
		return failureError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: result})
}

func (h *FailuresHandler) RetryAllFailures(c echo.Context) error {
	outcome, err := h.service.RetryAllFailures(c.Request().Context(), c.Param("id"), actor(c))
	if err != nil {
		return failureError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: outcome})
}

func (h *FailuresHandler) ExportFailures(c echo.Context) error {
	payload, err := h.service.ExportFailures(c.Param("id"))
	if err != nil {
		return failureError(c, err)
	}

	filename := fmt.Sprintf("failures_%s.xlsx", c.Param("id"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payload)
}

func actor(c echo.Context) string {
	if actor := c.Request().Header.Get(actorHeader); actor != "" {
		return actor
	}
	return "operator"
}

func failureError(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrRunNotFound) {
		return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
			Code:    "not_found",
			Message: "import run not found",
		}})
	}
	if errors.Is(err, app.ErrEntryNotFound) {
		return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
			Code:    "not_found",
			Message: "failure entry not found",
		}})
	}
	if errors.Is(err, domain.ErrServiceUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, apiResponse{Error: &errorBody{
			Code:    "service_unavailable",
			Message: "geocoding service is not ready",
		}})
	}
	if errors.Is(err, app.ErrPersistFailed) {
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "persist_failed",
			Message: "row geocoded but could not be saved; it remains in the failure list",
		}})
	}
	return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
		Code:    "internal_error",
		Message: "unexpected error",
	}})
}
