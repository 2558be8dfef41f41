package bootstrap

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	app "github.com/geomap-tools/shareholder-import/internal/application/importer"
	httpecho "github.com/geomap-tools/shareholder-import/internal/interfaces/http/echo"
)

func NewHTTPServer(service app.API) *echo.Echo {
	server := echo.New()
	server.HideBanner = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(middleware.BodyLimit("20M"))

	importHandler := httpecho.NewImportHandler(service)
	failuresHandler := httpecho.NewFailuresHandler(service)

	httpecho.RegisterRoutes(server, importHandler, failuresHandler)

	server.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	return server
}
