package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(server *e.Echo, importHandler *ImportHandler, failuresHandler *FailuresHandler) {
	server.POST("/api/v1/imports/shareholders", importHandler.UploadShareholders)
	server.GET("/api/v1/imports/:id", importHandler.GetRun)
	server.GET("/api/v1/imports/:id/progress", importHandler.GetProgress)

	server.GET("/api/v1/imports/:id/failures", failuresHandler.ListFailures)
	server.PATCH("/api/v1/imports/:id/failures/:key", failuresHandler.EditFailure)
	server.POST("/api/v1/imports/:id/failures/:key/retry", failuresHandler.RetryFailure)
	server.POST("/api/v1/imports/:id/failures/retry", failuresHandler.RetryAllFailures)
	server.GET("/api/v1/imports/:id/failures/export", failuresHandler.ExportFailures)
}
