package api

import (
	"net/http"

	"github.com/dmitrijs2005/fileguard/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type RouterConfig struct {
	SecretKey       string
	UploadRateLimit float64
	MaxSize         int64
}

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler, cfg RouterConfig, log logging.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(RequestLogger(log.With("module", "http")))

	e.GET("/", handler.HandleHealth)

	// multipart framing on top of the file itself
	upload := []echo.MiddlewareFunc{MaxBody(cfg.MaxSize + 1<<20), UploadRateLimiter(cfg.UploadRateLimit, log)}
	e.POST("/api/upload", handler.HandleUpload, upload...)
	e.POST("/api/upload/upload", handler.HandleUpload, upload...)

	e.POST("/api/notify/send", handler.HandleNotify)

	e.GET("/api/audit", handler.HandleAudit, RequireOperator([]byte(cfg.SecretKey)))

	return e
}
