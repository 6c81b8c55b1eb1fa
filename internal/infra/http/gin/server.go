package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentcal/internal/infra/config"
	"rentcal/internal/infra/obs"
)

type CalendarHTTP interface {
	Calendar(c *gin.Context)
	Feed(c *gin.Context)
	OpenPeriods(c *gin.Context)
	Rates(c *gin.Context)
	Open(c *gin.Context)
	Close(c *gin.Context)
	ApplyRate(c *gin.Context)
	ResetRate(c *gin.Context)
	BookingAt(c *gin.Context)
}

type SettingsHTTP interface {
	Get(c *gin.Context)
	Save(c *gin.Context)
}

type Handlers struct {
	Calendar CalendarHTTP
	Settings SettingsHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine without touching the global gin mode.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	listing := router.Group("/api/v1/listings/:id")
	if h.Calendar != nil {
		listing.GET("/calendar", h.Calendar.Calendar)
		listing.GET("/calendar.ics", h.Calendar.Feed)
		listing.GET("/open-periods", h.Calendar.OpenPeriods)
		listing.POST("/open-periods/open", h.Calendar.Open)
		listing.POST("/open-periods/close", h.Calendar.Close)
		listing.GET("/rates", h.Calendar.Rates)
		listing.POST("/rates/apply", h.Calendar.ApplyRate)
		listing.POST("/rates/reset", h.Calendar.ResetRate)
		listing.GET("/bookings/at/:date", h.Calendar.BookingAt)
	}
	if h.Settings != nil {
		listing.GET("/settings", h.Settings.Get)
		listing.PUT("/settings", h.Settings.Save)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
