// Package web provides the HTTP observer API for the home controller.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sweeney/home-controller/internal/control"
	"github.com/sweeney/home-controller/internal/device"
	"github.com/sweeney/home-controller/internal/logbook"
	"github.com/sweeney/home-controller/internal/sensor"
)

// Controller is the part of control.Controller the API uses.
type Controller interface {
	Snapshot() control.Snapshot
	Devices() []device.Device
	Device(id string) (device.Device, error)
	Request(id string, state device.State) (bool, error)
	Toggle(id string) (device.State, error)
	Sample() (sensor.Reading, error)
	RecentActions(limit int) ([]logbook.ActionEntry, error)
}

// Config configures a Server.
type Config struct {
	Addr string
	// Origins lists allowed CORS origins; empty allows any.
	Origins []string
	// ReadingLog and ActionLog are the CSV files offered for download.
	ReadingLog string
	ActionLog  string
	Logger     zerolog.Logger
}

// Server serves the observer API over HTTP.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	ctrl       Controller
	cfg        Config
	log        zerolog.Logger
}

// New creates a Server that reads state from and sends requests to ctrl.
func New(cfg Config, ctrl Controller) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine: gin.New(),
		ctrl:   ctrl,
		cfg:    cfg,
		log:    cfg.Logger.With().Str("component", "http").Logger(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger(s.log))

	origins := s.cfg.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/health", s.handleHealth)
		v1.GET("/status", s.handleStatus)

		devices := v1.Group("/devices")
		{
			devices.GET("", s.handleListDevices)
			devices.GET("/:id", s.handleGetDevice)
			devices.POST("/:id/state", s.handleSetState)
			devices.POST("/:id/toggle", s.handleToggle)
		}

		v1.POST("/sensor/sample", s.handleSample)
		v1.GET("/readings", s.handleReadings)
		v1.GET("/actions", s.handleActions)

		logs := v1.Group("/logs")
		{
			logs.GET("/readings.csv", s.handleDownload(s.cfg.ReadingLog, "sensor_data.csv"))
			logs.GET("/actions.csv", s.handleDownload(s.cfg.ActionLog, "device_logs.csv"))
		}
	}
}

// requestLogger logs one line per request, at warn for 4xx and error for 5xx.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		status := c.Writer.Status()

		ev := log.Debug()
		if status >= 400 {
			ev = log.Warn()
		}
		if status >= 500 {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// Handler returns the HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
