package web

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sweeney/home-controller/internal/control"
	"github.com/sweeney/home-controller/internal/device"
)

const maxActionsLimit = 1000

func (s *Server) handleHealth(c *gin.Context) {
	snap := s.ctrl.Snapshot()
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Bus:       snap.Connectivity.Label(),
		Timestamp: snap.Now.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, formatStatus(s.ctrl.Snapshot()))
}

func (s *Server) handleListDevices(c *gin.Context) {
	devices := s.ctrl.Devices()
	out := make([]DeviceJSON, 0, len(devices))
	for _, d := range devices {
		out = append(out, formatDevice(d))
	}
	c.JSON(http.StatusOK, ListDevicesResponse{Devices: out, Count: len(out)})
}

func (s *Server) handleGetDevice(c *gin.Context) {
	d, err := s.ctrl.Device(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, formatDevice(d))
}

func (s *Server) handleSetState(c *gin.Context) {
	var req SetStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	state, err := device.ParseState(req.State)
	if err != nil {
		s.writeError(c, err)
		return
	}

	id := c.Param("id")
	changed, err := s.ctrl.Request(id, state)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.writeStateResponse(c, id, changed)
}

func (s *Server) handleToggle(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.ctrl.Toggle(id); err != nil {
		s.writeError(c, err)
		return
	}
	s.writeStateResponse(c, id, true)
}

func (s *Server) writeStateResponse(c *gin.Context, id string, changed bool) {
	d, err := s.ctrl.Device(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, StateResponse{Device: formatDevice(d), Changed: changed})
}

func (s *Server) handleSample(c *gin.Context) {
	r, err := s.ctrl.Sample()
	if err != nil {
		// A reading that was taken but failed to persist or publish is still
		// returned; the error only means the sensor produced nothing.
		if r.Time.IsZero() {
			s.writeError(c, err)
			return
		}
		s.log.Warn().Err(err).Msg("forced sample partially failed")
	}
	c.JSON(http.StatusOK, formatReading(r))
}

func (s *Server) handleReadings(c *gin.Context) {
	snap := s.ctrl.Snapshot()
	out := make([]ReadingJSON, 0, len(snap.History))
	for _, r := range snap.History {
		out = append(out, formatReading(r))
	}
	c.JSON(http.StatusOK, ReadingsResponse{Readings: out, Count: len(out), LastUpdate: snap.LastUpdate})
}

func (s *Server) handleActions(c *gin.Context) {
	limit := control.DefaultRecentActions
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxActionsLimit {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be between 1 and 1000",
			})
			return
		}
		limit = n
	}

	actions, err := s.ctrl.RecentActions(limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]ActionJSON, 0, len(actions))
	for _, a := range actions {
		out = append(out, formatAction(a))
	}
	c.JSON(http.StatusOK, ActionsResponse{Actions: out, Count: len(out)})
}

func (s *Server) handleDownload(path, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if path == "" {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "log not configured"})
			return
		}
		if _, err := os.Stat(path); err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "log file does not exist yet"})
			return
		}
		c.Header("Content-Type", "text/csv")
		c.FileAttachment(path, name)
	}
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, device.ErrInvalidState):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_state", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
	}
}
