package gateway

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hoststate/hoststate/internal/session"
	"github.com/hoststate/hoststate/internal/snapshot"
)

// handleMonitors samples the display count once, outside any session.
func (s *Server) handleMonitors(c *gin.Context) {
	count, err := s.probe.SampleMonitorCount(c.Request.Context())
	if err != nil {
		log.Printf("[query] monitors: %v", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.JSON(http.StatusOK, session.MonitorUpdate{Count: snapshot.Count(count)})
}

// handleApps returns the flagged apps currently running, or an empty list.
func (s *Server) handleApps(c *gin.Context) {
	apps, err := s.probe.SampleRunningApps(c.Request.Context())
	if err != nil {
		log.Printf("[query] apps: %v", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.JSON(http.StatusOK, apps.FlaggedApps)
}
