package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status reports database reachability and the messaging session state in
// one check, for dashboards and uptime monitors.
func (s *Server) Status(c *gin.Context) {
	dbStatus := "ok"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "error"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error"
	}

	state, err := s.gateway.Status(c.Request.Context())
	if err != nil {
		state = "UNKNOWN"
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"database": dbStatus,
		"whatsapp": gin.H{
			"state": state,
			"ready": state.Ready(),
		},
	}})
}
