package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) WhatsAppStatus(c *gin.Context) {
	state, err := s.gateway.Status(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"state": state,
		"ready": state.Ready(),
	}})
}

func (s *Server) WhatsAppQR(c *gin.Context) {
	qr, err := s.gateway.QR(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if qr == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"qr": qr}})
}

func (s *Server) WhatsAppRestart(c *gin.Context) {
	if err := s.gateway.Restart(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"restarted": true}})
}
