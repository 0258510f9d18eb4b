package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type sendNotificationRequest struct {
	EventType string `json:"event_type"`
}

func (s *Server) SendNotification(c *gin.Context) {
	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dispatcher.Send(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.EventType))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListNotifications(c *gin.Context) {
	entries, err := s.notifications.ListByInvoice(c.Request.Context(), s.db, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"notifications": entries}})
}

func (s *Server) SendInvoiceDocument(c *gin.Context) {
	resp, err := s.dispatcher.SendInvoiceDocument(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type sendBulkRemindersRequest struct {
	InvoiceIDs []string `json:"invoice_ids"`
}

func (s *Server) SendBulkReminders(c *gin.Context) {
	var req sendBulkRemindersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.InvoiceIDs) == 0 {
		AbortWithError(c, newValidationError("invoice_ids", "missing_invoice_ids", "invoice_ids is required"))
		return
	}

	resp, err := s.dispatcher.SendBulkReminders(c.Request.Context(), req.InvoiceIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type sendBroadcastRequest struct {
	Message string `json:"message"`
}

func (s *Server) SendBroadcast(c *gin.Context) {
	var req sendBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		AbortWithError(c, newValidationError("message", "missing_message", "message is required"))
		return
	}

	resp, err := s.dispatcher.SendBroadcast(c.Request.Context(), req.Message)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
