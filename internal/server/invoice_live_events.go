package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	invoicedomain "github.com/wecloud/backoffice/internal/invoice/domain"
)

// StreamInvoiceEvents pushes invoice changes matching the optional status and
// user_id filters over server-sent events until the client disconnects.
func (s *Server) StreamInvoiceEvents(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		UserID string `form:"user_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	events := make(chan invoicedomain.Invoice, 32)
	detach, err := s.invoiceSvc.Subscribe(c.Request.Context(), invoicedomain.SubscribeInvoiceRequest{
		Status: strings.TrimSpace(query.Status),
		UserID: strings.TrimSpace(query.UserID),
	}, func(inv invoicedomain.Invoice) {
		select {
		case events <- inv:
		default:
		}
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer detach()

	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case inv := <-events:
			if err := writeInvoiceEvent(writer, inv); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeInvoiceEvent(w io.Writer, inv invoicedomain.Invoice) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
