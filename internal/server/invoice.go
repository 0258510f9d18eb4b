package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	invoicedomain "github.com/wecloud/backoffice/internal/invoice/domain"
	"github.com/wecloud/backoffice/pkg/db/pagination"
)

type createInvoiceRequest struct {
	UserID    string `json:"user_id"`
	PackageID string `json:"package_id"`
	Amount    string `json:"amount"`
	DueDate   string `json:"due_date"`
	Status    string `json:"status"`
	Notify    *bool  `json:"notify"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}

	create := invoicedomain.CreateInvoiceRequest{
		UserID:    strings.TrimSpace(req.UserID),
		PackageID: strings.TrimSpace(req.PackageID),
		Amount:    strings.TrimSpace(req.Amount),
		Status:    strings.TrimSpace(req.Status),
		Notify:    req.Notify == nil || *req.Notify,
	}
	if dueDate != nil {
		create.DueDate = *dueDate
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), create)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateInvoiceRequest struct {
	Amount  *string `json:"amount"`
	DueDate *string `json:"due_date"`
	Status  *string `json:"status"`
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		parsed, err := parseOptionalDate(*req.DueDate)
		if err != nil || parsed == nil {
			AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
			return
		}
		dueDate = parsed
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), invoicedomain.UpdateInvoiceRequest{
		ID:      strings.TrimSpace(c.Param("id")),
		Amount:  req.Amount,
		DueDate: dueDate,
		Status:  req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	err := s.invoiceSvc.Delete(c.Request.Context(), invoicedomain.DeleteInvoiceRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), invoicedomain.GetInvoiceRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
		UserID string `form:"user_id"`
		Month  string `form:"month"`
		Year   string `form:"year"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	month, err := parseOptionalInt(query.Month)
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_period", "invalid month"))
		return
	}
	year, err := parseOptionalInt(query.Year)
	if err != nil {
		AbortWithError(c, newValidationError("year", "invalid_period", "invalid year"))
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Status:    strings.TrimSpace(query.Status),
		UserID:    strings.TrimSpace(query.UserID),
		Month:     month,
		Year:      year,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type markInvoicePaidRequest struct {
	Notify *bool `json:"notify"`
}

func (s *Server) MarkInvoicePaid(c *gin.Context) {
	var req markInvoicePaidRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.MarkPaid(c.Request.Context(), invoicedomain.MarkPaidRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Notify: req.Notify == nil || *req.Notify,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReclassifyInvoices(c *gin.Context) {
	resp, err := s.invoiceSvc.Reclassify(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type generateMonthlyRequest struct {
	Month   *int   `json:"month"`
	Year    *int   `json:"year"`
	DueDate string `json:"due_date"`
	Notify  *bool  `json:"notify"`
}

func (s *Server) GenerateMonthlyInvoices(c *gin.Context) {
	var req generateMonthlyRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		AbortWithError(c, invalidRequestError())
		return
	}

	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}

	now := s.clock.Now().UTC()
	generate := invoicedomain.GenerateMonthlyRequest{
		Month:  int(now.Month()) - 1,
		Year:   now.Year(),
		Notify: req.Notify == nil || *req.Notify,
	}
	if req.Month != nil {
		generate.Month = *req.Month
	}
	if req.Year != nil {
		generate.Year = *req.Year
	}
	if dueDate != nil {
		generate.DueDate = *dueDate
	} else {
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		generate.DueDate = startOfDay.AddDate(0, 0, s.cfg.Scheduler.DueDays)
	}

	resp, err := s.invoiceSvc.GenerateMonthly(c.Request.Context(), generate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TotalRevenue(c *gin.Context) {
	total, err := s.invoiceSvc.TotalRevenue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"total_revenue": total}})
}
