package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	subscriberdomain "github.com/wecloud/backoffice/internal/subscriber/domain"
	"github.com/wecloud/backoffice/pkg/db/pagination"
)

type createSubscriberRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	PackageID string `json:"package_id"`
}

func (s *Server) CreateSubscriber(c *gin.Context) {
	var req createSubscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriberSvc.Create(c.Request.Context(), subscriberdomain.CreateSubscriberRequest{
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		PackageID: strings.TrimSpace(req.PackageID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateSubscriberRequest struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	PackageID *string `json:"package_id"`
	Active    *bool   `json:"active"`
}

func (s *Server) UpdateSubscriber(c *gin.Context) {
	var req updateSubscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriberSvc.Update(c.Request.Context(), subscriberdomain.UpdateSubscriberRequest{
		ID:        strings.TrimSpace(c.Param("id")),
		Name:      req.Name,
		Phone:     req.Phone,
		Address:   req.Address,
		PackageID: req.PackageID,
		Active:    req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSubscriber(c *gin.Context) {
	err := s.subscriberSvc.Delete(c.Request.Context(), subscriberdomain.DeleteSubscriberRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) GetSubscriberByID(c *gin.Context) {
	resp, err := s.subscriberSvc.GetByID(c.Request.Context(), subscriberdomain.GetSubscriberRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSubscribers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name      string `form:"name"`
		Phone     string `form:"phone"`
		Region    string `form:"region"`
		PackageID string `form:"package_id"`
		Active    string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.subscriberSvc.List(c.Request.Context(), subscriberdomain.ListSubscriberRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Name:      strings.TrimSpace(query.Name),
		Phone:     strings.TrimSpace(query.Phone),
		Region:    strings.TrimSpace(query.Region),
		PackageID: strings.TrimSpace(query.PackageID),
		Active:    active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
