package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	catalogdomain "github.com/wecloud/backoffice/internal/catalog/domain"
	"github.com/wecloud/backoffice/pkg/db/pagination"
)

type createPackageRequest struct {
	Name         string `json:"name"`
	Speed        string `json:"speed"`
	MonthlyPrice string `json:"monthly_price"`
	Currency     string `json:"currency"`
}

func (s *Server) CreatePackage(c *gin.Context) {
	var req createPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Create(c.Request.Context(), catalogdomain.CreatePackageRequest{
		Name:         strings.TrimSpace(req.Name),
		Speed:        strings.TrimSpace(req.Speed),
		MonthlyPrice: strings.TrimSpace(req.MonthlyPrice),
		Currency:     strings.TrimSpace(req.Currency),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePackageRequest struct {
	Name         *string `json:"name"`
	Speed        *string `json:"speed"`
	MonthlyPrice *string `json:"monthly_price"`
	Active       *bool   `json:"active"`
}

func (s *Server) UpdatePackage(c *gin.Context) {
	var req updatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Update(c.Request.Context(), catalogdomain.UpdatePackageRequest{
		ID:           strings.TrimSpace(c.Param("id")),
		Name:         req.Name,
		Speed:        req.Speed,
		MonthlyPrice: req.MonthlyPrice,
		Active:       req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePackage(c *gin.Context) {
	err := s.catalogSvc.Delete(c.Request.Context(), catalogdomain.DeletePackageRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) GetPackageByID(c *gin.Context) {
	resp, err := s.catalogSvc.GetByID(c.Request.Context(), catalogdomain.GetPackageRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPackages(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name   string `form:"name"`
		Active string `form:"active"`
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

	resp, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListPackageRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Name:      strings.TrimSpace(query.Name),
		Active:    active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
