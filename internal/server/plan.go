package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	plandomain "github.com/revlytic/revlytic/internal/plan/domain"
	"github.com/revlytic/revlytic/pkg/db/pagination"
)

type createPlanRequest struct {
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	BillingCycle string `json:"billing_cycle"`
	Active       *bool  `json:"active"`
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.planSvc.Create(c.Request.Context(), plandomain.CreatePlanRequest{
		Name:         strings.TrimSpace(req.Name),
		Price:        req.Price,
		BillingCycle: strings.TrimSpace(req.BillingCycle),
		Active:       req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPlans(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ActiveOnly bool `form:"active_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.planSvc.List(c.Request.Context(), plandomain.ListPlanRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		ActiveOnly: query.ActiveOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPlanByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.planSvc.GetByID(c.Request.Context(), plandomain.GetPlanRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePlanRequest struct {
	Name         *string `json:"name"`
	Price        *int64  `json:"price"`
	BillingCycle *string `json:"billing_cycle"`
	Active       *bool   `json:"active"`
}

func (s *Server) UpdatePlan(c *gin.Context) {
	var req updatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.planSvc.Update(c.Request.Context(), plandomain.UpdatePlanRequest{
		ID:           strings.TrimSpace(c.Param("id")),
		Name:         req.Name,
		Price:        req.Price,
		BillingCycle: req.BillingCycle,
		Active:       req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isPlanValidationError(err error) bool {
	switch err {
	case plandomain.ErrInvalidName,
		plandomain.ErrInvalidPrice,
		plandomain.ErrInvalidBillingCycle,
		plandomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
