package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/revlytic/revlytic/internal/customer/domain"
	"github.com/revlytic/revlytic/pkg/db/pagination"
)

type createCustomerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Status          string `json:"status"`
	PlanID          string `json:"plan_id"`
	MonthlyRevenue  int64  `json:"monthly_revenue"`
	AcquisitionCost int64  `json:"acquisition_cost"`
	StartDate       string `json:"start_date"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startDate, err := parseOptionalTime(req.StartDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		Status:          strings.TrimSpace(req.Status),
		PlanID:          strings.TrimSpace(req.PlanID),
		MonthlyRevenue:  req.MonthlyRevenue,
		AcquisitionCost: req.AcquisitionCost,
		StartDate:       startDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status      string `form:"status"`
		PlanID      string `form:"plan_id"`
		CreatedFrom string `form:"created_from"`
		CreatedTo   string `form:"created_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	createdFrom, err := parseOptionalTime(query.CreatedFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("created_from", "invalid_created_from", "invalid created_from"))
		return
	}

	createdTo, err := parseOptionalTime(query.CreatedTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("created_to", "invalid_created_to", "invalid created_to"))
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		PageToken:   query.PageToken,
		PageSize:    int32(query.PageSize),
		Status:      strings.TrimSpace(query.Status),
		PlanID:      strings.TrimSpace(query.PlanID),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.customerSvc.GetByID(c.Request.Context(), customerdomain.GetCustomerRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCustomerRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Status          *string `json:"status"`
	PlanID          *string `json:"plan_id"`
	MonthlyRevenue  *int64  `json:"monthly_revenue"`
	AcquisitionCost *int64  `json:"acquisition_cost"`
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Update(c.Request.Context(), customerdomain.UpdateCustomerRequest{
		ID:              strings.TrimSpace(c.Param("id")),
		Name:            req.Name,
		Email:           req.Email,
		Status:          req.Status,
		PlanID:          req.PlanID,
		MonthlyRevenue:  req.MonthlyRevenue,
		AcquisitionCost: req.AcquisitionCost,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type churnCustomerRequest struct {
	ChurnDate string `json:"churn_date"`
}

func (s *Server) ChurnCustomer(c *gin.Context) {
	var req churnCustomerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	churnDate, err := parseOptionalTime(req.ChurnDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("churn_date", "invalid_churn_date", "invalid churn_date"))
		return
	}

	resp, err := s.customerSvc.Churn(c.Request.Context(), customerdomain.ChurnCustomerRequest{
		ID:        strings.TrimSpace(c.Param("id")),
		ChurnDate: churnDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isCustomerValidationError(err error) bool {
	switch err {
	case customerdomain.ErrInvalidName,
		customerdomain.ErrInvalidEmail,
		customerdomain.ErrInvalidStatus,
		customerdomain.ErrInvalidPlan,
		customerdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
