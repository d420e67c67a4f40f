package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/revlytic/revlytic/internal/payment/domain"
	"github.com/revlytic/revlytic/pkg/db/pagination"
)

type createPaymentRequest struct {
	CustomerID   string `json:"customer_id"`
	Amount       int64  `json:"amount"`
	RefundAmount int64  `json:"refund_amount"`
	Status       string `json:"status"`
	PaidAt       string `json:"paid_at"`
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	paidAt, err := parseOptionalTime(req.PaidAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("paid_at", "invalid_paid_at", "invalid paid_at"))
		return
	}

	resp, err := s.paymentSvc.Create(c.Request.Context(), paymentdomain.CreatePaymentRequest{
		CustomerID:   strings.TrimSpace(req.CustomerID),
		Amount:       req.Amount,
		RefundAmount: req.RefundAmount,
		Status:       strings.TrimSpace(req.Status),
		PaidAt:       paidAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		Status     string `form:"status"`
		PaidFrom   string `form:"paid_from"`
		PaidTo     string `form:"paid_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	paidFrom, err := parseOptionalTime(query.PaidFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("paid_from", "invalid_paid_from", "invalid paid_from"))
		return
	}

	paidTo, err := parseOptionalTime(query.PaidTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("paid_to", "invalid_paid_to", "invalid paid_to"))
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), paymentdomain.ListPaymentRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		CustomerID: strings.TrimSpace(query.CustomerID),
		Status:     strings.TrimSpace(query.Status),
		PaidFrom:   paidFrom,
		PaidTo:     paidTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isPaymentValidationError(err error) bool {
	switch err {
	case paymentdomain.ErrInvalidCustomer,
		paymentdomain.ErrInvalidAmount,
		paymentdomain.ErrInvalidStatus,
		paymentdomain.ErrInvalidRange:
		return true
	default:
		return false
	}
}
