package domain

import (
	"context"
	"errors"
	"time"

	"github.com/revlytic/revlytic/pkg/db/pagination"
)

type CreatePaymentRequest struct {
	CustomerID   string
	Amount       int64
	RefundAmount int64
	Status       string
	PaidAt       *time.Time
}

type ListPaymentRequest struct {
	PageToken  string
	PageSize   int32
	CustomerID string
	Status     string
	PaidFrom   *time.Time
	PaidTo     *time.Time
}

type ListPaymentResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type RevenueTotalRequest struct {
	From time.Time
	To   time.Time
}

type Service interface {
	Create(context.Context, CreatePaymentRequest) (Payment, error)
	List(context.Context, ListPaymentRequest) (ListPaymentResponse, error)
	RevenueTotal(context.Context, RevenueTotalRequest) (int64, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidRange        = errors.New("invalid_range")
)
