package domain

import (
	"context"
	"errors"

	"github.com/revlytic/revlytic/pkg/db/pagination"
)

type CreatePlanRequest struct {
	Name         string
	Price        int64
	BillingCycle string
	Active       *bool
}

type UpdatePlanRequest struct {
	ID           string
	Name         *string
	Price        *int64
	BillingCycle *string
	Active       *bool
}

type GetPlanRequest struct {
	ID string
}

type ListPlanRequest struct {
	PageToken  string
	PageSize   int32
	ActiveOnly bool
}

type ListPlanResponse struct {
	pagination.PageInfo
	Plans []Plan `json:"plans"`
}

type Service interface {
	Create(context.Context, CreatePlanRequest) (Plan, error)
	GetByID(context.Context, GetPlanRequest) (Plan, error)
	List(context.Context, ListPlanRequest) (ListPlanResponse, error)
	Update(context.Context, UpdatePlanRequest) (Plan, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidBillingCycle = errors.New("invalid_billing_cycle")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
