package domain

import (
	"context"
	"errors"
	"time"

	"github.com/revlytic/revlytic/pkg/db/pagination"
)

type ListCustomerRequest struct {
	PageToken   string
	PageSize    int32
	Status      string
	PlanID      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerFilter struct {
	Status      Status
	PlanID      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Name            string
	Email           string
	Status          string
	PlanID          string
	MonthlyRevenue  int64
	AcquisitionCost int64
	StartDate       *time.Time
}

type UpdateCustomerRequest struct {
	ID              string
	Name            *string
	Email           *string
	Status          *string
	PlanID          *string
	MonthlyRevenue  *int64
	AcquisitionCost *int64
}

type GetCustomerRequest struct {
	ID string
}

type ChurnCustomerRequest struct {
	ID        string
	ChurnDate *time.Time
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	Churn(context.Context, ChurnCustomerRequest) (Customer, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidPlan         = errors.New("invalid_plan")
	ErrInvalidID           = errors.New("invalid_id")
	ErrDuplicateEmail      = errors.New("duplicate_email")
	ErrAlreadyChurned      = errors.New("already_churned")
	ErrNotFound            = errors.New("not_found")
)
