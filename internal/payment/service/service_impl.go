package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revlytic/revlytic/internal/orgcontext"
	"github.com/revlytic/revlytic/internal/payment/domain"
	"github.com/revlytic/revlytic/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePaymentRequest) (domain.Payment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Payment{}, domain.ErrInvalidOrganization
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.Payment{}, domain.ErrInvalidCustomer
	}

	if req.Amount < 0 || req.RefundAmount < 0 || req.RefundAmount > req.Amount {
		return domain.Payment{}, domain.ErrInvalidAmount
	}

	status := domain.Status(strings.TrimSpace(req.Status))
	if status == "" {
		status = domain.StatusPending
	}
	if !status.Valid() {
		return domain.Payment{}, domain.ErrInvalidStatus
	}

	now := time.Now().UTC()
	paidAt := req.PaidAt
	if paidAt == nil && status == domain.StatusSucceeded {
		paidAt = &now
	}

	payment := domain.Payment{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		CustomerID:   customerID,
		Amount:       req.Amount,
		RefundAmount: req.RefundAmount,
		Status:       status,
		PaidAt:       paidAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &payment); err != nil {
		return domain.Payment{}, err
	}

	return payment, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPaymentRequest) (domain.ListPaymentResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListPaymentResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListPaymentFilter{
		PaidFrom: req.PaidFrom,
		PaidTo:   req.PaidTo,
	}
	if value := strings.TrimSpace(req.CustomerID); value != "" {
		customerID, err := snowflake.ParseString(value)
		if err != nil || customerID == 0 {
			return domain.ListPaymentResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = customerID
	}
	if value := strings.TrimSpace(req.Status); value != "" {
		status := domain.Status(value)
		if !status.Valid() {
			return domain.ListPaymentResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, orgID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListPaymentResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(payment *domain.Payment) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        payment.ID.String(),
			CreatedAt: payment.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}

	resp := domain.ListPaymentResponse{Payments: payments}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) RevenueTotal(ctx context.Context, req domain.RevenueTotalRequest) (int64, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}

	if req.From.IsZero() || req.To.IsZero() || req.To.Before(req.From) {
		return 0, domain.ErrInvalidRange
	}

	return s.repo.RevenueTotal(ctx, s.db, orgID, req.From.UTC(), req.To.UTC())
}
