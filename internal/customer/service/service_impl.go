package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revlytic/revlytic/internal/customer/domain"
	"github.com/revlytic/revlytic/internal/orgcontext"
	"github.com/revlytic/revlytic/pkg/db"
	"github.com/revlytic/revlytic/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	status := domain.Status(strings.TrimSpace(req.Status))
	if status == "" {
		status = domain.StatusActive
	}
	if !status.Valid() {
		return domain.Customer{}, domain.ErrInvalidStatus
	}

	var planID snowflake.ID
	if strings.TrimSpace(req.PlanID) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(req.PlanID))
		if err != nil || parsed == 0 {
			return domain.Customer{}, domain.ErrInvalidPlan
		}
		planID = parsed
	}

	now := time.Now().UTC()
	startDate := now
	if req.StartDate != nil {
		startDate = req.StartDate.UTC()
	}

	// Churn date is present iff the customer is churned.
	var churnDate *time.Time
	if status == domain.StatusChurned {
		churnDate = &now
	}

	customer := domain.Customer{
		ID:              s.genID.Generate(),
		OrgID:           orgID,
		Name:            name,
		Email:           email,
		Status:          status,
		PlanID:          planID,
		MonthlyRevenue:  req.MonthlyRevenue,
		AcquisitionCost: req.AcquisitionCost,
		StartDate:       startDate,
		ChurnDate:       churnDate,
		Metadata:        datatypes.JSONMap{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrDuplicateEmail
		}
		return domain.Customer{}, err
	}

	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListCustomerResponse{}, domain.ErrInvalidOrganization
	}

	status := domain.Status(strings.TrimSpace(req.Status))
	if status != "" && !status.Valid() {
		return domain.ListCustomerResponse{}, domain.ErrInvalidStatus
	}

	filter := domain.ListCustomerFilter{
		Status:      status,
		PlanID:      strings.TrimSpace(req.PlanID),
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
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
		return domain.ListCustomerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(customer *domain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        customer.ID.String(),
			CreatedAt: customer.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	resp := domain.ListCustomerResponse{Customers: customers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	now := time.Now().UTC()

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" || !strings.Contains(email, "@") {
			return domain.Customer{}, domain.ErrInvalidEmail
		}
		item.Email = email
	}
	if req.Status != nil {
		status := domain.Status(strings.TrimSpace(*req.Status))
		if !status.Valid() {
			return domain.Customer{}, domain.ErrInvalidStatus
		}
		// Keep churn date in lockstep with the churned status.
		if status == domain.StatusChurned && item.Status != domain.StatusChurned {
			item.ChurnDate = &now
		}
		if status != domain.StatusChurned {
			item.ChurnDate = nil
		}
		item.Status = status
	}
	if req.PlanID != nil {
		value := strings.TrimSpace(*req.PlanID)
		if value == "" {
			item.PlanID = 0
		} else {
			parsed, err := snowflake.ParseString(value)
			if err != nil || parsed == 0 {
				return domain.Customer{}, domain.ErrInvalidPlan
			}
			item.PlanID = parsed
		}
	}
	if req.MonthlyRevenue != nil {
		item.MonthlyRevenue = *req.MonthlyRevenue
	}
	if req.AcquisitionCost != nil {
		item.AcquisitionCost = *req.AcquisitionCost
	}
	item.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrDuplicateEmail
		}
		return domain.Customer{}, err
	}

	return *item, nil
}

func (s *Service) Churn(ctx context.Context, req domain.ChurnCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	if item.Status == domain.StatusChurned {
		return domain.Customer{}, domain.ErrAlreadyChurned
	}

	now := time.Now().UTC()
	churnDate := now
	if req.ChurnDate != nil {
		churnDate = req.ChurnDate.UTC()
	}

	item.Status = domain.StatusChurned
	item.ChurnDate = &churnDate
	item.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Customer{}, err
	}

	return *item, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
