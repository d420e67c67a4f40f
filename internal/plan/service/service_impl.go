package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revlytic/revlytic/internal/orgcontext"
	"github.com/revlytic/revlytic/internal/plan/domain"
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
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePlanRequest) (domain.Plan, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Plan{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Plan{}, domain.ErrInvalidName
	}

	if req.Price < 0 {
		return domain.Plan{}, domain.ErrInvalidPrice
	}

	cycle := domain.BillingCycle(strings.TrimSpace(req.BillingCycle))
	if cycle == "" {
		cycle = domain.CycleMonthly
	}
	if !cycle.Valid() {
		return domain.Plan{}, domain.ErrInvalidBillingCycle
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	plan := domain.Plan{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		Name:         name,
		Price:        req.Price,
		BillingCycle: cycle,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &plan); err != nil {
		return domain.Plan{}, err
	}

	return plan, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetPlanRequest) (domain.Plan, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Plan{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Plan{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Plan{}, err
	}
	if item == nil {
		return domain.Plan{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPlanRequest) (domain.ListPlanResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListPlanResponse{}, domain.ErrInvalidOrganization
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, orgID, domain.ListPlanFilter{ActiveOnly: req.ActiveOnly}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListPlanResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(plan *domain.Plan) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        plan.ID.String(),
			CreatedAt: plan.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	plans := make([]domain.Plan, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		plans = append(plans, *item)
	}

	resp := domain.ListPlanResponse{Plans: plans}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePlanRequest) (domain.Plan, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Plan{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Plan{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Plan{}, err
	}
	if item == nil {
		return domain.Plan{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Plan{}, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.Plan{}, domain.ErrInvalidPrice
		}
		item.Price = *req.Price
	}
	if req.BillingCycle != nil {
		cycle := domain.BillingCycle(strings.TrimSpace(*req.BillingCycle))
		if !cycle.Valid() {
			return domain.Plan{}, domain.ErrInvalidBillingCycle
		}
		item.BillingCycle = cycle
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	item.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Plan{}, err
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
