package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/revlytic/revlytic/internal/customer/domain"
	"github.com/revlytic/revlytic/internal/customer/repository"
	"github.com/revlytic/revlytic/internal/orgcontext"
	plandomain "github.com/revlytic/revlytic/internal/plan/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupCustomerService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&plandomain.Plan{}, &domain.Customer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})

	return svc, db, node
}

func orgContext(node *snowflake.Node) (context.Context, snowflake.ID) {
	orgID := node.Generate()
	return orgcontext.WithOrgID(context.Background(), int64(orgID)), orgID
}

func TestCreateCustomerDefaults(t *testing.T) {
	svc, _, node := setupCustomerService(t)
	ctx, orgID := orgContext(node)

	customer, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:  "Acme Corp",
		Email: "billing@acme.test",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if customer.OrgID != orgID {
		t.Fatalf("org = %v, want %v", customer.OrgID, orgID)
	}
	if customer.Status != domain.StatusActive {
		t.Fatalf("status = %q, want active", customer.Status)
	}
	if customer.StartDate.IsZero() {
		t.Fatal("start date not defaulted")
	}
	if customer.ChurnDate != nil {
		t.Fatal("active customer must not carry a churn date")
	}
}

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	svc, _, node := setupCustomerService(t)
	ctx, _ := orgContext(node)

	if _, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:  "Acme Corp",
		Email: "billing@acme.test",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:  "Acme Again",
		Email: "billing@acme.test",
	}); err != domain.ErrDuplicateEmail {
		t.Fatalf("err = %v, want %v", err, domain.ErrDuplicateEmail)
	}

	// Same email under another org is fine.
	otherCtx, _ := orgContext(node)
	if _, err := svc.Create(otherCtx, domain.CreateCustomerRequest{
		Name:  "Other Org",
		Email: "billing@acme.test",
	}); err != nil {
		t.Fatalf("create in other org: %v", err)
	}
}

func TestCreateCustomerValidation(t *testing.T) {
	svc, _, node := setupCustomerService(t)
	ctx, _ := orgContext(node)

	cases := []struct {
		name string
		req  domain.CreateCustomerRequest
		want error
	}{
		{"missing name", domain.CreateCustomerRequest{Email: "a@b.test"}, domain.ErrInvalidName},
		{"bad email", domain.CreateCustomerRequest{Name: "x", Email: "nope"}, domain.ErrInvalidEmail},
		{"bad status", domain.CreateCustomerRequest{Name: "x", Email: "a@b.test", Status: "paused"}, domain.ErrInvalidStatus},
		{"bad plan", domain.CreateCustomerRequest{Name: "x", Email: "a@b.test", PlanID: "not-a-plan"}, domain.ErrInvalidPlan},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.req); err != tc.want {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateCustomerRequiresOrg(t *testing.T) {
	svc, _, _ := setupCustomerService(t)

	_, err := svc.Create(context.Background(), domain.CreateCustomerRequest{
		Name:  "Acme",
		Email: "a@b.test",
	})
	if err != domain.ErrInvalidOrganization {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalidOrganization)
	}
}

func TestCreateChurnedCustomerSetsChurnDate(t *testing.T) {
	svc, _, node := setupCustomerService(t)
	ctx, _ := orgContext(node)

	customer, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:   "Gone Inc",
		Email:  "gone@b.test",
		Status: string(domain.StatusChurned),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if customer.ChurnDate == nil {
		t.Fatal("churned customer must carry a churn date")
	}
}

func TestChurnCustomer(t *testing.T) {
	svc, _, node := setupCustomerService(t)
	ctx, _ := orgContext(node)

	customer, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:  "Acme",
		Email: "a@b.test",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	churnDate := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	churned, err := svc.Churn(ctx, domain.ChurnCustomerRequest{
		ID:        customer.ID.String(),
		ChurnDate: &churnDate,
	})
	if err != nil {
		t.Fatalf("churn: %v", err)
	}
	if churned.Status != domain.StatusChurned {
		t.Fatalf("status = %q, want churned", churned.Status)
	}
	if churned.ChurnDate == nil || !churned.ChurnDate.Equal(churnDate) {
		t.Fatalf("churn date = %v, want %v", churned.ChurnDate, churnDate)
	}

	if _, err := svc.Churn(ctx, domain.ChurnCustomerRequest{ID: customer.ID.String()}); err != domain.ErrAlreadyChurned {
		t.Fatalf("err = %v, want %v", err, domain.ErrAlreadyChurned)
	}
}

func TestUpdateCustomerChurnLockstep(t *testing.T) {
	svc, _, node := setupCustomerService(t)
	ctx, _ := orgContext(node)

	customer, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:  "Acme",
		Email: "a@b.test",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	churnedStatus := string(domain.StatusChurned)
	updated, err := svc.Update(ctx, domain.UpdateCustomerRequest{
		ID:     customer.ID.String(),
		Status: &churnedStatus,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ChurnDate == nil {
		t.Fatal("churned update must set the churn date")
	}

	activeStatus := string(domain.StatusActive)
	reactivated, err := svc.Update(ctx, domain.UpdateCustomerRequest{
		ID:     customer.ID.String(),
		Status: &activeStatus,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if reactivated.ChurnDate != nil {
		t.Fatal("reactivated customer must not keep a churn date")
	}
}

func TestGetCustomerScopedToOrg(t *testing.T) {
	svc, _, node := setupCustomerService(t)
	ctxA, _ := orgContext(node)
	ctxB, _ := orgContext(node)

	customer, err := svc.Create(ctxA, domain.CreateCustomerRequest{
		Name:  "Acme",
		Email: "a@b.test",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.GetByID(ctxB, domain.GetCustomerRequest{ID: customer.ID.String()}); err != domain.ErrNotFound {
		t.Fatalf("err = %v, want %v", err, domain.ErrNotFound)
	}
}

func TestListCustomersFiltersStatus(t *testing.T) {
	svc, _, node := setupCustomerService(t)
	ctx, _ := orgContext(node)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, domain.CreateCustomerRequest{
			Name:  fmt.Sprintf("active-%d", i),
			Email: fmt.Sprintf("active-%d@b.test", i),
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:   "gone",
		Email:  "gone@b.test",
		Status: string(domain.StatusChurned),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	resp, err := svc.List(ctx, domain.ListCustomerRequest{Status: string(domain.StatusActive)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Customers) != 3 {
		t.Fatalf("len = %d, want 3", len(resp.Customers))
	}
	for _, customer := range resp.Customers {
		if customer.Status != domain.StatusActive {
			t.Fatalf("status = %q, want active", customer.Status)
		}
	}
}
