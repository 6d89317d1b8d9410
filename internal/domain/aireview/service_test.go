package aireview

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/audit"
	"github.com/abaworks/aba/internal/platform/authz"
)

var (
	orgA = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	orgB = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
)

type fakeRepo struct {
	reviews map[uuid.UUID]*Review
}

func (f *fakeRepo) Create(_ context.Context, rv *Review) error {
	rv.ID = uuid.New()
	cp := *rv
	f.reviews[rv.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Review, error) {
	rv, ok := f.reviews[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *rv
	return &cp, nil
}

func (f *fakeRepo) ListByPlan(_ context.Context, caller authz.Caller, planID uuid.UUID, _, _ int) ([]*Review, int, error) {
	if !authz.Satisfiable(authz.AIReviewScope(caller)) {
		return nil, 0, nil
	}
	var items []*Review
	for _, rv := range f.reviews {
		if rv.PlanID == planID && rv.OrganizationID == caller.OrgID {
			items = append(items, rv)
		}
	}
	return items, len(items), nil
}

type fakePlans struct {
	refs map[uuid.UUID]authz.PlanRef
}

func (f *fakePlans) Ref(_ context.Context, id uuid.UUID) (authz.PlanRef, error) {
	ref, ok := f.refs[id]
	if !ok {
		return authz.PlanRef{}, errors.New("plan not found")
	}
	return ref, nil
}

type fakeAudit struct{}

func (fakeAudit) Record(_ context.Context, _ audit.Entry) (uuid.UUID, bool) {
	return uuid.New(), true
}

func asCaller(role authz.Role, userID uuid.UUID) authz.Caller {
	return authz.Caller{UserID: userID, Role: role, OrgID: orgA}
}

func newTestService() (*Service, *fakeRepo, *fakePlans) {
	repo := &fakeRepo{reviews: make(map[uuid.UUID]*Review)}
	plans := &fakePlans{refs: make(map[uuid.UUID]authz.PlanRef)}
	return NewService(repo, plans, fakeAudit{}), repo, plans
}

func TestService_CreateInheritsPlanVisibility(t *testing.T) {
	svc, repo, plans := newTestService()
	creatorID := uuid.New()
	planID := uuid.New()
	plans.refs[planID] = authz.PlanRef{OrgID: orgA, CreatedByID: creatorID, Status: "DRAFT"}

	rv := &Review{PlanID: planID, Model: "plan-reviewer-1", Summary: "Goals lack measurable criteria."}
	if err := svc.Create(context.Background(), asCaller(authz.RoleBCBA, creatorID), rv); err != nil {
		t.Fatalf("Create: %v", err)
	}
	stored := repo.reviews[rv.ID]
	if stored.OrganizationID != orgA || stored.RequestedByID != creatorID {
		t.Errorf("review not stamped: %+v", stored)
	}

	other := &Review{PlanID: planID, Model: "plan-reviewer-1"}
	if err := svc.Create(context.Background(), asCaller(authz.RoleBCBA, uuid.New()), other); !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("unrelated BCBA create: err = %v, want ErrUnauthorized", err)
	}
	if err := svc.Create(context.Background(), asCaller(authz.RoleHRManager, uuid.New()), other); !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("HR create: err = %v, want ErrUnauthorized", err)
	}
}

func TestService_GetForeignOrgDenied(t *testing.T) {
	svc, repo, plans := newTestService()
	planID := uuid.New()
	plans.refs[planID] = authz.PlanRef{OrgID: orgB, Status: "DRAFT"}

	rv := &Review{ID: uuid.New(), OrganizationID: orgB, PlanID: planID, Model: "plan-reviewer-1"}
	repo.reviews[rv.ID] = rv

	if _, err := svc.Get(context.Background(), asCaller(authz.RoleOrgAdmin, uuid.New()), rv.ID); !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("foreign-org get: err = %v, want ErrUnauthorized", err)
	}
}

func TestService_ValidateScoreRange(t *testing.T) {
	svc, _, plans := newTestService()
	planID := uuid.New()
	plans.refs[planID] = authz.PlanRef{OrgID: orgA, Status: "DRAFT"}

	bad := 1.5
	rv := &Review{PlanID: planID, Model: "plan-reviewer-1", Score: &bad}
	if err := svc.Create(context.Background(), asCaller(authz.RoleOrgAdmin, uuid.New()), rv); err == nil {
		t.Error("out-of-range score accepted")
	}
}
