package request

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/spsim/spsim/internal/domain/script"
)

type mockCreator struct {
	created *script.Script
	err     error
}

func (m *mockCreator) CreateScript(ctx context.Context, sc *script.Script) error {
	if m.err != nil {
		return m.err
	}
	sc.ID = uuid.New()
	m.created = sc
	return nil
}

func newTestService(creator ScriptCreator) *Service {
	return NewService(NewRepoMem(), creator)
}

func TestCreateRequest_Defaults(t *testing.T) {
	svc := newTestService(nil)
	r := &ScriptRequest{
		RequestedBy: "educator-1",
		Diagnosis:   "Pneumonia",
	}
	if err := svc.CreateRequest(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != StatusPending {
		t.Errorf("status = %q, want pending", r.Status)
	}
	if r.CaseTitle != "Pneumonia" {
		t.Errorf("case title should resolve from diagnosis, got %q", r.CaseTitle)
	}
}

func TestCreateRequest_TitleFromDraft(t *testing.T) {
	svc := newTestService(nil)
	r := &ScriptRequest{
		RequestedBy: "educator-1",
		DraftScript: script.Document{
			"admin": map[string]interface{}{"reson_for_visit": "Fever check"},
		},
	}
	if err := svc.CreateRequest(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.CaseTitle != "Fever check" {
		t.Errorf("case title = %q, want %q", r.CaseTitle, "Fever check")
	}
}

func TestCreateRequest_RequiresRequestedBy(t *testing.T) {
	svc := newTestService(nil)
	if err := svc.CreateRequest(context.Background(), &ScriptRequest{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusInReview, true},
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusInReview, StatusApproved, true},
		{StatusInReview, StatusRejected, true},
		{StatusInReview, StatusPending, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusInReview, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	r := &ScriptRequest{RequestedBy: "u1", CaseTitle: "Case"}
	if err := svc.CreateRequest(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.UpdateStatus(ctx, r.ID, StatusInReview, "taking a look")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if got.Status != StatusInReview || got.Note != "taking a look" {
		t.Errorf("got %+v", got)
	}

	if _, err := svc.UpdateStatus(ctx, r.ID, StatusPending, ""); err == nil {
		t.Error("expected invalid transition error")
	}
	if _, err := svc.UpdateStatus(ctx, r.ID, StatusApproved, ""); err == nil {
		t.Error("approval through UpdateStatus should be rejected")
	}
}

func TestApprove_MaterializesDraft(t *testing.T) {
	creator := &mockCreator{}
	svc := newTestService(creator)
	ctx := context.Background()

	r := &ScriptRequest{
		RequestedBy: "educator-1",
		CaseTitle:   "Fever check",
		Department:  "pediatrics",
		DraftScript: script.Document{
			"admin": map[string]interface{}{"diagnosis": "Viral infection"},
		},
	}
	if err := svc.CreateRequest(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	approved, err := svc.Approve(ctx, r.ID, "reviewer-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	if approved.Status != StatusApproved {
		t.Errorf("status = %q", approved.Status)
	}
	if approved.ScriptID == nil {
		t.Fatal("approved request should link to the new script")
	}
	if creator.created == nil {
		t.Fatal("no script materialized")
	}
	if creator.created.Title != "Fever check" {
		t.Errorf("script title = %q", creator.created.Title)
	}
	if creator.created.Department != "pediatrics" {
		t.Errorf("script department = %q", creator.created.Department)
	}
	if script.GetString(creator.created.Document, "admin", "diagnosis") != "Viral infection" {
		t.Error("draft content lost during materialization")
	}
	// Draft must have been normalized to the full structural shape.
	if _, ok := creator.created.Document["special"].(map[string]interface{}); !ok {
		t.Error("materialized document not normalized")
	}

	// Terminal: approving twice fails.
	if _, err := svc.Approve(ctx, r.ID, "reviewer-1"); err == nil {
		t.Error("expected error approving an already-approved request")
	}
}

func TestApprove_CreateFailureLeavesRequestUntouched(t *testing.T) {
	creator := &mockCreator{err: errors.New("store down")}
	svc := newTestService(creator)
	ctx := context.Background()

	r := &ScriptRequest{RequestedBy: "u1", CaseTitle: "Case"}
	if err := svc.CreateRequest(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Approve(ctx, r.ID, "reviewer-1"); err == nil {
		t.Fatal("expected error")
	}

	got, err := svc.GetRequest(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %q, want pending after failed approval", got.Status)
	}
}

func TestUpdateRequest_StatusNotWritable(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	r := &ScriptRequest{RequestedBy: "u1", CaseTitle: "Case"}
	if err := svc.CreateRequest(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	edit := &ScriptRequest{
		ID:          r.ID,
		RequestedBy: "u1",
		CaseTitle:   "Case renamed",
		Status:      StatusApproved,
	}
	if err := svc.UpdateRequest(ctx, edit); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := svc.GetRequest(ctx, r.ID)
	if got.CaseTitle != "Case renamed" {
		t.Errorf("title = %q", got.CaseTitle)
	}
	if got.Status != StatusPending {
		t.Errorf("status should stay pending, got %q", got.Status)
	}
}
