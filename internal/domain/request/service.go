package request

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/spsim/spsim/internal/domain/script"
	"github.com/spsim/spsim/internal/platform/metrics"
)

// ScriptCreator is the slice of the script service approval needs.
type ScriptCreator interface {
	CreateScript(ctx context.Context, sc *script.Script) error
}

type Service struct {
	requests Repository
	scripts  ScriptCreator
}

func NewService(requests Repository, scripts ScriptCreator) *Service {
	return &Service{requests: requests, scripts: scripts}
}

func (s *Service) CreateRequest(ctx context.Context, r *ScriptRequest) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.CaseTitle == "" {
		r.CaseTitle = script.ResolveTitle(r.TitleRecord())
	}
	return s.requests.Create(ctx, r)
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*ScriptRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// UpdateRequest saves edits to the projection fields and draft. Status is
// not writable here; transitions go through UpdateStatus and Approve.
func (s *Service) UpdateRequest(ctx context.Context, r *ScriptRequest) error {
	if err := r.Validate(); err != nil {
		return err
	}
	stored, err := s.requests.GetByID(ctx, r.ID)
	if err != nil {
		return err
	}
	r.Status = stored.Status
	r.ScriptID = stored.ScriptID
	return s.requests.Update(ctx, r)
}

func (s *Service) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	return s.requests.Delete(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, limit, offset int) ([]*ScriptRequest, int, error) {
	return s.requests.List(ctx, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*ScriptRequest, int, error) {
	if !status.Valid() {
		return nil, 0, fmt.Errorf("invalid status %q", status)
	}
	return s.requests.ListByStatus(ctx, status, limit, offset)
}

// UpdateStatus moves a request to in-review or rejected. Approval has its
// own entry point because it materializes the draft.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status, note string) (*ScriptRequest, error) {
	if next == StatusApproved {
		return nil, fmt.Errorf("use approve to move a request to %s", StatusApproved)
	}
	if !next.Valid() {
		return nil, fmt.Errorf("invalid status %q", next)
	}
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransition(next) {
		return nil, fmt.Errorf("cannot move request from %s to %s", r.Status, next)
	}
	r.Status = next
	if note != "" {
		r.Note = note
	}
	if err := s.requests.Update(ctx, r); err != nil {
		return nil, err
	}
	metrics.RequestTransitionsTotal.WithLabelValues(string(next)).Inc()
	return r, nil
}

// Approve turns the request's draft into a stored script and marks the
// request approved with a link back to the new script. A request without a
// draft is approved as an empty default case.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, approvedBy string) (*ScriptRequest, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransition(StatusApproved) {
		return nil, fmt.Errorf("cannot approve request in status %s", r.Status)
	}

	doc := script.NormalizeDocument(r.DraftScript)
	sc := &script.Script{
		Title:      r.CaseTitle,
		Department: r.Department,
		CreatedBy:  r.RequestedBy,
		Document:   doc,
	}
	if sc.Title == "" {
		sc.Title = script.ResolveTitle(r.TitleRecord())
	}
	if err := s.scripts.CreateScript(ctx, sc); err != nil {
		return nil, fmt.Errorf("materialize script: %w", err)
	}

	r.Status = StatusApproved
	r.ScriptID = &sc.ID
	if approvedBy != "" {
		r.Note = fmt.Sprintf("approved by %s", approvedBy)
	}
	if err := s.requests.Update(ctx, r); err != nil {
		return nil, err
	}
	metrics.RequestTransitionsTotal.WithLabelValues(string(StatusApproved)).Inc()
	return r, nil
}
