package request

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spsim/spsim/internal/domain/script"
)

// Status is the workflow state of a script request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusInReview Status = "in-review"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// validTransitions lists the allowed next states per current state.
// Approved and rejected are terminal.
var validTransitions = map[Status][]Status{
	StatusPending:  {StatusInReview, StatusApproved, StatusRejected},
	StatusInReview: {StatusApproved, StatusRejected},
}

// ScriptRequest proposes creation of a script. It carries a flat admin
// projection of the case metadata, workflow fields, and optionally an
// embedded draft document that approval materializes into a real script.
type ScriptRequest struct {
	ID             uuid.UUID       `json:"id"`
	CaseTitle      string          `json:"case_title"`
	ReasonForVisit string          `json:"reason_for_visit"`
	Diagnosis      string          `json:"diagnosis"`
	Department     string          `json:"department"`
	RequestedBy    string          `json:"requested_by"`
	Status         Status          `json:"status"`
	Note           string          `json:"note"`
	DraftScript    script.Document `json:"draft_script,omitempty"`
	ScriptID       *uuid.UUID      `json:"script_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (r *ScriptRequest) Validate() error {
	if r.RequestedBy == "" {
		return fmt.Errorf("requested_by is required")
	}
	if r.Status != "" && !r.Status.Valid() {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	return nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether the workflow allows moving to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TitleRecord exposes the request as the multi-source record the title
// resolver reads. The embedded draft is surfaced as a plain map so the
// resolver's path walk can descend into it.
func (r *ScriptRequest) TitleRecord() map[string]interface{} {
	rec := map[string]interface{}{
		"reason_for_visit": r.ReasonForVisit,
		"diagnosis":        r.Diagnosis,
	}
	if r.DraftScript != nil {
		rec["draft_script"] = map[string]interface{}(r.DraftScript)
	}
	return rec
}
