package request

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/spsim/spsim/internal/platform/session"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req.WithContext(session.WithSession(context.Background(),
		session.Session{UserID: "u-1", Name: "Test User", Role: "educator"}))
}

func TestHandler_CreateRequest(t *testing.T) {
	e := echo.New()
	h := NewHandler(newTestService(nil))

	body := `{"diagnosis":"Asthma","draft_script":{"admin":{"reson_for_visit":"Wheezing"}}}`
	req := jsonRequest(http.MethodPost, "/requests", body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateRequest(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got ScriptRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RequestedBy != "u-1" {
		t.Errorf("requested_by should come from the session, got %q", got.RequestedBy)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %q", got.Status)
	}
	if got.CaseTitle != "Wheezing" {
		t.Errorf("case title = %q", got.CaseTitle)
	}
}

func TestHandler_UpdateStatus(t *testing.T) {
	e := echo.New()
	svc := newTestService(nil)
	h := NewHandler(svc)
	ctx := context.Background()

	r := &ScriptRequest{RequestedBy: "u-1", CaseTitle: "Case"}
	if err := svc.CreateRequest(ctx, r); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := jsonRequest(http.MethodPatch, "/requests/"+r.ID.String()+"/status",
		`{"status":"in-review","note":"picking this up"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())

	if err := h.UpdateStatus(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got ScriptRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != StatusInReview || got.Note != "picking this up" {
		t.Errorf("got %+v", got)
	}
}

func TestHandler_UpdateStatus_RejectsApproval(t *testing.T) {
	e := echo.New()
	svc := newTestService(nil)
	h := NewHandler(svc)
	ctx := context.Background()

	r := &ScriptRequest{RequestedBy: "u-1", CaseTitle: "Case"}
	if err := svc.CreateRequest(ctx, r); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := jsonRequest(http.MethodPatch, "/requests/"+r.ID.String()+"/status", `{"status":"approved"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())

	err := h.UpdateStatus(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("err = %v, want 400", err)
	}
}

func TestHandler_Approve(t *testing.T) {
	e := echo.New()
	creator := &mockCreator{}
	svc := newTestService(creator)
	h := NewHandler(svc)
	ctx := context.Background()

	r := &ScriptRequest{RequestedBy: "u-1", CaseTitle: "Case"}
	if err := svc.CreateRequest(ctx, r); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := jsonRequest(http.MethodPost, "/requests/"+r.ID.String()+"/approve", "")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())

	if err := h.Approve(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got ScriptRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != StatusApproved || got.ScriptID == nil {
		t.Errorf("got %+v", got)
	}
	if got.Note != "approved by u-1" {
		t.Errorf("note = %q", got.Note)
	}
}

func TestHandler_ListRequests_StatusFilter(t *testing.T) {
	e := echo.New()
	svc := newTestService(nil)
	h := NewHandler(svc)
	ctx := context.Background()

	for _, st := range []Status{StatusPending, StatusRejected} {
		r := &ScriptRequest{RequestedBy: "u-1", CaseTitle: "Case", Status: st}
		if err := svc.CreateRequest(ctx, r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	req := jsonRequest(http.MethodGet, "/requests?status=pending", "")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListRequests(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	var got struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 1 {
		t.Errorf("total = %d, body %s", got.Total, rec.Body.String())
	}

	req = jsonRequest(http.MethodGet, "/requests?status=bogus", "")
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err := h.ListRequests(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("err = %v, want 400", err)
	}
}
