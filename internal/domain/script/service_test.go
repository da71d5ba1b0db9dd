package script

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// mockRepo lets individual tests override only the calls they care about.
type mockRepo struct {
	createFn       func(ctx context.Context, s *Script) error
	getFn          func(ctx context.Context, id uuid.UUID) (*Script, error)
	updateFn       func(ctx context.Context, s *Script, meta UpdateMeta) error
	deleteFn       func(ctx context.Context, id uuid.UUID) error
	listVersionsFn func(ctx context.Context, id uuid.UUID) ([]VersionEntry, error)
}

func (m *mockRepo) Create(ctx context.Context, s *Script) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Script, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(ctx context.Context, s *Script, meta UpdateMeta) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, s, meta)
	}
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Script, int, error) {
	return nil, 0, nil
}

func (m *mockRepo) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Script, int, error) {
	return nil, 0, nil
}

func (m *mockRepo) ListVersions(ctx context.Context, id uuid.UUID) ([]VersionEntry, error) {
	if m.listVersionsFn != nil {
		return m.listVersionsFn(ctx, id)
	}
	return nil, nil
}

// mockAttachments counts uploads and deletes and can fail selected uploads.
type mockAttachments struct {
	uploads   int
	deletes   []string
	failNames map[string]bool
}

func (m *mockAttachments) Upload(ctx context.Context, up AttachmentUpload) (*AttachmentRef, error) {
	if m.failNames[up.Name] {
		return nil, errors.New("upload failed")
	}
	m.uploads++
	return &AttachmentRef{ID: fmt.Sprintf("att-%d", m.uploads), Name: up.Name}, nil
}

func (m *mockAttachments) Delete(ctx context.Context, id string) error {
	m.deletes = append(m.deletes, id)
	return errors.New("delete also failed")
}

func TestCreateScript_RequiresCreatedBy(t *testing.T) {
	svc := NewService(&mockRepo{}, nil)
	err := svc.CreateScript(context.Background(), &Script{})
	if err == nil {
		t.Fatal("expected error for missing created_by")
	}
}

func TestCreateScript_NormalizesAndResolvesTitle(t *testing.T) {
	var stored *Script
	repo := &mockRepo{createFn: func(ctx context.Context, s *Script) error {
		stored = s
		return nil
	}}
	svc := NewService(repo, nil)

	err := svc.CreateScript(context.Background(), &Script{
		CreatedBy: "author-1",
		Document: Document{
			"admin": map[string]interface{}{
				"reson_for_visit": "Knee pain",
				"department":      "orthopedics",
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stored.Title != "Knee pain" {
		t.Errorf("title = %q, want %q", stored.Title, "Knee pain")
	}
	if stored.Department != "orthopedics" {
		t.Errorf("department = %q", stored.Department)
	}
	if _, ok := stored.Document[GroupSpecial].(map[string]interface{}); !ok {
		t.Error("document should be normalized before storage")
	}
}

func TestSaveWithAttachments_CompensatingDelete(t *testing.T) {
	saveErr := errors.New("storage unavailable")
	repo := &mockRepo{updateFn: func(ctx context.Context, s *Script, meta UpdateMeta) error {
		return saveErr
	}}
	atts := &mockAttachments{}
	svc := NewService(repo, atts)

	sc := &Script{ID: uuid.New(), CreatedBy: "author-1"}
	_, err := svc.SaveWithAttachments(context.Background(), sc, []AttachmentUpload{
		{Name: "one.pdf"},
		{Name: "two.png"},
	}, UpdateMeta{CreatedBy: "author-1"})

	if !errors.Is(err, saveErr) {
		t.Fatalf("surfaced error = %v, want original save error", err)
	}
	if atts.uploads != 2 {
		t.Errorf("uploads = %d, want 2", atts.uploads)
	}
	if len(atts.deletes) != 2 {
		t.Errorf("deletes = %d, want exactly 2", len(atts.deletes))
	}
}

func TestSaveWithAttachments_UploadFailureDoesNotAbort(t *testing.T) {
	repo := &mockRepo{}
	atts := &mockAttachments{failNames: map[string]bool{"bad.bin": true}}
	svc := NewService(repo, atts)

	sc := &Script{CreatedBy: "author-1"}
	refs, err := svc.SaveWithAttachments(context.Background(), sc, []AttachmentUpload{
		{Name: "bad.bin"},
		{Name: "good.pdf"},
	}, UpdateMeta{CreatedBy: "author-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 1 || refs[0].Name != "good.pdf" {
		t.Errorf("refs = %v, want only the successful upload", refs)
	}
	if len(atts.deletes) != 0 {
		t.Errorf("no compensating deletes expected on success, got %v", atts.deletes)
	}
}

func TestEffectiveDocument_FoldsVersions(t *testing.T) {
	id := uuid.New()
	repo := &mockRepo{listVersionsFn: func(ctx context.Context, got uuid.UUID) ([]VersionEntry, error) {
		if got != id {
			t.Errorf("queried wrong id %s", got)
		}
		return []VersionEntry{
			{VersionNumber: 2, Document: Document{"admin": map[string]interface{}{"diagnosis": "final"}}},
			{VersionNumber: 1, Document: Document{"admin": map[string]interface{}{"diagnosis": "draft", "case_author": "Dr. Lee"}}},
		}, nil
	}}
	svc := NewService(repo, nil)

	doc, err := svc.EffectiveDocument(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if GetString(doc, GroupAdmin, "diagnosis") != "final" {
		t.Errorf("diagnosis = %q", GetString(doc, GroupAdmin, "diagnosis"))
	}
	if GetString(doc, GroupAdmin, "case_author") != "Dr. Lee" {
		t.Errorf("case_author = %q", GetString(doc, GroupAdmin, "case_author"))
	}
}

func TestGetScript_Normalizes(t *testing.T) {
	id := uuid.New()
	repo := &mockRepo{getFn: func(ctx context.Context, got uuid.UUID) (*Script, error) {
		return &Script{ID: id, Document: Document{"admin": map[string]interface{}{"diagnosis": "x"}}}, nil
	}}
	svc := NewService(repo, nil)

	sc, err := svc.GetScript(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sc.Document[GroupMedHist].(map[string]interface{}); !ok {
		t.Error("fetched document should be normalized")
	}
}
