package script

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/spsim/spsim/internal/platform/metrics"
)

// AttachmentUpload is one file submitted alongside a script save.
type AttachmentUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// AttachmentRef is the attachment collaborator's record of an uploaded
// artifact.
type AttachmentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// AttachmentStore is the slice of the attachment collaborator the save flow
// depends on.
type AttachmentStore interface {
	Upload(ctx context.Context, up AttachmentUpload) (*AttachmentRef, error)
	Delete(ctx context.Context, id string) error
}

// Service provides business logic for the script domain.
type Service struct {
	scripts     Repository
	attachments AttachmentStore
}

// NewService creates a new script domain service. attachments may be nil
// when the save-with-attachments flow is not used.
func NewService(scripts Repository, attachments AttachmentStore) *Service {
	return &Service{scripts: scripts, attachments: attachments}
}

func (s *Service) CreateScript(ctx context.Context, sc *Script) error {
	if sc.CreatedBy == "" {
		return fmt.Errorf("created_by is required")
	}
	sc.Document = NormalizeDocument(sc.Document)
	if sc.Title == "" {
		sc.Title = titleFor(sc.Document)
	}
	if sc.Department == "" {
		sc.Department = GetString(sc.Document, GroupAdmin, "department")
	}
	if err := s.scripts.Create(ctx, sc); err != nil {
		metrics.ScriptSavesTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.ScriptSavesTotal.WithLabelValues("created").Inc()
	return nil
}

// CreateFromForm builds the canonical document from live form state and
// stores it.
func (s *Service) CreateFromForm(ctx context.Context, form map[string]interface{}, createdBy string) (*Script, error) {
	sc := &Script{
		CreatedBy: createdBy,
		Document:  BuildDocument(form),
	}
	if err := s.CreateScript(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Service) GetScript(ctx context.Context, id uuid.UUID) (*Script, error) {
	sc, err := s.scripts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sc.Document = NormalizeDocument(sc.Document)
	return sc, nil
}

func (s *Service) UpdateScript(ctx context.Context, sc *Script, meta UpdateMeta) error {
	if meta.CreatedBy == "" {
		return fmt.Errorf("created_by is required")
	}
	sc.Document = NormalizeDocument(sc.Document)
	if sc.Title == "" {
		sc.Title = titleFor(sc.Document)
	}
	if err := s.scripts.Update(ctx, sc, meta); err != nil {
		metrics.ScriptSavesTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.ScriptSavesTotal.WithLabelValues("updated").Inc()
	return nil
}

func (s *Service) DeleteScript(ctx context.Context, id uuid.UUID) error {
	return s.scripts.Delete(ctx, id)
}

func (s *Service) ListScripts(ctx context.Context, limit, offset int) ([]*Script, int, error) {
	return s.scripts.List(ctx, limit, offset)
}

func (s *Service) SearchScripts(ctx context.Context, params map[string]string, limit, offset int) ([]*Script, int, error) {
	return s.scripts.Search(ctx, params, limit, offset)
}

func (s *Service) ListVersions(ctx context.Context, id uuid.UUID) ([]VersionEntry, error) {
	return s.scripts.ListVersions(ctx, id)
}

// EffectiveDocument reconciles a script's full version history into the
// effective document: newest edits win, structural defaults from the oldest
// version survive untouched fields.
func (s *Service) EffectiveDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	versions, err := s.scripts.ListVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	return Reconcile(versions), nil
}

// SaveWithAttachments persists the script and uploads the given files as a
// unit. A failed individual upload does not abort the save. When the save
// itself fails, every artifact uploaded during this attempt is deleted
// best-effort (delete errors are swallowed) and the original save error is
// surfaced.
func (s *Service) SaveWithAttachments(ctx context.Context, sc *Script, uploads []AttachmentUpload, meta UpdateMeta) ([]AttachmentRef, error) {
	var uploaded []AttachmentRef
	if s.attachments != nil {
		for _, up := range uploads {
			ref, err := s.attachments.Upload(ctx, up)
			if err != nil {
				continue
			}
			uploaded = append(uploaded, *ref)
		}
	}

	var saveErr error
	if sc.ID == uuid.Nil {
		saveErr = s.CreateScript(ctx, sc)
	} else {
		saveErr = s.UpdateScript(ctx, sc, meta)
	}
	if saveErr != nil {
		for _, ref := range uploaded {
			_ = s.attachments.Delete(ctx, ref.ID)
		}
		return nil, saveErr
	}
	return uploaded, nil
}

// titleFor resolves the canonical title for a stand-alone document using the
// fixed precedence chain.
func titleFor(doc Document) string {
	return ResolveTitle(map[string]interface{}{
		"draft_script": map[string]interface{}(doc),
		"diagnosis":    GetString(doc, GroupAdmin, "diagnosis"),
	})
}
