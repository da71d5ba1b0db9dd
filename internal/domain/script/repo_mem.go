package script

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// repoMem is a thread-safe in-memory script repository used in local-only
// mode and in tests. Documents are deep-copied on the way in and out so no
// caller can alias store state.
type repoMem struct {
	mu       sync.RWMutex
	scripts  map[uuid.UUID]*Script
	versions map[uuid.UUID][]VersionEntry
}

// NewRepoMem returns an empty in-memory script repository.
func NewRepoMem() Repository {
	return &repoMem{
		scripts:  make(map[uuid.UUID]*Script),
		versions: make(map[uuid.UUID][]VersionEntry),
	}
}

func cloneDocument(d Document) Document {
	if d == nil {
		return nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return Document{}
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return Document{}
	}
	return out
}

func cloneScript(s *Script) *Script {
	out := *s
	out.Document = cloneDocument(s.Document)
	return &out
}

func (r *repoMem) Create(_ context.Context, s *Script) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.ID = uuid.New()
	s.VersionID = 1
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	r.scripts[s.ID] = cloneScript(s)
	r.versions[s.ID] = []VersionEntry{{
		VersionNumber: 1,
		ChangeNote:    "initial version",
		CreatedBy:     s.CreatedBy,
		CreatedAt:     now,
		Document:      cloneDocument(s.Document),
	}}
	return nil
}

func (r *repoMem) GetByID(_ context.Context, id uuid.UUID) (*Script, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneScript(s), nil
}

func (r *repoMem) Update(_ context.Context, s *Script, meta UpdateMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.scripts[s.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Title = s.Title
	stored.Department = s.Department
	stored.Document = cloneDocument(s.Document)
	stored.VersionID++
	stored.UpdatedAt = time.Now().UTC()
	s.VersionID = stored.VersionID

	r.versions[s.ID] = append(r.versions[s.ID], VersionEntry{
		VersionNumber: stored.VersionID,
		ChangeNote:    meta.ChangeNote,
		CreatedBy:     meta.CreatedBy,
		CreatedAt:     stored.UpdatedAt,
		Document:      cloneDocument(s.Document),
	})
	return nil
}

func (r *repoMem) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scripts[id]; !ok {
		return ErrNotFound
	}
	delete(r.scripts, id)
	delete(r.versions, id)
	return nil
}

func (r *repoMem) List(ctx context.Context, limit, offset int) ([]*Script, int, error) {
	return r.Search(ctx, nil, limit, offset)
}

func (r *repoMem) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Script, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Script
	for _, s := range r.scripts {
		if matchesParams(s, params) {
			matched = append(matched, cloneScript(s))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func matchesParams(s *Script, params map[string]string) bool {
	contains := func(field, v string) bool {
		return v == "" || strings.Contains(strings.ToLower(field), strings.ToLower(v))
	}
	return contains(s.Title, params["title"]) &&
		contains(s.Department, params["department"]) &&
		contains(s.CreatedBy, params["created_by"])
}

func (r *repoMem) ListVersions(_ context.Context, id uuid.UUID) ([]VersionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.versions[id]
	if !ok {
		return nil, ErrNotFound
	}
	entries := make([]VersionEntry, len(stored))
	for i, e := range stored {
		e.Document = cloneDocument(e.Document)
		// Newest first, matching the Postgres repository ordering.
		entries[len(stored)-1-i] = e
	}
	return entries, nil
}
