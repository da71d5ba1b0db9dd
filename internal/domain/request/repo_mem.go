package request

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// repoMem backs the local-only mode. Stored requests are deep-copied on the
// way in and out so callers cannot mutate the store through shared maps.
type repoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*ScriptRequest
}

func NewRepoMem() Repository {
	return &repoMem{items: map[uuid.UUID]*ScriptRequest{}}
}

func cloneRequest(r *ScriptRequest) *ScriptRequest {
	cp := *r
	if r.DraftScript != nil {
		raw, _ := json.Marshal(r.DraftScript)
		cp.DraftScript = nil
		json.Unmarshal(raw, &cp.DraftScript)
	}
	if r.ScriptID != nil {
		id := *r.ScriptID
		cp.ScriptID = &id
	}
	return &cp
}

func (m *repoMem) Create(ctx context.Context, r *ScriptRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = uuid.New()
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	m.items[r.ID] = cloneRequest(r)
	return nil
}

func (m *repoMem) GetByID(ctx context.Context, id uuid.UUID) (*ScriptRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRequest(r), nil
}

func (m *repoMem) Update(ctx context.Context, r *ScriptRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[r.ID]
	if !ok {
		return ErrNotFound
	}
	r.CreatedAt = stored.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	m.items[r.ID] = cloneRequest(r)
	return nil
}

func (m *repoMem) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *repoMem) List(ctx context.Context, limit, offset int) ([]*ScriptRequest, int, error) {
	return m.filtered(func(*ScriptRequest) bool { return true }, limit, offset)
}

func (m *repoMem) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*ScriptRequest, int, error) {
	return m.filtered(func(r *ScriptRequest) bool { return r.Status == status }, limit, offset)
}

func (m *repoMem) filtered(keep func(*ScriptRequest) bool, limit, offset int) ([]*ScriptRequest, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []*ScriptRequest
	for _, r := range m.items {
		if keep(r) {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	page := make([]*ScriptRequest, 0, end-offset)
	for _, r := range all[offset:end] {
		page = append(page, cloneRequest(r))
	}
	return page, total, nil
}
