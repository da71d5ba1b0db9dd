package script

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a script does not exist in the store.
var ErrNotFound = errors.New("script not found")

// Repository defines the persistence contract for scripts and their version
// history.
type Repository interface {
	Create(ctx context.Context, s *Script) error
	GetByID(ctx context.Context, id uuid.UUID) (*Script, error)
	Update(ctx context.Context, s *Script, meta UpdateMeta) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Script, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Script, int, error)
	ListVersions(ctx context.Context, id uuid.UUID) ([]VersionEntry, error)
}
