package request

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("request not found")

type Repository interface {
	Create(ctx context.Context, r *ScriptRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScriptRequest, error)
	Update(ctx context.Context, r *ScriptRequest) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*ScriptRequest, int, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*ScriptRequest, int, error)
}
