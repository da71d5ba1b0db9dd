package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a Postgres-backed request repository. The embedded
// draft document is stored as nullable JSONB.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const requestCols = `id, case_title, reason_for_visit, diagnosis, department, requested_by, status, note, draft_script, script_id, created_at, updated_at`

func scanRequest(row pgx.Row) (*ScriptRequest, error) {
	var r ScriptRequest
	var draft []byte
	err := row.Scan(&r.ID, &r.CaseTitle, &r.ReasonForVisit, &r.Diagnosis, &r.Department,
		&r.RequestedBy, &r.Status, &r.Note, &draft, &r.ScriptID, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(draft) > 0 {
		if err := json.Unmarshal(draft, &r.DraftScript); err != nil {
			return nil, fmt.Errorf("decode draft: %w", err)
		}
	}
	return &r, nil
}

func encodeDraft(r *ScriptRequest) ([]byte, error) {
	if r.DraftScript == nil {
		return nil, nil
	}
	return json.Marshal(r.DraftScript)
}

func (repo *repoPG) Create(ctx context.Context, r *ScriptRequest) error {
	r.ID = uuid.New()
	draft, err := encodeDraft(r)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	_, err = repo.pool.Exec(ctx, `
		INSERT INTO script_requests (id, case_title, reason_for_visit, diagnosis, department, requested_by, status, note, draft_script)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.CaseTitle, r.ReasonForVisit, r.Diagnosis, r.Department,
		r.RequestedBy, r.Status, r.Note, draft)
	return err
}

func (repo *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ScriptRequest, error) {
	return scanRequest(repo.pool.QueryRow(ctx, `SELECT `+requestCols+` FROM script_requests WHERE id = $1`, id))
}

func (repo *repoPG) Update(ctx context.Context, r *ScriptRequest) error {
	draft, err := encodeDraft(r)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	tag, err := repo.pool.Exec(ctx, `
		UPDATE script_requests
		SET case_title=$2, reason_for_visit=$3, diagnosis=$4, department=$5,
			status=$6, note=$7, draft_script=$8, script_id=$9, updated_at=NOW()
		WHERE id = $1`,
		r.ID, r.CaseTitle, r.ReasonForVisit, r.Diagnosis, r.Department,
		r.Status, r.Note, draft, r.ScriptID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := repo.pool.Exec(ctx, `DELETE FROM script_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *repoPG) List(ctx context.Context, limit, offset int) ([]*ScriptRequest, int, error) {
	return repo.list(ctx, "", nil, limit, offset)
}

func (repo *repoPG) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*ScriptRequest, int, error) {
	return repo.list(ctx, " WHERE status = $1", []interface{}{status}, limit, offset)
}

func (repo *repoPG) list(ctx context.Context, clause string, args []interface{}, limit, offset int) ([]*ScriptRequest, int, error) {
	var total int
	if err := repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM script_requests`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM script_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		requestCols, clause, len(args)+1, len(args)+2)
	rows, err := repo.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ScriptRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}
