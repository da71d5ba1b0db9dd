package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a Postgres-backed script repository. Documents are stored
// as JSONB; every update appends a snapshot to script_versions.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const scriptCols = `id, title, department, created_by, document, version_id, created_at, updated_at`

func scanScript(row pgx.Row) (*Script, error) {
	var s Script
	var doc []byte
	err := row.Scan(&s.ID, &s.Title, &s.Department, &s.CreatedBy, &doc, &s.VersionID, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, &s.Document); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &s, nil
}

func (r *repoPG) Create(ctx context.Context, s *Script) error {
	s.ID = uuid.New()
	s.VersionID = 1
	doc, err := json.Marshal(s.Document)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO scripts (id, title, department, created_by, document, version_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.Title, s.Department, s.CreatedBy, doc, s.VersionID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO script_versions (script_id, version_number, change_note, created_by, document)
		VALUES ($1,$2,$3,$4,$5)`,
		s.ID, 1, "initial version", s.CreatedBy, doc); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Script, error) {
	return scanScript(r.pool.QueryRow(ctx, `SELECT `+scriptCols+` FROM scripts WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, s *Script, meta UpdateMeta) error {
	doc, err := json.Marshal(s.Document)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var version int
	err = tx.QueryRow(ctx, `
		UPDATE scripts SET title=$2, department=$3, document=$4,
			version_id = version_id + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING version_id`,
		s.ID, s.Title, s.Department, doc).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.VersionID = version

	if _, err := tx.Exec(ctx, `
		INSERT INTO script_versions (script_id, version_number, change_note, created_by, document)
		VALUES ($1,$2,$3,$4,$5)`,
		s.ID, version, meta.ChangeNote, meta.CreatedBy, doc); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM scripts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Script, int, error) {
	return r.Search(ctx, nil, limit, offset)
}

// searchColumns maps supported search parameters to their columns. Title and
// department match case-insensitively on substrings.
var searchColumns = map[string]string{
	"title":      "title",
	"department": "department",
	"created_by": "created_by",
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Script, int, error) {
	var where []string
	var args []interface{}
	for param, col := range searchColumns {
		v, ok := params[param]
		if !ok || v == "" {
			continue
		}
		args = append(args, "%"+v+"%")
		where = append(where, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scripts`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM scripts%s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		scriptCols, clause, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Script
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListVersions(ctx context.Context, id uuid.UUID) ([]VersionEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT version_number, change_note, created_by, created_at, document
		FROM script_versions WHERE script_id = $1 ORDER BY version_number DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []VersionEntry
	for rows.Next() {
		var e VersionEntry
		var doc []byte
		if err := rows.Scan(&e.VersionNumber, &e.ChangeNote, &e.CreatedBy, &e.CreatedAt, &doc); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(doc, &e.Document); err != nil {
			return nil, fmt.Errorf("decode version %d: %w", e.VersionNumber, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Every script carries at least one version, so an empty result means
	// the script itself does not exist.
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}
