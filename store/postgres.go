package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"tradein-engine/core/types"
	apperrors "tradein-engine/internal/errors"
)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS offer_sessions (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL DEFAULT '',
	product_id        TEXT NOT NULL,
	variant_id        TEXT NOT NULL,
	answers           JSONB NOT NULL DEFAULT '{}',
	defects           JSONB NOT NULL DEFAULT '[]',
	accessories       JSONB NOT NULL DEFAULT '[]',
	status            TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL,
	expires_at        TIMESTAMPTZ NOT NULL,
	version           BIGINT NOT NULL,
	terminated_reason TEXT NOT NULL DEFAULT '',
	last_breakdown    JSONB
);
CREATE INDEX IF NOT EXISTS idx_offer_sessions_status ON offer_sessions (status);
CREATE INDEX IF NOT EXISTS idx_offer_sessions_expires_at ON offer_sessions (expires_at);
`

const sessionColumns = `id, user_id, product_id, variant_id, answers, defects, accessories,
	status, created_at, expires_at, version, terminated_reason, last_breakdown`

// PostgresStore persists sessions in a postgres table. Optimistic
// locking rides on "UPDATE ... WHERE version = $n".
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to postgres and ensures the schema
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.Internal("failed to open postgres connection", err)
	}
	if err := db.Ping(); err != nil {
		return nil, apperrors.Internal("failed to ping postgres", err)
	}
	if _, err := db.Exec(sessionsSchema); err != nil {
		return nil, apperrors.Internal("failed to ensure sessions schema", err)
	}
	return &PostgresStore{db: db}, nil
}

// Create implements SessionStore
func (p *PostgresStore) Create(ctx context.Context, s *types.Session) error {
	answers, defects, accessories, breakdown, err := marshalSessionFields(s)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO offer_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.UserID, s.ProductID, s.VariantID, answers, defects, accessories,
		string(s.Status), s.CreatedAt, s.ExpiresAt, s.Version, s.TerminatedReason, breakdown,
	)
	if err != nil {
		return apperrors.Internal("failed to insert session", err)
	}
	return nil
}

// Get implements SessionStore
func (p *PostgresStore) Get(ctx context.Context, id string) (*types.Session, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM offer_sessions WHERE id = $1`, id)

	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("session", id)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to read session", err)
	}
	return s, nil
}

// Update implements SessionStore
func (p *PostgresStore) Update(ctx context.Context, s *types.Session, expectedVersion int64) error {
	answers, defects, accessories, breakdown, err := marshalSessionFields(s)
	if err != nil {
		return err
	}

	res, err := p.db.ExecContext(ctx, `
		UPDATE offer_sessions
		SET user_id = $2, product_id = $3, variant_id = $4, answers = $5,
			defects = $6, accessories = $7, status = $8, created_at = $9,
			expires_at = $10, version = $11, terminated_reason = $12, last_breakdown = $13
		WHERE id = $1 AND version = $14`,
		s.ID, s.UserID, s.ProductID, s.VariantID, answers, defects, accessories,
		string(s.Status), s.CreatedAt, s.ExpiresAt, s.Version, s.TerminatedReason, breakdown,
		expectedVersion,
	)
	if err != nil {
		return apperrors.Internal("failed to update session", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Internal("failed to read update result", err)
	}
	if affected == 0 {
		// Distinguish a missing row from a stale version
		var stored int64
		err := p.db.QueryRowContext(ctx,
			`SELECT version FROM offer_sessions WHERE id = $1`, s.ID).Scan(&stored)
		if err == sql.ErrNoRows {
			return apperrors.NotFound("session", s.ID)
		}
		if err != nil {
			return apperrors.Internal("failed to read session version", err)
		}
		return apperrors.Conflict("session version mismatch").
			WithContext("session_id", s.ID).
			WithContext("expected_version", expectedVersion).
			WithContext("stored_version", stored)
	}
	return nil
}

// Delete implements SessionStore
func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM offer_sessions WHERE id = $1`, id)
	if err != nil {
		return apperrors.Internal("failed to delete session", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Internal("failed to read delete result", err)
	}
	if affected == 0 {
		return apperrors.NotFound("session", id)
	}
	return nil
}

// List implements SessionStore
func (p *PostgresStore) List(ctx context.Context, filter Filter) ([]*types.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM offer_sessions WHERE 1=1`
	args := make([]interface{}, 0, 3)

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if !filter.ExpiredBefore.IsZero() {
		args = append(args, filter.ExpiredBefore)
		query += fmt.Sprintf(" AND expires_at < $%d", len(args))
	}
	query += " ORDER BY created_at, id"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Internal("failed to list sessions", err)
	}
	defer rows.Close()

	out := make([]*types.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, apperrors.Internal("failed to scan session row", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to iterate session rows", err)
	}
	return out, nil
}

// Close implements SessionStore
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*types.Session, error) {
	var (
		s         types.Session
		answers   []byte
		defects   []byte
		acc       []byte
		status    string
		breakdown []byte
	)
	err := row.Scan(&s.ID, &s.UserID, &s.ProductID, &s.VariantID, &answers, &defects, &acc,
		&status, &s.CreatedAt, &s.ExpiresAt, &s.Version, &s.TerminatedReason, &breakdown)
	if err != nil {
		return nil, err
	}

	s.Status = types.Status(status)
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(defects, &s.Defects); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(acc, &s.Accessories); err != nil {
		return nil, err
	}
	if len(breakdown) > 0 {
		var b types.PriceBreakdown
		if err := json.Unmarshal(breakdown, &b); err != nil {
			return nil, err
		}
		s.LastBreakdown = &b
	}
	return &s, nil
}

func marshalSessionFields(s *types.Session) (answers, defects, accessories, breakdown []byte, err error) {
	if answers, err = json.Marshal(orEmptyMap(s.Answers)); err != nil {
		return nil, nil, nil, nil, apperrors.Internal("failed to marshal answers", err)
	}
	if defects, err = json.Marshal(orEmptySlice(s.Defects)); err != nil {
		return nil, nil, nil, nil, apperrors.Internal("failed to marshal defects", err)
	}
	if accessories, err = json.Marshal(orEmptySlice(s.Accessories)); err != nil {
		return nil, nil, nil, nil, apperrors.Internal("failed to marshal accessories", err)
	}
	if s.LastBreakdown != nil {
		if breakdown, err = json.Marshal(s.LastBreakdown); err != nil {
			return nil, nil, nil, nil, apperrors.Internal("failed to marshal breakdown", err)
		}
	}
	return answers, defects, accessories, breakdown, nil
}

func orEmptyMap(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
