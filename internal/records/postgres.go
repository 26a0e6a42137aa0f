package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"qualis/pkg/platform/sentinel"
	"qualis/pkg/requestcontext"
)

// Postgres persists records as jsonb rows keyed (tenant_id, record_type, id).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool to the given URL.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (integration tests).
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the records table when missing.
func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS qm_records (
			tenant_id   text        NOT NULL,
			record_type text        NOT NULL,
			id          text        NOT NULL,
			body        jsonb       NOT NULL,
			created_at  timestamptz NOT NULL DEFAULT now(),
			updated_at  timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (tenant_id, record_type, id)
		)`)
	if err != nil {
		return fmt.Errorf("migrate records table: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

func (s *Postgres) Fetch(ctx context.Context, typ Type) ([]json.RawMessage, error) {
	tenant := requestcontext.TenantID(ctx)
	rows, err := s.pool.Query(ctx,
		`SELECT body FROM qm_records WHERE tenant_id = $1 AND record_type = $2 ORDER BY created_at, id`,
		tenant.String(), string(typ))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", typ, err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s record: %w", typ, err)
		}
		out = append(out, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", typ, err)
	}
	return out, nil
}

func (s *Postgres) Create(ctx context.Context, typ Type, id string, record any) (json.RawMessage, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	tenant := requestcontext.TenantID(ctx)
	_, err = s.pool.Exec(ctx,
		`INSERT INTO qm_records (tenant_id, record_type, id, body) VALUES ($1, $2, $3, $4)`,
		tenant.String(), string(typ), id, body)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("create %s record: %w", typ, err)
	}
	return body, nil
}

func (s *Postgres) Update(ctx context.Context, typ Type, id string, record any) (json.RawMessage, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	tenant := requestcontext.TenantID(ctx)
	tag, err := s.pool.Exec(ctx,
		`UPDATE qm_records SET body = $4, updated_at = now()
		 WHERE tenant_id = $1 AND record_type = $2 AND id = $3`,
		tenant.String(), string(typ), id, body)
	if err != nil {
		return nil, fmt.Errorf("update %s record: %w", typ, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, sentinel.ErrNotFound
	}
	return body, nil
}

func (s *Postgres) Delete(ctx context.Context, typ Type, id string) error {
	tenant := requestcontext.TenantID(ctx)
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM qm_records WHERE tenant_id = $1 AND record_type = $2 AND id = $3`,
		tenant.String(), string(typ), id)
	if err != nil {
		return fmt.Errorf("delete %s record: %w", typ, err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
