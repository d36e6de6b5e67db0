package storage

import (
	"context"
	"database/sql"
	"errors"

	pq "github.com/lib/pq"
)

type PostgresBlobs struct{ db *sql.DB }

func NewPostgresBlobs(db *sql.DB) *PostgresBlobs { return &PostgresBlobs{db: db} }

func (r *PostgresBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `
SELECT body
  FROM documents
 WHERE key = $1
`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// Put: upsert por key.
func (r *PostgresBlobs) Put(ctx context.Context, key string, body []byte) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (key, body)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET
  body       = EXCLUDED.body,
  updated_at = now()
`, key, string(body))
	return err
}

func (r *PostgresBlobs) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT key
  FROM documents
 WHERE starts_with(key, $1)
 ORDER BY key ASC
`, dirPrefix(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *PostgresBlobs) DeleteExcept(ctx context.Context, prefix string, keep []string) (int64, error) {
	if keep == nil {
		keep = []string{}
	}
	res, err := r.db.ExecContext(ctx, `
DELETE FROM documents
 WHERE starts_with(key, $1)
   AND NOT (key = ANY($2))
`, dirPrefix(prefix), pq.Array(keep))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *PostgresBlobs) Close() error { return r.db.Close() }
