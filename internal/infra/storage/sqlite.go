package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// SQLiteBlobs es el backend local (desarrollo o un solo host).
type SQLiteBlobs struct{ db *sql.DB }

func NewSQLiteBlobs(db *sql.DB) *SQLiteBlobs { return &SQLiteBlobs{db: db} }

func (r *SQLiteBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (r *SQLiteBlobs) Put(ctx context.Context, key string, body []byte) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (key, body) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET
  body       = excluded.body,
  updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		key, string(body),
	)
	return err
}

func (r *SQLiteBlobs) Keys(ctx context.Context, prefix string) ([]string, error) {
	p := dirPrefix(prefix)
	rows, err := r.db.QueryContext(ctx,
		`SELECT key FROM documents WHERE substr(key, 1, ?) = ? ORDER BY key ASC`, len(p), p)
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

func (r *SQLiteBlobs) DeleteExcept(ctx context.Context, prefix string, keep []string) (int64, error) {
	p := dirPrefix(prefix)
	q := `DELETE FROM documents WHERE substr(key, 1, ?) = ?`
	args := []any{len(p), p}
	if len(keep) > 0 {
		q += ` AND key NOT IN (?` + strings.Repeat(",?", len(keep)-1) + `)`
		for _, k := range keep {
			args = append(args, k)
		}
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *SQLiteBlobs) Close() error { return r.db.Close() }
