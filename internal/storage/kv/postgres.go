package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_items (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres is the durable SQL-backed Store driver.
type Postgres struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the backing table when it does not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure kv schema: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.sb.
		Select("value").
		From("kv_items").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var value []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *Postgres) Set(ctx context.Context, key string, value []byte) error {
	query, args, err := s.sb.
		Insert("kv_items").
		Columns("key", "value", "updated_at").
		Values(key, value, sq.Expr("NOW()")).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build set query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, key string) (bool, error) {
	query, args, err := s.sb.
		Delete("kv_items").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Postgres) Keys(ctx context.Context, prefix string) ([]string, error) {
	builder := s.sb.Select("key").From("kv_items").OrderBy("key")
	if prefix != "" {
		builder = builder.Where(sq.Like{"key": likeEscape(prefix) + ":%"})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build keys query: %w", err)
	}

	var keys []string
	if err := s.db.SelectContext(ctx, &keys, query, args...); err != nil {
		return nil, fmt.Errorf("list keys %s: %w", prefix, err)
	}
	return keys, nil
}

func (s *Postgres) GetItems(ctx context.Context, keys []string) ([]Item, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM kv_items WHERE key = ANY($1)",
		pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	defer rows.Close()

	found := make(map[string][]byte, len(keys))
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		found[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve the caller's key order; absent keys are skipped.
	items := make([]Item, 0, len(found))
	for _, key := range keys {
		if value, ok := found[key]; ok {
			items = append(items, Item{Key: key, Value: value})
		}
	}
	return items, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeEscape(s string) string {
	return likeEscaper.Replace(s)
}
