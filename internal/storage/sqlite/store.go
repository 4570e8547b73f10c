// Package sqlite provides a SQLite-backed instance store for local runs and
// tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/storage"
	"github.com/thefirstspine/matches-sub001/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists instances in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite store and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Create(ctx context.Context, inst *game.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(time.Now())
	res, err := tx.ExecContext(ctx,
		`INSERT INTO game_instances (status, document, created_at, updated_at) VALUES (?, '{}', ?, ?)`,
		string(inst.Status), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read instance id: %w", err)
	}
	inst.ID = id

	data, err := game.Encode(inst)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE game_instances SET document = ? WHERE id = ?`, string(data), id); err != nil {
		return fmt.Errorf("write instance %d: %w", id, err)
	}
	return tx.Commit()
}

func (s *Store) UpdateOne(ctx context.Context, id int64, inst *game.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := game.Encode(inst)
	if err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE game_instances SET status = ?, document = ?, updated_at = ? WHERE id = ?`,
		string(inst.Status), string(data), toMillis(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update instance %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update instance %d: %w", id, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) FindActive(ctx context.Context) ([]*game.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT document FROM game_instances WHERE status = ? ORDER BY id`,
		string(game.StatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("query active instances: %w", err)
	}
	defer rows.Close()

	var out []*game.Instance
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		inst, err := game.Decode([]byte(doc))
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instances: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*game.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT document FROM game_instances WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get instance %d: %w", id, err)
	}
	return game.Decode([]byte(doc))
}
