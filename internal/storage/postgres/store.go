// Package postgres stores game instances in a PostgreSQL jsonb column.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thefirstspine/matches-sub001/internal/game"
	"github.com/thefirstspine/matches-sub001/internal/storage"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// Config holds the pool settings.
type Config struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store persists instances through a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open connects to the database, checks it answers and ensures the schema.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	if logger != nil {
		stats := pool.Stat()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Pool exposes the underlying pool so the catalog can share it.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Create(ctx context.Context, inst *game.Instance) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`INSERT INTO game_instances (status, document) VALUES ($1, '{}'::jsonb) RETURNING id`,
		string(inst.Status),
	).Scan(&inst.ID); err != nil {
		return fmt.Errorf("failed to insert instance: %w", err)
	}

	data, err := game.Encode(inst)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE game_instances SET document = $2 WHERE id = $1`,
		inst.ID, data,
	); err != nil {
		return fmt.Errorf("failed to write instance %d: %w", inst.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit instance %d: %w", inst.ID, err)
	}
	return nil
}

func (s *Store) UpdateOne(ctx context.Context, id int64, inst *game.Instance) error {
	data, err := game.Encode(inst)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE game_instances SET status = $2, document = $3, updated_at = now() WHERE id = $1`,
		id, string(inst.Status), data,
	)
	if err != nil {
		return fmt.Errorf("failed to update instance %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) FindActive(ctx context.Context) ([]*game.Instance, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT document FROM game_instances WHERE status = $1 ORDER BY id`,
		string(game.StatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query active instances: %w", err)
	}
	defer rows.Close()

	var out []*game.Instance
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		inst, err := game.Decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instances: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*game.Instance, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM game_instances WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load instance %d: %w", id, err)
	}
	return game.Decode(data)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
