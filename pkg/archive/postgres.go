package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/benashkar/turkish-bsl/pkg/logger"
	"github.com/benashkar/turkish-bsl/pkg/snapshot"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Archiver mirrors published snapshots into Postgres for history queries.
// The canonical artifact stays the JSON snapshot; archiving failures are
// non-fatal and never roll back a publish.
type Archiver interface {
	// ArchiveRun upserts a published snapshot's records.
	ArchiveRun(ctx context.Context, snap *snapshot.Snapshot) error

	// Close closes the database connection pool
	Close() error
}

// PostgresArchiver implements Archiver using pgxpool
type PostgresArchiver struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// PostgresConfig holds database connection settings
type PostgresConfig struct {
	URI      string
	MinConns int32
	MaxConns int32
}

// NewPostgresArchiver creates a new PostgresArchiver instance
func NewPostgresArchiver(ctx context.Context, cfg PostgresConfig, l *logger.Logger) (*PostgresArchiver, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresArchiver{pool: pool, logger: l}, nil
}

var columns = []string{
	"player_id", "run_id", "name", "team", "position", "nationality",
	"hometown", "college", "last_updated", "generated_at",
}

// ArchiveRun writes one row per player per run, COPY for large rosters and
// plain upserts otherwise.
func (a *PostgresArchiver) ArchiveRun(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil || len(snap.Players) == 0 {
		return nil
	}
	if a.ShouldUseCopy(snap.Players) {
		return a.archiveCopy(ctx, snap)
	}
	return a.archiveUpsert(ctx, snap)
}

func (a *PostgresArchiver) archiveUpsert(ctx context.Context, snap *snapshot.Snapshot) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO player_runs (player_id, run_id, name, team, position, nationality, hometown, college, last_updated, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (player_id, run_id) DO UPDATE SET
			name = EXCLUDED.name,
			team = EXCLUDED.team,
			position = EXCLUDED.position,
			nationality = EXCLUDED.nationality,
			hometown = EXCLUDED.hometown,
			college = EXCLUDED.college,
			last_updated = EXCLUDED.last_updated,
			generated_at = EXCLUDED.generated_at
	`
	for _, p := range snap.Players {
		if _, err := tx.Exec(ctx, query, rowValues(p, snap)...); err != nil {
			return err
		}
		a.logger.Debug("archived player", zap.String("player_id", p.PlayerID), zap.String("run_id", snap.SourceRunID))
	}
	return tx.Commit(ctx)
}

func (a *PostgresArchiver) archiveCopy(ctx context.Context, snap *snapshot.Snapshot) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "CREATE TEMP TABLE player_runs_temp (LIKE player_runs) ON COMMIT DROP")
	if err != nil {
		return fmt.Errorf("failed to create temp table: %w", err)
	}

	rows := make([][]interface{}, len(snap.Players))
	for i, p := range snap.Players {
		rows[i] = rowValues(p, snap)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"player_runs_temp"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy from failed: %w", err)
	}

	const upsertQuery = `
		INSERT INTO player_runs SELECT * FROM player_runs_temp
		ON CONFLICT (player_id, run_id) DO UPDATE SET
			name = EXCLUDED.name,
			team = EXCLUDED.team,
			position = EXCLUDED.position,
			nationality = EXCLUDED.nationality,
			hometown = EXCLUDED.hometown,
			college = EXCLUDED.college,
			last_updated = EXCLUDED.last_updated,
			generated_at = EXCLUDED.generated_at
	`
	if _, err := tx.Exec(ctx, upsertQuery); err != nil {
		return fmt.Errorf("upsert from temp table failed: %w", err)
	}

	return tx.Commit(ctx)
}

func rowValues(p snapshot.PlayerRecord, snap *snapshot.Snapshot) []interface{} {
	return []interface{}{
		p.PlayerID, snap.SourceRunID, p.Name, p.Team, p.Position, p.Nationality,
		p.Hometown, p.College, p.LastUpdated, snap.GeneratedAt,
	}
}

// Close closes the pool
func (a *PostgresArchiver) Close() error {
	a.pool.Close()
	return nil
}

// ShouldUseCopy is exported for testing protocol selection
func (a *PostgresArchiver) ShouldUseCopy(players []snapshot.PlayerRecord) bool {
	return len(players) >= 100
}
