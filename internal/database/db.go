package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log := logger.With().Str("component", "database").Logger()
	log.Info().Str("database", cfg.Database).Msg("Connected to PostgreSQL")

	return &DB{Pool: pool, logger: log}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("Database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("Running database migrations")

	migrations := []string{
		// Analysis runs: one row per pipeline pass, full result as JSONB
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id TEXT PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			timeframe VARCHAR(5) NOT NULL,
			verdict VARCHAR(30) NOT NULL,
			stage VARCHAR(10) NOT NULL,
			detail TEXT,
			narration TEXT,
			bar_count INTEGER NOT NULL DEFAULT 0,
			payload JSONB,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol ON analysis_runs(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_verdict ON analysis_runs(verdict)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON analysis_runs(started_at)`,

		// Trade proposals awaiting or past review
		`CREATE TABLE IF NOT EXISTS trade_proposals (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			timeframe VARCHAR(5) NOT NULL,
			direction VARCHAR(10) NOT NULL,
			status VARCHAR(12) NOT NULL,
			revision_of TEXT,
			note TEXT,
			zero_size BOOLEAN NOT NULL DEFAULT FALSE,
			order_id TEXT,
			plan JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			decided_at TIMESTAMPTZ,
			executed_at TIMESTAMPTZ,
			closed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_status ON trade_proposals(status)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_run_id ON trade_proposals(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_symbol ON trade_proposals(symbol)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.logger.Info().Int("count", len(migrations)).Msg("Migrations completed")
	return nil
}
