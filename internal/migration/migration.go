package migration

import (
	"context"

	"epinet/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createExperimentSummariesTable(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create experiment_summaries table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create indexes")
	}

	return nil
}

// Statements returns the DDL in execution order
func (r *MigrationRunner) Statements() []string {
	return []string{experimentSummariesDDL, indexesDDL}
}

const experimentSummariesDDL = `
		CREATE TABLE IF NOT EXISTS experiment_summaries (
			id BIGSERIAL PRIMARY KEY,
			batch_id VARCHAR(64) NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			experiment JSONB NOT NULL,
			master_seed NUMERIC(20,0) NOT NULL,
			trials INTEGER NOT NULL,
			consensus INTEGER NOT NULL,
			abandoned INTEGER NOT NULL,
			exhausted INTEGER NOT NULL,
			proportion_consensus DOUBLE PRECISION NOT NULL,
			mean_consensus_round DOUBLE PRECISION,
			mean_abandoned_round DOUBLE PRECISION,
			mean_passive_credence DOUBLE PRECISION,
			elapsed_ms BIGINT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`

const indexesDDL = `
		CREATE INDEX IF NOT EXISTS idx_experiment_summaries_batch ON experiment_summaries(batch_id);
		CREATE INDEX IF NOT EXISTS idx_experiment_summaries_fingerprint ON experiment_summaries(fingerprint);
		CREATE INDEX IF NOT EXISTS idx_experiment_summaries_created ON experiment_summaries(created_at DESC);
	`

func (r *MigrationRunner) createExperimentSummariesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, experimentSummariesDDL)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, indexesDDL)
	return err
}
