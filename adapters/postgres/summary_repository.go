package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"epinet/domain/core"
	"epinet/domain/params"
	"epinet/domain/sim"
	"epinet/ports"

	"github.com/jmoiron/sqlx"
)

// SummaryStore is both the repository and the batch sink backed by postgres
type SummaryStore interface {
	ports.SummaryRepository
	ports.SummarySink
}

// summaryRepository implements SummaryStore
type summaryRepository struct {
	db *sqlx.DB
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *sqlx.DB) SummaryStore {
	return &summaryRepository{db: db}
}

// summaryRow mirrors the experiment_summaries table
type summaryRow struct {
	BatchID             string          `db:"batch_id"`
	Fingerprint         string          `db:"fingerprint"`
	Experiment          string          `db:"experiment"`
	MasterSeed          string          `db:"master_seed"`
	Trials              int             `db:"trials"`
	Consensus           int             `db:"consensus"`
	Abandoned           int             `db:"abandoned"`
	Exhausted           int             `db:"exhausted"`
	ProportionConsensus float64         `db:"proportion_consensus"`
	MeanConsensusRound  sql.NullFloat64 `db:"mean_consensus_round"`
	MeanAbandonedRound  sql.NullFloat64 `db:"mean_abandoned_round"`
	MeanPassiveCredence sql.NullFloat64 `db:"mean_passive_credence"`
	ElapsedMs           int64           `db:"elapsed_ms"`
	CreatedAt           time.Time       `db:"created_at"`
}

// master_seed is NUMERIC(20,0) because database/sql rejects uint64 values above MaxInt64
const insertSummary = `INSERT INTO experiment_summaries (
		batch_id, fingerprint, experiment, master_seed, trials, consensus, abandoned, exhausted,
		proportion_consensus, mean_consensus_round, mean_abandoned_round, mean_passive_credence,
		elapsed_ms, created_at
	) VALUES (
		:batch_id, :fingerprint, :experiment, CAST(:master_seed AS NUMERIC), :trials, :consensus,
		:abandoned, :exhausted, :proportion_consensus, :mean_consensus_round, :mean_abandoned_round,
		:mean_passive_credence, :elapsed_ms, :created_at
	)`

const selectSummaries = `SELECT
		batch_id, fingerprint, experiment, master_seed::TEXT AS master_seed, trials, consensus,
		abandoned, exhausted, proportion_consensus, mean_consensus_round, mean_abandoned_round,
		mean_passive_credence, elapsed_ms, created_at
	FROM experiment_summaries`

func (r *summaryRepository) Name() string { return "postgres" }

// Save inserts one summary
func (r *summaryRepository) Save(ctx context.Context, batchID core.BatchID, summary *sim.Summary) error {
	row, err := toRow(batchID, summary)
	if err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(ctx, insertSummary, row); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// Record saves a whole batch in one transaction
func (r *summaryRepository) Record(ctx context.Context, batchID core.BatchID, summaries []*sim.Summary) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range summaries {
		row, err := toRow(batchID, s)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertSummary, row); err != nil {
			return fmt.Errorf("failed to save summary %s: %w", s.Fingerprint.Short(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch %s: %w", batchID, err)
	}
	return nil
}

// List returns the most recent summaries, newest first
func (r *summaryRepository) List(ctx context.Context, limit int) ([]*sim.Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []summaryRow
	query := selectSummaries + ` ORDER BY created_at DESC, id DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	return fromRows(rows)
}

// ListBatch returns the summaries of one batch in insertion order
func (r *summaryRepository) ListBatch(ctx context.Context, batchID core.BatchID) ([]*sim.Summary, error) {
	var rows []summaryRow
	query := selectSummaries + ` WHERE batch_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &rows, query, string(batchID)); err != nil {
		return nil, fmt.Errorf("failed to list batch %s: %w", batchID, err)
	}
	if len(rows) == 0 {
		return nil, core.NewNotFoundError("batch", batchID.String())
	}
	return fromRows(rows)
}

func toRow(batchID core.BatchID, s *sim.Summary) (summaryRow, error) {
	experimentJSON, err := json.Marshal(s.Experiment)
	if err != nil {
		return summaryRow{}, fmt.Errorf("failed to marshal experiment: %w", err)
	}
	createdAt := s.CreatedAt.Time()
	if createdAt.IsZero() {
		createdAt = core.Now().Time()
	}
	return summaryRow{
		BatchID:             string(batchID),
		Fingerprint:         string(s.Fingerprint),
		Experiment:          string(experimentJSON),
		MasterSeed:          strconv.FormatUint(s.MasterSeed, 10),
		Trials:              s.Trials,
		Consensus:           s.Consensus,
		Abandoned:           s.Abandoned,
		Exhausted:           s.Exhausted,
		ProportionConsensus: s.ProportionConsensus,
		MeanConsensusRound:  nullFloat(s.MeanConsensusRound),
		MeanAbandonedRound:  nullFloat(s.MeanAbandonedRound),
		MeanPassiveCredence: nullFloat(s.MeanPassiveCredence),
		ElapsedMs:           s.Elapsed.Milliseconds(),
		CreatedAt:           createdAt,
	}, nil
}

func fromRows(rows []summaryRow) ([]*sim.Summary, error) {
	summaries := make([]*sim.Summary, 0, len(rows))
	for _, row := range rows {
		s, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func fromRow(row summaryRow) (*sim.Summary, error) {
	var experiment params.Experiment
	if err := json.Unmarshal([]byte(row.Experiment), &experiment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal experiment: %w", err)
	}
	seed, err := strconv.ParseUint(row.MasterSeed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse master seed %q: %w", row.MasterSeed, err)
	}
	return &sim.Summary{
		BatchID:             core.BatchID(row.BatchID),
		Experiment:          experiment,
		Fingerprint:         core.Hash(row.Fingerprint),
		MasterSeed:          seed,
		Trials:              row.Trials,
		Consensus:           row.Consensus,
		Abandoned:           row.Abandoned,
		Exhausted:           row.Exhausted,
		ProportionConsensus: row.ProportionConsensus,
		MeanConsensusRound:  floatPtr(row.MeanConsensusRound),
		MeanAbandonedRound:  floatPtr(row.MeanAbandonedRound),
		MeanPassiveCredence: floatPtr(row.MeanPassiveCredence),
		Elapsed:             time.Duration(row.ElapsedMs) * time.Millisecond,
		CreatedAt:           core.Timestamp(row.CreatedAt.UTC()),
	}, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
