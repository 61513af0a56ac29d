package sim

import (
	"time"

	"epinet/domain/core"
	"epinet/domain/params"
)

// Summary aggregates the outcomes of many independent runs of one experiment.
// Mean fields are nil when undefined (no run reached the relevant state).
type Summary struct {
	BatchID             core.BatchID      `json:"batch_id,omitempty"`
	Experiment          params.Experiment `json:"experiment"`
	Fingerprint         core.Hash         `json:"fingerprint"`
	MasterSeed          uint64            `json:"master_seed"`
	Trials              int               `json:"trials"`
	Consensus           int               `json:"consensus"`
	Abandoned           int               `json:"abandoned"`
	Exhausted           int               `json:"exhausted"`
	ProportionConsensus float64           `json:"proportion_consensus"`
	MeanConsensusRound  *float64          `json:"mean_consensus_round,omitempty"`
	MeanAbandonedRound  *float64          `json:"mean_abandoned_round,omitempty"`
	MeanPassiveCredence *float64          `json:"mean_passive_credence,omitempty"`
	Elapsed             time.Duration     `json:"elapsed"`
	CreatedAt           core.Timestamp    `json:"created_at"`
}
