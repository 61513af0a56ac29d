// Package results writes experiment summaries as CSV rows and XLSX sheets.
package results

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"epinet/domain/core"
	"epinet/domain/sim"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"
)

// NotAvailable marks an undefined mean
const NotAvailable = "N/A"

// Headers are the column names shared by CSV and XLSX output
var Headers = []string{
	"sim_count",
	"scientists",
	"topology",
	"sample_size",
	"epsilon",
	"stop_threshold",
	"max_rounds",
	"consensus_threshold",
	"passive_count",
	"passive_min_prior",
	"passive_max_prior",
	"passive_influencers",
	"propagandist",
	"share_mode",
	"master_seed",
	"sim_time_s",
	"proportion_consensus",
	"avg_consensus_round",
	"avg_abandoned_round",
	"passive_avg_credence",
	"consensus",
	"abandoned",
	"exhausted",
	"batch_id",
}

// values returns typed cells in Headers order
func values(s *sim.Summary) []interface{} {
	e := s.Experiment
	var passiveCount, influencers int
	var minPrior, maxPrior float64
	if e.Passive != nil {
		passiveCount = e.Passive.Count
		minPrior = e.Passive.MinPrior
		maxPrior = e.Passive.MaxPrior
		influencers = e.Passive.InfluencerCount
	}
	return []interface{}{
		s.Trials,
		e.Scientists,
		string(e.Topology),
		e.SampleSize,
		e.Epsilon,
		e.StopThreshold,
		e.MaxRounds,
		e.ConsensusThreshold,
		passiveCount,
		minPrior,
		maxPrior,
		influencers,
		e.Propagandist,
		string(e.ShareMode),
		strconv.FormatUint(s.MasterSeed, 10),
		s.Elapsed.Seconds(),
		s.ProportionConsensus,
		rounded(s.MeanConsensusRound),
		rounded(s.MeanAbandonedRound),
		rounded(s.MeanPassiveCredence),
		s.Consensus,
		s.Abandoned,
		s.Exhausted,
		s.BatchID.String(),
	}
}

func rounded(v *float64) interface{} {
	if v == nil {
		return NotAvailable
	}
	r, err := stats.Round(*v, 3)
	if err != nil {
		return NotAvailable
	}
	return r
}

// Row returns the header and the formatted values of one summary
func Row(s *sim.Summary) ([]string, []string) {
	cells := values(s)
	out := make([]string, len(cells))
	for i, c := range cells {
		switch v := c.(type) {
		case float64:
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return Headers, out
}

// AppendCSV appends one row to path, writing the header first when the file is new
func AppendCSV(path string, summaries ...*sim.Summary) error {
	_, err := os.Stat(path)
	isNew := errors.Is(err, fs.ErrNotExist)
	if err != nil && !isNew {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(Headers); err != nil {
			return err
		}
	}
	for _, s := range summaries {
		_, row := Row(s)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// WriteXLSX writes all summaries to a fresh workbook at path
func WriteXLSX(path string, summaries []*sim.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return err
		}
		f.SetActiveSheet(idx)
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for r, s := range summaries {
		rowIdx := r + 2
		for c, v := range values(s) {
			cell, _ := excelize.CoordinatesToCellName(c+1, rowIdx)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return err
	}
	return nil
}

// CSVSink appends every batch to one CSV file
type CSVSink struct {
	Path string
}

func (s CSVSink) Name() string { return "csv" }

func (s CSVSink) Record(_ context.Context, _ core.BatchID, summaries []*sim.Summary) error {
	return AppendCSV(s.Path, summaries...)
}

// XLSXSink rewrites one workbook per batch
type XLSXSink struct {
	Path string
}

func (s XLSXSink) Name() string { return "xlsx" }

func (s XLSXSink) Record(_ context.Context, _ core.BatchID, summaries []*sim.Summary) error {
	return WriteXLSX(s.Path, summaries)
}
