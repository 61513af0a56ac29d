// Package report renders batch summaries as Markdown and HTML.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"epinet/domain/core"
	"epinet/domain/sim"
	"epinet/internal/results"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders one table row per summary
func Markdown(batchID core.BatchID, summaries []*sim.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Batch %s\n\n", batchID)
	if len(summaries) == 0 {
		b.WriteString("No experiments were run.\n")
		return b.String()
	}

	b.WriteString("| experiment | fingerprint | trials | consensus | abandoned | exhausted | proportion | mean consensus round | mean passive credence | elapsed |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "| %s | `%s` | %d | %d | %d | %d | %s | %s | %s | %s |\n",
			s.Experiment, s.Fingerprint.Short(), s.Trials, s.Consensus, s.Abandoned, s.Exhausted,
			strconv.FormatFloat(s.ProportionConsensus, 'f', 3, 64),
			optional(s.MeanConsensusRound), optional(s.MeanPassiveCredence),
			s.Elapsed.Round(time.Millisecond))
	}

	seeds := map[uint64]bool{}
	for _, s := range summaries {
		seeds[s.MasterSeed] = true
	}
	if len(seeds) == 1 {
		fmt.Fprintf(&b, "\nMaster seed: `%d`\n", summaries[0].MasterSeed)
	}
	return b.String()
}

func optional(v *float64) string {
	if v == nil {
		return results.NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

// HTML renders the Markdown report as a complete page
func HTML(batchID core.BatchID, summaries []*sim.Summary) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "epinet batch " + batchID.String(),
	})
	return markdown.ToHTML([]byte(Markdown(batchID, summaries)), p, renderer)
}

// WriteFiles writes <batch>.md and <batch>.html into dir and returns their paths
func WriteFiles(dir string, batchID core.BatchID, summaries []*sim.Summary) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	mdPath := filepath.Join(dir, batchID.String()+".md")
	htmlPath := filepath.Join(dir, batchID.String()+".html")

	if err := os.WriteFile(mdPath, []byte(Markdown(batchID, summaries)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", mdPath, err)
	}
	if err := os.WriteFile(htmlPath, HTML(batchID, summaries), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", htmlPath, err)
	}
	return []string{mdPath, htmlPath}, nil
}

// Sink writes a report pair per batch
type Sink struct {
	Dir string
}

func (s Sink) Name() string { return "report" }

func (s Sink) Record(_ context.Context, batchID core.BatchID, summaries []*sim.Summary) error {
	_, err := WriteFiles(s.Dir, batchID, summaries)
	return err
}
