package container

import (
	"context"
	"fmt"

	"epinet/adapters/postgres"
	"epinet/adapters/rng"
	"epinet/app"
	"epinet/internal"
	"epinet/internal/api"
	"epinet/internal/config"
	"epinet/internal/errors"
	"epinet/internal/migration"
	"epinet/internal/presets"
	"epinet/internal/report"
	"epinet/internal/results"
	"epinet/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (nil without DATABASE_URL)
	Summaries postgres.SummaryStore

	// Simulation components
	Presets    *presets.Set
	Streams    ports.StreamSource
	MonteCarlo *app.MonteCarloService
	Batches    *app.BatchService

	// Streaming
	SSEHub *api.SSEHub
}

// New creates a new dependency injection container with file sinks from cfg.Output
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	presetSet, err := presets.Resolve(cfg.Simulation.PresetsFile)
	if err != nil {
		return nil, errors.Wrapf(errors.WithCode(errors.CodeConfigInvalid, err), "failed to load presets %q", cfg.Simulation.PresetsFile)
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Presets: presetSet,
		Streams: rng.NewSeedSequence(),
	}
	c.MonteCarlo = app.NewMonteCarloService(c.Streams, cfg.Simulation.Workers, logger)
	c.Batches = app.NewBatchService(c.MonteCarlo, logger, c.fileSinks()...)

	return c, nil
}

func (c *Container) fileSinks() []ports.SummarySink {
	var sinks []ports.SummarySink
	if c.Config.Output.CSVPath != "" {
		sinks = append(sinks, results.CSVSink{Path: c.Config.Output.CSVPath})
	}
	if c.Config.Output.XLSXPath != "" {
		sinks = append(sinks, results.XLSXSink{Path: c.Config.Output.XLSXPath})
	}
	if c.Config.Output.ReportDir != "" {
		sinks = append(sinks, report.Sink{Dir: c.Config.Output.ReportDir})
	}
	return sinks
}

// SinkNames lists the configured sinks in write order
func (c *Container) SinkNames() []string {
	var names []string
	for _, s := range c.fileSinks() {
		names = append(names, s.Name())
	}
	if c.Summaries != nil {
		names = append(names, c.Summaries.Name())
	}
	return names
}

// ConnectDatabase opens DATABASE_URL, runs migrations and wires the summary store.
// It is a no-op when no database is configured.
func (c *Container) ConnectDatabase(ctx context.Context) error {
	if !c.Config.Database.Enabled() {
		c.Logger.Info("DATABASE_URL not set, summaries will not be persisted")
		return nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError(err, "failed to connect to database")
	}
	return c.InitWithDatabase(ctx, db)
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	if err := db.PingContext(ctx); err != nil {
		return errors.DatabaseError(err, "failed to ping database")
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	c.Summaries = postgres.NewSummaryRepository(db)
	c.Batches.AddSink(c.Summaries)
	return nil
}

// EnableStreaming creates the SSE hub and subscribes it to batch progress
func (c *Container) EnableStreaming() *api.SSEHub {
	if c.SSEHub == nil {
		c.SSEHub = api.NewSSEHub(c.Logger)
		c.Batches.AddListener(c.SSEHub)
	}
	return c.SSEHub
}

// SummaryRepository returns the store as a port, or nil when none is configured
func (c *Container) SummaryRepository() ports.SummaryRepository {
	if c.Summaries == nil {
		return nil
	}
	return c.Summaries
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.SSEHub != nil {
		c.SSEHub.Close()
	}

	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}

	return nil
}
