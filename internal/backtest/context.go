package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/modules/technical"
)

// Status is a BacktestContext's lifecycle state.
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusPreparing Status = "PREPARING"
	StatusPolling   Status = "POLLING"
	StatusReady     Status = "READY"
	StatusFailed    Status = "FAILED"
)

// JobStatus is the external job service's reported status for one job.
type JobStatus string

const (
	JobIdle      JobStatus = "IDLE"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// JobClient talks to the external "generate historical report" job
// service: submit a generation job, then poll it to completion.
type JobClient interface {
	Generate(ctx context.Context, ticker string, timestamps []int64) (jobID string, err error)
	Check(ctx context.Context, jobID string) (JobStatus, error)
}

// OHLCVFetcher fetches a ticker's OHLCV history for point selection.
type OHLCVFetcher func(ctx context.Context, ticker string) ([]technical.Bar, error)

// ReportLoader loads the completed job's historical AnalysisReports from
// persistence.
type ReportLoader func(ctx context.Context, ticker, jobID string) ([]*domain.AnalysisReport, error)

// Context is a single ticker's backtest preparation state machine:
// IDLE -> PREPARING (fetch OHLCV + pick dates) -> POLLING (after job
// submit) -> READY | FAILED.
type Context struct {
	Ticker string

	mu                sync.RWMutex
	status            Status
	err               error
	selectedPoints    []int64
	jobID             string
	historicalReports []*domain.AnalysisReport

	readyOnce sync.Once
	dataReady chan struct{}

	log zerolog.Logger
}

// NewContext creates a fresh, IDLE context for ticker.
func NewContext(ticker string, log zerolog.Logger) *Context {
	return &Context{
		Ticker:    ticker,
		status:    StatusIdle,
		dataReady: make(chan struct{}),
		log:       log.With().Str("component", "backtest.Context").Str("ticker", ticker).Logger(),
	}
}

// Status returns the context's current lifecycle state.
func (c *Context) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Err returns the failure reason, if Status() is FAILED.
func (c *Context) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// HistoricalReports returns the loaded reports once ready; nil before
// that.
func (c *Context) HistoricalReports() []*domain.AnalysisReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.historicalReports
}

// DataReady is closed exactly once, whether the context reaches READY or
// FAILED, so waiters always unblock.
func (c *Context) DataReady() <-chan struct{} {
	return c.dataReady
}

func (c *Context) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Context) signalReady() {
	c.readyOnce.Do(func() { close(c.dataReady) })
}

func (c *Context) fail(err error) {
	c.mu.Lock()
	c.status = StatusFailed
	c.err = err
	c.mu.Unlock()
	c.signalReady()
}

// Deps bundles this context's external collaborators for one run.
type Deps struct {
	FetchOHLCV      OHLCVFetcher
	JobClient       JobClient
	LoadReports     ReportLoader
	SelectorConfig  SelectorConfig
	PollingInterval time.Duration
	PollingDeadline time.Duration
}

// Run drives the context through PREPARING -> POLLING -> READY|FAILED.
// It never returns an error: failures are recorded on the context itself
// (Status()==FAILED, Err()) and DataReady is closed regardless of outcome
// so callers waiting on it always unblock.
func (c *Context) Run(ctx context.Context, deps Deps) {
	c.setStatus(StatusPreparing)

	bars, err := deps.FetchOHLCV(ctx, c.Ticker)
	if err != nil {
		c.log.Error().Err(err).Msg("OHLCV fetch failed")
		c.fail(fmt.Errorf("fetch OHLCV for %s: %w", c.Ticker, err))
		return
	}
	if len(bars) == 0 {
		c.fail(fmt.Errorf("no OHLCV data for %s", c.Ticker))
		return
	}

	selector, err := NewPointSelector(bars, bars[0].Time, bars[len(bars)-1].Time, deps.SelectorConfig)
	if err != nil {
		c.fail(err)
		return
	}
	points := selector.AddMonthlyPoints().AddSignificantPoints().GetPointsAsTimestamps()
	c.mu.Lock()
	c.selectedPoints = points
	c.mu.Unlock()

	jobID, err := deps.JobClient.Generate(ctx, c.Ticker, points)
	if err != nil {
		c.fail(err)
		return
	}
	c.mu.Lock()
	c.jobID = jobID
	c.mu.Unlock()
	c.setStatus(StatusPolling)

	if err := c.poll(ctx, deps); err != nil {
		c.fail(err)
		return
	}

	reports, err := deps.LoadReports(ctx, c.Ticker, c.jobID)
	if err != nil {
		c.fail(err)
		return
	}
	c.mu.Lock()
	c.historicalReports = reports
	c.status = StatusReady
	c.mu.Unlock()
	c.signalReady()
}

// poll repeatedly checks the job every PollingInterval until it reaches
// COMPLETED or FAILED, or PollingDeadline elapses. Transient check errors
// are swallowed and retried at the next tick.
func (c *Context) poll(ctx context.Context, deps Deps) error {
	deadline := time.Now().Add(deps.PollingDeadline)
	ticker := time.NewTicker(deps.PollingInterval)
	defer ticker.Stop()

	for {
		status, err := deps.JobClient.Check(ctx, c.jobID)
		if err != nil {
			c.log.Warn().Err(err).Msg("transient poll error, retrying")
		} else {
			switch status {
			case JobCompleted:
				return nil
			case JobFailed:
				return fmt.Errorf("backtest job %s failed upstream", c.jobID)
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("backtest job %s exceeded polling deadline", c.jobID)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
