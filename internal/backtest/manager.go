package backtest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Manager fans a backtest-preparation run out across tickers, bounding
// how many run concurrently so the upstream job service and the local
// OHLCV/point-selection work don't all fire at once.
type Manager struct {
	mu       sync.RWMutex
	contexts map[string]*Context
	sem      *semaphore.Weighted
	selector SelectorConfig
	log      zerolog.Logger
}

// NewManager builds a Manager that allows at most concurrencyLimit
// tickers to be prepared at once.
func NewManager(concurrencyLimit int, selector SelectorConfig, log zerolog.Logger) *Manager {
	if concurrencyLimit <= 0 {
		concurrencyLimit = 1
	}
	return &Manager{
		contexts: make(map[string]*Context),
		sem:      semaphore.NewWeighted(int64(concurrencyLimit)),
		selector: selector,
		log:      log.With().Str("component", "backtest.Manager").Logger(),
	}
}

// Get returns the context for ticker, if one has ever been started.
func (m *Manager) Get(ticker string) (*Context, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contexts[ticker]
	return c, ok
}

// Contexts returns a snapshot of every context the manager has started.
func (m *Manager) Contexts() map[string]*Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Context, len(m.contexts))
	for k, v := range m.contexts {
		out[k] = v
	}
	return out
}

func (m *Manager) getOrCreate(ticker string) (*Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contexts[ticker]; ok {
		return c, true
	}
	c := NewContext(ticker, m.log)
	m.contexts[ticker] = c
	return c, false
}

// PrepareAll starts (or reuses the already-running) backtest context for
// each ticker, bounding concurrent preparation to the manager's semaphore
// weight, and blocks until every context this call started has reached
// READY or FAILED. A ticker whose context is already past IDLE is skipped
// and not waited on.
//
// Per-ticker failures do not abort the run: PrepareAll only returns an
// error if acquiring the semaphore itself fails (ctx cancellation).
// Ticker-level outcomes are inspected afterwards via Get/Contexts.
func (m *Manager) PrepareAll(ctx context.Context, tickers []string, fetch OHLCVFetcher, client JobClient, load ReportLoader, pollInterval, pollDeadline time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, ticker := range tickers {
		ticker := ticker
		bcContext, alreadyRunning := m.getOrCreate(ticker)
		if alreadyRunning && bcContext.Status() != StatusIdle {
			// A prepare for this ticker is already in flight or done; don't
			// re-run it, just let callers await its existing DataReady.
			continue
		}

		if err := m.sem.Acquire(gctx, 1); err != nil {
			return err
		}
		g.Go(func() error {
			defer m.sem.Release(1)
			bcContext.Run(gctx, Deps{
				FetchOHLCV:      fetch,
				JobClient:       client,
				LoadReports:     load,
				SelectorConfig:  m.selector,
				PollingInterval: pollInterval,
				PollingDeadline: pollDeadline,
			})
			return nil
		})
	}

	return g.Wait()
}
