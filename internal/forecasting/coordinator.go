package forecasting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/modelcache"
)

// FeaturesRow is one as-of feature vector fed to a forecasting task.
type FeaturesRow struct {
	Timestamp int64
	BasePrice float64
	Features  map[string]float64
}

// Predictor runs a task's kernel against a features row, returning the raw
// (not yet post-processed) prediction vector. The concrete implementation
// (the ML model serialization format and its runtime) is an external
// collaborator out of this runtime's scope.
type Predictor interface {
	Predict(ctx context.Context, kernel interface{}, row FeaturesRow) ([]float64, error)
}

// Explainer is an opaque SHAP-producing callable bound to one specific
// kernel; constructing it is expensive, so it is reused across every row
// in a snapshot group.
type Explainer interface {
	Explain(ctx context.Context, row FeaturesRow) ([]domain.Evidence, error)
}

// ExplainerFactory builds an Explainer bound to kernel. It is invoked at
// most once per (task, snapshot) pair during history generation.
type ExplainerFactory func(ctx context.Context, kernel interface{}) (Explainer, error)

// TaskTemplate is one of the fixed forecasting task shapes this service
// always evaluates (e.g. a triple-barrier classifier, 5-day and 20-day
// distribution regressors).
type TaskTemplate struct {
	ProblemID    string
	Metadata     domain.TaskMetadata
	Units        domain.Units
	IsPercent    bool // true for n-day distribution tasks measured in percent of base price
	RoundDecimals int
}

// TaskID computes this template's cache key for a given sector, matching
// the source's task_id = f(problem_id, sector) convention.
func (t TaskTemplate) TaskID(sector string) string {
	return fmt.Sprintf("%s-%s", t.ProblemID, sector)
}

// ArtifactLoader loads a task's model/explainer handle from the external
// artifact store the first time it's demanded; the cache wraps it with
// single-flight semantics.
type ArtifactLoader func(ctx context.Context, taskID string) (*modelcache.Handle, error)

// Coordinator produces ForecastingReports by dispatching each task
// template's predict+explain pair in parallel and threading the result
// through the post-processor pipeline.
type Coordinator struct {
	cache     *modelcache.Cache
	loadModel ArtifactLoader
	predictor Predictor
	explainer ExplainerFactory
	templates []TaskTemplate
	log       zerolog.Logger
}

// NewCoordinator builds a Coordinator over the given task templates.
func NewCoordinator(cache *modelcache.Cache, loadModel ArtifactLoader, predictor Predictor, explainer ExplainerFactory, templates []TaskTemplate, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		cache: cache, loadModel: loadModel, predictor: predictor, explainer: explainer,
		templates: templates,
		log:       log.With().Str("component", "forecasting.Coordinator").Logger(),
	}
}

// GenerateReport produces one ForecastingReport for a single as-of row,
// running every task template concurrently and, within each template,
// running predict and explain concurrently against the same kernel.
func (c *Coordinator) GenerateReport(ctx context.Context, row FeaturesRow, ticker, sector string) (*domain.ForecastingReport, error) {
	forecasts := make([]domain.TaskForecast, len(c.templates))

	g, gctx := errgroup.WithContext(ctx)
	for i, tmpl := range c.templates {
		i, tmpl := i, tmpl
		g.Go(func() error {
			forecast, err := c.runTask(gctx, tmpl, row, sector)
			if err != nil {
				return fmt.Errorf("task %s: %w", tmpl.ProblemID, err)
			}
			forecasts[i] = forecast
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.ForecastingReport{GeneratedAt: time.Now().UTC(), Forecasts: forecasts}, nil
}

func (c *Coordinator) runTask(ctx context.Context, tmpl TaskTemplate, row FeaturesRow, sector string) (domain.TaskForecast, error) {
	taskID := tmpl.TaskID(sector)
	handleAny, err := c.cache.GetOrLoad(ctx, taskID, func(ctx context.Context) (interface{}, error) {
		return c.loadModel(ctx, taskID)
	})
	if err != nil {
		return domain.TaskForecast{}, err
	}
	handle := handleAny.(*modelcache.Handle)

	var prediction []float64
	var evidence []domain.Evidence

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.predictor.Predict(gctx, handle.MainKernel, row)
		if err != nil {
			return err
		}
		prediction = p
		return nil
	})
	g.Go(func() error {
		explainer, err := c.explainer(gctx, handle.MainKernel)
		if err != nil {
			return err
		}
		e, err := explainer.Explain(gctx, row)
		if err != nil {
			return err
		}
		evidence = e
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.TaskForecast{}, err
	}

	prediction = applyPostProcessing(tmpl, prediction, row.BasePrice)

	return domain.TaskForecast{
		TaskID:       taskID,
		TaskMetadata: tmpl.Metadata,
		Prediction:   toPredictionPointers(prediction),
		Units:        tmpl.Units,
		Evidence:     evidence,
	}, nil
}

// applyPostProcessing runs an n-day distribution task's raw prediction
// through the post-processor pipeline (clamp, optional denormalize,
// round); any other task shape passes through unchanged. Both the
// single-row GenerateReport path and the bulk GenerateHistory path route
// through this so a task type is post-processed identically regardless
// of which path produced it.
func applyPostProcessing(tmpl TaskTemplate, prediction []float64, basePrice float64) []float64 {
	if tmpl.Units != domain.UnitsPercent || len(prediction) != 6 {
		return prediction
	}
	d := Distribution{Mean: prediction[0], Std: prediction[1], Min: prediction[2], Max: prediction[3], Q25: prediction[4], Q75: prediction[5]}
	pipeline := Pipeline{ClampInvariantsProcessor{}}
	if tmpl.IsPercent {
		pipeline = append(pipeline, DenormalizeProcessor{})
	}
	pipeline = append(pipeline, RoundingProcessor{Decimals: tmpl.RoundDecimals})
	d = pipeline.Run(d, basePrice)
	return d.Vector()
}

// toPredictionPointers converts a raw prediction vector into the pointer
// slice TaskForecast.Prediction carries, so the sanitization sweep can
// null out a non-finite entry in place.
func toPredictionPointers(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		v := v
		out[i] = &v
	}
	return out
}

// HistoryRow is one row of a bulk historical feature set.
type HistoryRow struct {
	Index int // original position, preserved in output ordering
	Row   FeaturesRow
}

// GenerateHistory produces one ForecastingReport per input row. For each
// task template it loads every snapshot, resolves each row's snapshot via
// SnapshotFor(..., last), groups rows by snapshot, constructs the
// explainer once per group, and evaluates the group's rows in
// input-index order reusing that explainer. Each task's snapshot kernels
// are unloaded as soon as that task's rows have all been evaluated.
func (c *Coordinator) GenerateHistory(ctx context.Context, rows []HistoryRow, ticker, sector string) ([]*domain.ForecastingReport, error) {
	reports := make([]*domain.ForecastingReport, len(rows))
	for i := range reports {
		reports[i] = &domain.ForecastingReport{GeneratedAt: time.Now().UTC(), Forecasts: make([]domain.TaskForecast, len(c.templates))}
	}

	for ti, tmpl := range c.templates {
		taskID := tmpl.TaskID(sector)
		handleAny, err := c.cache.GetOrLoad(ctx, taskID, func(ctx context.Context) (interface{}, error) {
			return c.loadModel(ctx, taskID)
		})
		if err != nil {
			return nil, err
		}
		handle := handleAny.(*modelcache.Handle)

		if err := modelcache.BulkLoadSnapshots(ctx, handle, func(ctx context.Context, snapshotID string) (interface{}, error) {
			return snapshotID, nil // kernel already resident on the handle in this runtime's artifact model
		}); err != nil {
			return nil, err
		}

		groups := groupBySnapshot(handle, rows)

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, grp := range groups {
			grp := grp
			g.Go(func() error {
				explainer, err := c.explainer(gctx, grp.snapshot.Kernel)
				if err != nil {
					return err
				}
				for _, hr := range grp.rows {
					prediction, err := c.predictor.Predict(gctx, grp.snapshot.Kernel, hr.Row)
					if err != nil {
						return err
					}
					evidence, err := explainer.Explain(gctx, hr.Row)
					if err != nil {
						return err
					}
					prediction = applyPostProcessing(tmpl, prediction, hr.Row.BasePrice)
					forecast := domain.TaskForecast{
						TaskID: taskID, TaskMetadata: tmpl.Metadata, Prediction: toPredictionPointers(prediction),
						Units: tmpl.Units, Evidence: evidence,
					}
					mu.Lock()
					reports[hr.Index].Forecasts[ti] = forecast
					mu.Unlock()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		modelcache.UnloadSnapshots(handle)
	}

	return reports, nil
}

type snapshotGroup struct {
	snapshot modelcache.Snapshot
	rows     []HistoryRow
}

// groupBySnapshot resolves each row's last-eligible snapshot and buckets
// rows by snapshot ID, preserving each group's row order by original
// input index (Scenario D).
func groupBySnapshot(handle *modelcache.Handle, rows []HistoryRow) []snapshotGroup {
	byID := make(map[string]*snapshotGroup)
	var order []string

	for _, hr := range rows {
		snap, err := modelcache.SnapshotFor(handle, hr.Row.Timestamp, modelcache.PolicyLast)
		if err != nil {
			continue
		}
		g, ok := byID[snap.SnapshotID]
		if !ok {
			g = &snapshotGroup{snapshot: snap}
			byID[snap.SnapshotID] = g
			order = append(order, snap.SnapshotID)
		}
		g.rows = append(g.rows, hr)
	}

	groups := make([]snapshotGroup, 0, len(order))
	for _, id := range order {
		g := byID[id]
		sort.Slice(g.rows, func(i, j int) bool { return g.rows[i].Index < g.rows[j].Index })
		groups = append(groups, *g)
	}
	return groups
}

// PreloadForSectors pre-warms the cache for every sector: within a sector,
// tasks are loaded sequentially (to respect artifact-store concurrency
// limits) with a yield between them; across sectors, loading proceeds in
// parallel.
func (c *Coordinator) PreloadForSectors(ctx context.Context, sectors []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, sector := range sectors {
		sector := sector
		g.Go(func() error {
			for _, tmpl := range c.templates {
				taskID := tmpl.TaskID(sector)
				if _, err := c.cache.GetOrLoad(gctx, taskID, func(ctx context.Context) (interface{}, error) {
					return c.loadModel(ctx, taskID)
				}); err != nil {
					return fmt.Errorf("sector %s task %s: %w", sector, tmpl.ProblemID, err)
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(0):
				}
			}
			return nil
		})
	}
	return g.Wait()
}
