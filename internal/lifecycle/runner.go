package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// ErrUnitInProgress is returned when RunUnit is called while the startup unit
// is already running.
var ErrUnitInProgress = errors.New("persistence unit already in progress")

// UnitRunner is satisfied by *persistence.Unit.
type UnitRunner interface {
	Name() string
	Run(ctx context.Context) error
}

// Prober is satisfied by *persistence.Unit and any other dependency check.
type Prober interface {
	Probe(ctx context.Context) ProbeResult
}

// Runner executes the startup unit of work, remembers whether it committed,
// and fans out dependency probes.
type Runner struct {
	unit   UnitRunner
	probes map[string]Prober

	unitInProgress atomic.Bool
	lastResult     *UnitResult
	resultMu       sync.RWMutex
}

// New constructs a Runner. probes is keyed by the dependency name reported
// from RunDeepHealth; it may be nil.
func New(unit UnitRunner, probes map[string]Prober) *Runner {
	return &Runner{
		unit:   unit,
		probes: probes,
	}
}

// RunUnit runs the startup unit once. A failed unit is reported through the
// returned UnitResult, not the error; the error is only ErrUnitInProgress.
func (r *Runner) RunUnit(ctx context.Context) (*UnitResult, error) {
	if !r.unitInProgress.CompareAndSwap(false, true) {
		return nil, ErrUnitInProgress
	}
	defer r.unitInProgress.Store(false)

	name := r.unit.Name()

	ctx, span := otel.Tracer("erythu-portal").Start(ctx, "portal.unit")
	defer span.End()
	span.SetAttributes(attribute.String("unit.name", name))

	slog.InfoContext(ctx, "persistence unit started", "unit", name)

	r.resultMu.Lock()
	r.lastResult = &UnitResult{Unit: name, Status: StatusInProgress}
	r.resultMu.Unlock()

	start := time.Now()
	err := r.unit.Run(ctx)

	result := &UnitResult{
		Unit:       name,
		Status:     StatusOK,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Status = StatusError
		result.Error = err.Error()
	}

	span.SetAttributes(attribute.String("unit.status", result.Status))
	if result.Status == StatusError {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence unit rolled back")
		slog.WarnContext(ctx, "persistence unit failed", "unit", name, "error", result.Error)
	} else {
		span.SetStatus(codes.Ok, "")
		slog.InfoContext(ctx, "persistence unit committed", "unit", name, "duration_ms", result.DurationMs)
	}

	r.resultMu.Lock()
	r.lastResult = result
	r.resultMu.Unlock()

	return result, nil
}

// RunDeepHealth probes every registered dependency concurrently.
func (r *Runner) RunDeepHealth(ctx context.Context) map[string]ProbeResult {
	results := make(map[string]ProbeResult, len(r.probes))
	var mu sync.Mutex
	var g errgroup.Group

	for name, p := range r.probes {
		g.Go(func() error {
			probe := p.Probe(ctx)
			mu.Lock()
			results[name] = probe
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// IsUnitInProgress returns true while the startup unit is running.
func (r *Runner) IsUnitInProgress() bool {
	return r.unitInProgress.Load()
}

// IsReady returns true if the last unit run committed.
func (r *Runner) IsReady() bool {
	r.resultMu.RLock()
	defer r.resultMu.RUnlock()
	return r.lastResult != nil && r.lastResult.Status == StatusOK
}

// LastResult returns the most recent unit result, or nil before the first run.
func (r *Runner) LastResult() *UnitResult {
	r.resultMu.RLock()
	defer r.resultMu.RUnlock()
	return r.lastResult
}
