package gridsearch

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/arima"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/internal/metrics"
)

var (
	ErrSearchExhausted = errors.New("no valid parameters found")
	ErrEmptySeries     = errors.New("series is empty")
	ErrInvalidBudget   = errors.New("parameter budget must be positive")
)

// maxMessageRunes bounds the fit error text kept per attempt.
const maxMessageRunes = 50

// Outcome classifies a single candidate.
type Outcome string

const (
	OutcomeFitted   Outcome = "fitted"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
	OutcomeRejected Outcome = "rejected"
)

// Attempt records what happened to one candidate.
type Attempt struct {
	Order     arima.Order
	Outcome   Outcome
	Criterion float64
	Message   string
}

// Result is the outcome of a search. Best is nil when no candidate was
// accepted.
type Result struct {
	RunID     string
	Best      *arima.Order
	Criterion float64
	Handle    Handle
	Attempts  []Attempt
	Duration  time.Duration
}

// Found reports whether a best candidate exists.
func (r *Result) Found() bool {
	return r != nil && r.Best != nil
}

// Err returns ErrSearchExhausted when nothing was found.
func (r *Result) Err() error {
	if r.Found() {
		return nil
	}
	return ErrSearchExhausted
}

// Count returns the number of attempts with the given outcome.
func (r *Result) Count(o Outcome) int {
	n := 0
	for _, a := range r.Attempts {
		if a.Outcome == o {
			n++
		}
	}
	return n
}

// Engine runs exhaustive ARIMA grid searches.
type Engine struct {
	fitter Fitter
	gate   *Gate
	logger zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFitter replaces the ARIMA fitter.
func WithFitter(f Fitter) Option {
	return func(e *Engine) { e.fitter = f }
}

// WithGate sets the degeneracy gate. Nil disables it.
func WithGate(g *Gate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine using ARIMAFitter and DefaultGate unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		fitter: ARIMAFitter{},
		gate:   DefaultGate(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search fits every admissible order in space and returns the one with the
// lowest criterion. Candidate failures never abort the search. An error is
// returned only for an empty series or a non-positive budget; an exhausted
// search is reported through Result.Found.
func (e *Engine) Search(series []float64, space Space) (*Result, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	if space.MaxParams <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBudget, space.MaxParams)
	}

	start := time.Now()
	result := &Result{
		RunID:     uuid.NewString(),
		Criterion: math.Inf(1),
	}
	log := e.logger.With().Str("run_id", result.RunID).Logger()

	orders := space.Orders()
	log.Info().
		Int("combinations", len(orders)).
		Int("max_params", space.MaxParams).
		Int("observations", len(series)).
		Msgf("starting grid search, %d combinations", len(orders))

	for _, order := range orders {
		attempt := e.evaluate(series, order, space, log)
		metrics.RecordCandidate(string(attempt.Outcome))
		result.Attempts = append(result.Attempts, attempt.Attempt)

		if attempt.Outcome != OutcomeFitted {
			continue
		}
		if attempt.Criterion < result.Criterion {
			best := order
			result.Best = &best
			result.Criterion = attempt.Criterion
			result.Handle = attempt.handle
		}
	}

	result.Duration = time.Since(start)
	metrics.ObserveSearch(result.Found(), result.Duration)

	if !result.Found() {
		log.Warn().
			Int("failed", result.Count(OutcomeFailed)).
			Int("rejected", result.Count(OutcomeRejected)).
			Msg("no valid parameters found")
		return result, nil
	}

	log.Info().
		Stringer("order", result.Best).
		Float64("aic", result.Criterion).
		Int("params", result.Best.TotalParams()).
		Dur("elapsed", result.Duration).
		Msgf("best %s AIC=%.2f", result.Best, result.Criterion)
	return result, nil
}

type evaluation struct {
	Attempt
	handle Handle
}

func (e *Engine) evaluate(series []float64, order arima.Order, space Space, log zerolog.Logger) evaluation {
	ev := evaluation{Attempt: Attempt{Order: order, Criterion: math.NaN()}}

	if !space.Admits(order) {
		ev.Outcome = OutcomeSkipped
		log.Debug().Stringer("order", order).Int("params", order.TotalParams()).Msg("over parameter budget, skipped")
		return ev
	}

	fitStart := time.Now()
	fit := e.fitter.Fit(series, order)
	metrics.ObserveFit(time.Since(fitStart))

	if fit.Failure != nil || fit.Handle == nil {
		ev.Outcome = OutcomeFailed
		switch {
		case fit.Failure != nil && fit.Failure.Err != nil:
			ev.Message = truncate(fit.Failure.Err.Error(), maxMessageRunes)
		case fit.Failure != nil:
			ev.Message = string(fit.Failure.Reason)
		}
		log.Info().Stringer("order", order).Str("error", ev.Message).Msgf("%s failed: %s", order, ev.Message)
		return ev
	}

	criterion := fit.Handle.Criterion()
	ev.Criterion = criterion
	if math.IsNaN(criterion) || math.IsInf(criterion, 0) {
		ev.Outcome = OutcomeFailed
		ev.Message = "non-finite criterion"
		log.Info().Stringer("order", order).Msgf("%s failed: %s", order, ev.Message)
		return ev
	}

	if e.gate != nil {
		forecast, err := fit.Handle.Forecast(e.gate.Steps)
		if err != nil {
			ev.Outcome = OutcomeFailed
			ev.Message = truncate(err.Error(), maxMessageRunes)
			log.Info().Stringer("order", order).Msgf("%s failed: %s", order, ev.Message)
			return ev
		}
		if verdict := e.gate.Check(forecast); verdict.Rejected {
			ev.Outcome = OutcomeRejected
			ev.Message = verdict.String()
			log.Debug().
				Stringer("order", order).
				Float64("aic", criterion).
				Float64("cv", verdict.CV).
				Float64("range", verdict.Range).
				Msg("degenerate forecast, excluded")
			return ev
		}
	}

	ev.Outcome = OutcomeFitted
	ev.handle = fit.Handle
	log.Info().Stringer("order", order).Float64("aic", criterion).Msgf("%s AIC=%.2f", order, criterion)
	return ev
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
