// internal/chaos/chaos.go
package chaos

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrSteadyStateInvalid = errors.New("steady state invalid, aborting experiment")

// Experiment defines a game day drill.
type Experiment struct {
	Name        string
	Hypothesis  string
	SteadyState []Metric
	Method      []Action
	Rollback    []Action
	Validation  []Assertion
	Duration    time.Duration
	SampleEvery time.Duration
}

// Metric defines a measurable system property
type Metric struct {
	Name      string
	Query     func(context.Context) (float64, error)
	Threshold Threshold
}

type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

func (t Threshold) holds(v float64) bool {
	switch t.Operator {
	case ">":
		return v > t.Value
	case "<":
		return v < t.Value
	case ">=":
		return v >= t.Value
	case "<=":
		return v <= t.Value
	case "==":
		return v == t.Value
	default:
		return false
	}
}

// Action is a fault injection, a load burst or a recovery step.
type Action struct {
	Type    string
	Target  string
	Execute func(context.Context) error
}

// Assertion validates experiment outcome against the last observation.
type Assertion struct {
	Metric    string
	Condition func(float64) bool
	Message   string
}

type Result struct {
	ExperimentName   string                 `json:"experiment_name"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          time.Time              `json:"end_time"`
	Duration         time.Duration          `json:"duration"`
	HypothesisHeld   bool                   `json:"hypothesis_held"`
	SteadyStateValid bool                   `json:"steady_state_valid"`
	Violations       []Violation            `json:"violations"`
	Observations     map[string][]DataPoint `json:"observations"`
	ErrorEvents      []ErrorEvent           `json:"error_events"`
	FailedAssertions []string               `json:"failed_assertions,omitempty"`
}

type Violation struct {
	MetricName string    `json:"metric_name"`
	Expected   float64   `json:"expected"`
	Actual     float64   `json:"actual"`
	Timestamp  time.Time `json:"timestamp"`
}

type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Component string    `json:"component"`
}

// Engine orchestrates experiments.
type Engine struct {
	tracer trace.Tracer
	log    zerolog.Logger

	mu          sync.Mutex
	experiments []Experiment
	results     []Result
}

func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		tracer: otel.Tracer("libralend/chaos"),
		log:    log,
	}
}

func (e *Engine) Register(exps ...Experiment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.experiments = append(e.experiments, exps...)
}

func (e *Engine) Experiments() []Experiment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Experiment(nil), e.experiments...)
}

func (e *Engine) Results() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Result(nil), e.results...)
}

// Run executes one experiment: steady state check, injection, observation,
// rollback, validation. Rollback actions run even when observation is cut
// short by ctx.
func (e *Engine) Run(ctx context.Context, exp Experiment) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.run_experiment",
		trace.WithAttributes(attribute.String("experiment.name", exp.Name)),
	)
	defer span.End()

	result := &Result{
		ExperimentName: exp.Name,
		StartTime:      time.Now(),
		Observations:   make(map[string][]DataPoint),
	}

	span.AddEvent("validating_steady_state")
	if violations := e.check(ctx, exp.SteadyState); len(violations) > 0 {
		result.Violations = violations
		return result, ErrSteadyStateInvalid
	}
	result.SteadyStateValid = true

	span.AddEvent("injecting_chaos")
	for _, action := range exp.Method {
		if err := action.Execute(ctx); err != nil {
			result.ErrorEvents = append(result.ErrorEvents, ErrorEvent{Timestamp: time.Now(), Error: err.Error(), Component: action.Target})
			span.RecordError(err)
		}
	}

	span.AddEvent("observing_system")
	e.observe(ctx, exp, result)

	span.AddEvent("rolling_back")
	for _, action := range exp.Rollback {
		if err := action.Execute(context.WithoutCancel(ctx)); err != nil {
			result.ErrorEvents = append(result.ErrorEvents, ErrorEvent{Timestamp: time.Now(), Error: err.Error(), Component: action.Target})
			span.RecordError(err)
		}
	}

	span.AddEvent("validating_assertions")
	result.HypothesisHeld = true
	for _, a := range exp.Validation {
		obs := result.Observations[a.Metric]
		if len(obs) == 0 || !a.Condition(obs[len(obs)-1].Value) {
			result.HypothesisHeld = false
			result.FailedAssertions = append(result.FailedAssertions, a.Message)
		}
	}
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	e.mu.Lock()
	e.results = append(e.results, *result)
	e.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("hypothesis_held", result.HypothesisHeld),
		attribute.Int("violations", len(result.Violations)),
	)
	return result, nil
}

func (e *Engine) check(ctx context.Context, metrics []Metric) []Violation {
	var violations []Violation
	for _, m := range metrics {
		v, err := m.Query(ctx)
		if err != nil {
			v = -1
		}
		if err != nil || !m.Threshold.holds(v) {
			violations = append(violations, Violation{MetricName: m.Name, Expected: m.Threshold.Value, Actual: v, Timestamp: time.Now()})
		}
	}
	return violations
}

// observe samples every steady state metric until the experiment's duration
// elapses. At least one sample is always taken.
func (e *Engine) observe(ctx context.Context, exp Experiment, result *Result) {
	every := exp.SampleEvery
	if every <= 0 {
		every = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, exp.Duration)
	defer cancel()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		for _, m := range exp.SteadyState {
			v, err := m.Query(context.WithoutCancel(ctx))
			if err != nil {
				result.ErrorEvents = append(result.ErrorEvents, ErrorEvent{Timestamp: time.Now(), Error: err.Error(), Component: m.Name})
				continue
			}
			result.Observations[m.Name] = append(result.Observations[m.Name], DataPoint{Timestamp: time.Now(), Value: v})
			if !m.Threshold.holds(v) {
				result.Violations = append(result.Violations, Violation{MetricName: m.Name, Expected: m.Threshold.Value, Actual: v, Timestamp: time.Now()})
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// GameDay is a series of experiments run back to back.
type GameDay struct {
	Name      string
	Date      time.Time
	Scenarios []Experiment
	Pause     time.Duration
}

// ExecuteGameDay runs every scenario and reports whether all hypotheses held.
func (e *Engine) ExecuteGameDay(ctx context.Context, day GameDay) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.game_day",
		trace.WithAttributes(attribute.String("gameday.name", day.Name)),
	)
	defer span.End()

	e.log.Info().Str("gameday", day.Name).Time("date", day.Date).Int("scenarios", len(day.Scenarios)).Msg("starting game day")

	allHeld := true
	for i, scenario := range day.Scenarios {
		e.log.Info().Int("n", i+1).Str("experiment", scenario.Name).Str("hypothesis", scenario.Hypothesis).Msg("running experiment")

		result, err := e.Run(ctx, scenario)
		if err != nil {
			e.log.Error().Err(err).Str("experiment", scenario.Name).Interface("violations", result.Violations).Msg("experiment aborted")
			allHeld = false
			continue
		}

		ev := e.log.Info()
		if !result.HypothesisHeld {
			ev = e.log.Warn().Strs("failed", result.FailedAssertions)
			allHeld = false
		}
		ev.Str("experiment", scenario.Name).
			Bool("hypothesis_held", result.HypothesisHeld).
			Int("violations", len(result.Violations)).
			Int("errors", len(result.ErrorEvents)).
			Dur("duration", result.Duration).
			Msg("experiment finished")

		if i < len(day.Scenarios)-1 && day.Pause > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(day.Pause):
			}
		}
	}
	return allHeld, nil
}
