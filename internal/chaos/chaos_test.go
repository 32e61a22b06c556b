package chaos_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"libralend/internal/app"
	"libralend/internal/chaos"
	"libralend/internal/config"
	"libralend/internal/domain"
	"libralend/internal/events"
	"libralend/internal/store/memory"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const drillISBN = "9790000000001"

func newTarget(t *testing.T, copies, borrowers int) (chaos.Target, chaos.Drill) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.Titles().Create(t.Context(), domain.Title{ISBN: drillISBN, Name: "Drill", OnShelf: copies}))

	drill := chaos.Drill{ISBN: drillISBN, Copies: copies, Duration: 30 * time.Millisecond, SampleEvery: 10 * time.Millisecond}
	for i := range borrowers {
		dni := fmt.Sprintf("5000%04d", i)
		require.NoError(t, store.Borrowers().Create(t.Context(), domain.Borrower{DNI: dni, FirstName: "Drill", LastName: dni}))
		drill.Borrowers = append(drill.Borrowers, dni)
	}

	faults := chaos.NewFaultyStore(store)
	cfg := config.Config{FeeRatePerDay: decimal.NewFromInt(2), FeeFlat: decimal.NewFromInt(1), SessionTTL: time.Hour, RegisterRatePerMinute: 10}
	a := app.New(cfg, faults, events.Noop{}, zerolog.Nop())
	return chaos.Target{Store: store, Faults: faults, Service: a.Service, Sessions: a.Sessions}, drill
}

func TestGameDayHypothesesHold(t *testing.T) {
	target, drill := newTarget(t, 2, 8)
	engine := chaos.NewEngine(zerolog.Nop())
	engine.RegisterExperiments(target, drill)

	held, err := engine.ExecuteGameDay(t.Context(), chaos.GameDay{
		Name:      "drill",
		Date:      time.Now(),
		Scenarios: engine.Experiments(),
	})
	require.NoError(t, err)
	assert.True(t, held)

	results := engine.Results()
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.HypothesisHeld, "%s: %v", r.ExperimentName, r.FailedAssertions)
		assert.Empty(t, r.ErrorEvents, r.ExperimentName)
		assert.NotEmpty(t, r.Observations["copies_unaccounted"], r.ExperimentName)
	}
	assert.Equal(t, int64(1), target.Faults.Injected())

	title, err := target.Store.Titles().Get(t.Context(), drillISBN)
	require.NoError(t, err)
	assert.Equal(t, 2, title.OnShelf, "rollback returns every drill loan")
	active, err := target.Store.Loans().CountActiveByTitle(t.Context(), drillISBN)
	require.NoError(t, err)
	assert.Zero(t, active)
}

func TestRunAbortsOnInvalidSteadyState(t *testing.T) {
	engine := chaos.NewEngine(zerolog.Nop())
	injected := false

	result, err := engine.Run(t.Context(), chaos.Experiment{
		Name: "broken",
		SteadyState: []chaos.Metric{{
			Name:      "errors",
			Query:     func(context.Context) (float64, error) { return 3, nil },
			Threshold: chaos.Threshold{Operator: "==", Value: 0},
		}},
		Method: []chaos.Action{{Execute: func(context.Context) error { injected = true; return nil }}},
	})
	assert.ErrorIs(t, err, chaos.ErrSteadyStateInvalid)
	assert.False(t, result.SteadyStateValid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, 3.0, result.Violations[0].Actual)
	assert.False(t, injected)
}

func TestRunReportsBrokenHypothesis(t *testing.T) {
	engine := chaos.NewEngine(zerolog.Nop())
	value := 0.0
	rolledBack := false

	result, err := engine.Run(t.Context(), chaos.Experiment{
		Name: "drift",
		SteadyState: []chaos.Metric{{
			Name:      "drift",
			Query:     func(context.Context) (float64, error) { return value, nil },
			Threshold: chaos.Threshold{Operator: "<", Value: 1},
		}},
		Method:      []chaos.Action{{Target: "x", Execute: func(context.Context) error { value = 5; return nil }}},
		Rollback:    []chaos.Action{{Target: "x", Execute: func(context.Context) error { rolledBack = true; return nil }}},
		Validation:  []chaos.Assertion{{Metric: "drift", Condition: func(v float64) bool { return v < 1 }, Message: "drift stays low"}},
		Duration:    20 * time.Millisecond,
		SampleEvery: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, result.SteadyStateValid)
	assert.False(t, result.HypothesisHeld)
	assert.Equal(t, []string{"drift stays low"}, result.FailedAssertions)
	assert.NotEmpty(t, result.Violations)
	assert.True(t, rolledBack)
}

func TestFaultyStoreFailsPaymentsOnDemand(t *testing.T) {
	faults := chaos.NewFaultyStore(memory.New())
	p := domain.Payment{ID: uuid.New(), LoanID: uuid.New(), Quantity: 1, Amount: decimal.NewFromInt(1), Status: domain.PaymentPending}
	require.NoError(t, faults.Payments().Create(t.Context(), p))

	faults.FailPayments(true)
	assert.ErrorIs(t, faults.Payments().SetStatus(t.Context(), p.ID, domain.PaymentCompleted), chaos.ErrInjected)

	faults.FailPayments(false)
	require.NoError(t, faults.Payments().SetStatus(t.Context(), p.ID, domain.PaymentCompleted))
	got, err := faults.Payments().Get(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, got.Status)
	assert.Equal(t, int64(1), faults.Injected())
}

func TestFaultyStoreLatencyHonoursContext(t *testing.T) {
	faults := chaos.NewFaultyStore(memory.New())
	faults.SetLatency(time.Hour)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	err := faults.WithinTx(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
