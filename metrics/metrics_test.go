package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/metrics"
	"github.com/warp/performance-engine/scoring"
)

// =============================================================================
// COLLABORATOR MOCKS
// =============================================================================

type MockLeads struct{ mock.Mock }

func (m *MockLeads) CountLeads(ctx context.Context, e scoring.EmployeeID, start, end time.Time) (int64, error) {
	args := m.Called(ctx, e, start, end)
	return int64(args.Int(0)), args.Error(1)
}

type MockSales struct{ mock.Mock }

func (m *MockSales) CountAndSumSales(ctx context.Context, e scoring.EmployeeID, start, end time.Time) (int64, decimal.Decimal, error) {
	args := m.Called(ctx, e, start, end)
	return int64(args.Int(0)), args.Get(1).(decimal.Decimal), args.Error(2)
}

type MockManual struct{ mock.Mock }

func (m *MockManual) Reading(ctx context.Context, e scoring.EmployeeID, id scoring.KPIID, periodKey string) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, e, id, periodKey)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func noRetry() backoff.BackOff { return &backoff.StopBackOff{} }

func request(kind kpi.SourceKind) metrics.Request {
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	return metrics.Request{
		Employee: "emp-1",
		KPI: kpi.Definition{
			ID:         "k1",
			DataSource: kpi.DataSource{Kind: kind},
		},
		Window:    scoring.Period{Start: day, End: day},
		PeriodKey: "2025-03-10",
	}
}

// =============================================================================
// DISPATCH
// =============================================================================

func TestRegistry_DispatchesByKind(t *testing.T) {
	leads := &MockLeads{}
	sales := &MockSales{}
	leads.On("CountLeads", mock.Anything, scoring.EmployeeID("emp-1"), mock.Anything, mock.Anything).Return(7, nil)
	sales.On("CountAndSumSales", mock.Anything, scoring.EmployeeID("emp-1"), mock.Anything, mock.Anything).
		Return(3, decimal.NewFromInt(12500), nil)

	r := metrics.NewRegistry(leads, sales, nil, nil).WithRetry(noRetry)

	got, err := r.Fetch(context.Background(), request(kpi.SourceLeadCount))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(7)))

	got, err = r.Fetch(context.Background(), request(kpi.SourceSaleCount))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(3)))

	got, err = r.Fetch(context.Background(), request(kpi.SourceSaleAmount))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(12500)))

	leads.AssertExpectations(t)
	sales.AssertExpectations(t)
}

func TestRegistry_UnknownKindIsConfigError(t *testing.T) {
	r := metrics.NewRegistry(nil, nil, nil, nil).WithRetry(noRetry)

	_, err := r.Fetch(context.Background(), request(kpi.SourceLeadCount))
	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrUnknownSource)
	assert.True(t, scoring.IsConfigError(err))
}

func TestRegistry_ManualReadingMissingIsZero(t *testing.T) {
	manual := &MockManual{}
	manual.On("Reading", mock.Anything, scoring.EmployeeID("emp-1"), scoring.KPIID("k1"), "2025-03-10").
		Return(decimal.Zero, false, nil)

	r := metrics.NewRegistry(nil, nil, nil, manual).WithRetry(noRetry)

	got, err := r.Fetch(context.Background(), request(kpi.SourceManual))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestRegistry_RetriesTransientFailures(t *testing.T) {
	calls := 0
	flaky := metrics.SourceFunc(func(ctx context.Context, req metrics.Request) (decimal.Decimal, error) {
		calls++
		if calls < 3 {
			return decimal.Zero, errors.New("connection reset")
		}
		return decimal.NewFromInt(5), nil
	})

	r := metrics.NewRegistry(nil, nil, nil, nil).WithRetry(func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5)
	})
	r.Register(kpi.SourceLeadCount, flaky)

	got, err := r.Fetch(context.Background(), request(kpi.SourceLeadCount))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, got.Equal(decimal.NewFromInt(5)))
}

func TestRegistry_ExhaustedRetriesSurfaceError(t *testing.T) {
	broken := metrics.SourceFunc(func(ctx context.Context, req metrics.Request) (decimal.Decimal, error) {
		return decimal.Zero, errors.New("source down")
	})

	r := metrics.NewRegistry(nil, nil, nil, nil).WithRetry(noRetry)
	r.Register(kpi.SourceLeadCount, broken)

	_, err := r.Fetch(context.Background(), request(kpi.SourceLeadCount))
	assert.Error(t, err)
}
