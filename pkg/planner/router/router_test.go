package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adrianliechti/forge/pkg/planner"

	"github.com/stretchr/testify/require"
)

type mockPlanner struct {
	calls int
	err   error

	rationale string
}

func (m *mockPlanner) Plan(ctx context.Context, req *planner.Request) (*planner.Plan, error) {
	m.calls++

	if m.err != nil {
		return nil, m.err
	}

	return &planner.Plan{Rationale: m.rationale}, nil
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestFailover(t *testing.T) {
	primary := &mockPlanner{err: errors.New("unreachable")}
	secondary := &mockPlanner{rationale: "secondary"}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p, err := New([]planner.Provider{primary, secondary}, WithFailureThreshold(2), WithRecoveryTimeout(time.Minute))
	require.NoError(t, err)

	p.now = func() time.Time { return now }

	for range 3 {
		plan, err := p.Plan(context.Background(), &planner.Request{})
		require.NoError(t, err)
		require.Equal(t, "secondary", plan.Rationale)
	}

	// the circuit opened after two failures
	require.Equal(t, 2, primary.calls)
	require.Equal(t, 1, p.Available())

	now = now.Add(2 * time.Minute)
	primary.err = nil
	primary.rationale = "primary"

	plan, err := p.Plan(context.Background(), &planner.Request{})
	require.NoError(t, err)
	require.Equal(t, "primary", plan.Rationale)
	require.Equal(t, 2, p.Available())
}

func TestAllFailing(t *testing.T) {
	a := &mockPlanner{err: planner.ErrPlanningFailed}
	b := &mockPlanner{err: errors.New("unreachable")}

	p, err := New([]planner.Provider{a, b}, WithFailureThreshold(1))
	require.NoError(t, err)

	_, err = p.Plan(context.Background(), &planner.Request{})
	require.ErrorIs(t, err, planner.ErrPlanningFailed)

	_, err = p.Plan(context.Background(), &planner.Request{})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &mockPlanner{err: context.Canceled}
	b := &mockPlanner{}

	p, err := New([]planner.Provider{a, b}, WithFailureThreshold(1))
	require.NoError(t, err)

	_, err = p.Plan(ctx, &planner.Request{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, b.calls)
	require.Equal(t, 2, p.Available())
}
