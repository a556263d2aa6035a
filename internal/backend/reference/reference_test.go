package reference

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"examtt/internal/model"
)

func TestSolveSatisfiesExactlyOneAndMaximizesObjective(t *testing.T) {
	b := New(1)
	v0 := b.NewBoolVar("v0")
	v1 := b.NewBoolVar("v1")
	v2 := b.NewBoolVar("v2")
	b.AddExactlyOne([]model.VarID{v0, v1, v2})
	b.Maximize([]model.LinearTerm{
		{Var: v0, Coefficient: 1},
		{Var: v1, Coefficient: 5},
		{Var: v2, Coefficient: 2},
	})

	res, err := b.Solve(context.Background(), 500*time.Millisecond)
	require.NoError(t, err)
	require.Contains(t, []model.Status{model.StatusFeasible, model.StatusOptimal}, res.Status)

	trueCount := 0
	for _, val := range res.Values {
		if val {
			trueCount++
		}
	}
	require.Equal(t, 1, trueCount)
	require.True(t, res.Values[v1], "expected the highest-coefficient var to be selected")
	require.InDelta(t, 5.0, res.ObjectiveVal, 0.001)
}

func TestSolveRespectsLinearUpperBound(t *testing.T) {
	b := New(2)
	v0 := b.NewBoolVar("v0")
	v1 := b.NewBoolVar("v1")
	v2 := b.NewBoolVar("v2")
	b.AddLinearLE([]model.LinearTerm{
		{Var: v0, Coefficient: 1},
		{Var: v1, Coefficient: 1},
		{Var: v2, Coefficient: 1},
	}, 1)
	b.Maximize([]model.LinearTerm{
		{Var: v0, Coefficient: 3},
		{Var: v1, Coefficient: 3},
		{Var: v2, Coefficient: 3},
	})

	res, err := b.Solve(context.Background(), 500*time.Millisecond)
	require.NoError(t, err)

	trueCount := 0
	for _, val := range res.Values {
		if val {
			trueCount++
		}
	}
	require.LessOrEqual(t, trueCount, 1)
}

func TestSolveHonorsHintAsInitialAssignment(t *testing.T) {
	b := New(3)
	v0 := b.NewBoolVar("v0")
	b.SetHint(v0, 1)
	b.AddLinearLE([]model.LinearTerm{{Var: v0, Coefficient: 1}}, 1)

	res, err := b.Solve(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	require.Contains(t, []model.Status{model.StatusFeasible, model.StatusOptimal}, res.Status)
}
