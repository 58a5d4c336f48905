package signal_test

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/signal"
)

func policyNames(ranked []signal.RankedPlan) []string {
	return lo.Map(ranked, func(r signal.RankedPlan, _ int) string { return r.Name })
}

func TestPoliciesFourWay(t *testing.T) {
	const j = 100
	ranked, err := signal.GetPossiblePolicies(fourWayJunction(j), j, signal.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"four-phase",
		"two-phase",
		"phase per road",
		"arbitrary assignment",
		"all walk, then free-for-all yield",
	}, policyNames(ranked))

	for _, r := range ranked {
		assert.NoError(t, r.Plan.Validate(), "policy %s", r.Name)
	}

	// the preferred plan runs four phases with protected left turns
	plan := ranked[0].Plan
	require.Len(t, plan.Phases, 4)
	ns := signal.GroupID{From: 1, To: 3, Crosswalk: signal.NoMovement}
	sn := signal.GroupID{From: 3, To: 1, Crosswalk: signal.NoMovement}
	neLeft := signal.GroupID{From: 1, To: 4, Crosswalk: signal.NoMovement}
	swLeft := signal.GroupID{From: 3, To: 2, Crosswalk: signal.NoMovement}
	assert.Contains(t, plan.Phases[0].Protected, ns)
	assert.Contains(t, plan.Phases[0].Protected, sn)
	assert.Contains(t, plan.Phases[1].Protected, neLeft)
	assert.Contains(t, plan.Phases[1].Protected, swLeft)
}

func TestPoliciesDegenerate(t *testing.T) {
	const j = 200
	ranked, err := signal.GetPossiblePolicies(degenerateJunction(j), j, signal.DefaultOptions())
	require.NoError(t, err)

	names := policyNames(ranked)
	assert.Equal(t, "degenerate (2 roads)", names[0])
	// two-way roads get a dedicated crosswalk phase
	assert.Len(t, ranked[0].Plan.Phases, 2)
}

func TestPoliciesOneway(t *testing.T) {
	const j = 201
	ranked, err := signal.GetPossiblePolicies(onewayJunction(j), j, signal.DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, "degenerate (2 roads)", ranked[0].Name)
	// no two-way road, no crosswalks: a single all-green phase
	plan := ranked[0].Plan
	require.Len(t, plan.Phases, 1)
	assert.Len(t, plan.Phases[0].Protected, 1)
}

func TestPoliciesThreeWay(t *testing.T) {
	const j = 300
	ranked, err := signal.GetPossiblePolicies(threeWayJunction(j), j, signal.DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, "three-phase", ranked[0].Name)
	plan := ranked[0].Plan
	require.Len(t, plan.Phases, 2)

	// main line straights run together in the first phase,
	// the side street crosses in the second
	ns := signal.GroupID{From: 1, To: 2, Crosswalk: signal.NoMovement}
	sn := signal.GroupID{From: 2, To: 1, Crosswalk: signal.NoMovement}
	sideLeft := signal.GroupID{From: 3, To: 2, Crosswalk: signal.NoMovement}
	assert.Contains(t, plan.Phases[0].Protected, ns)
	assert.Contains(t, plan.Phases[0].Protected, sn)
	assert.Contains(t, plan.Phases[1].Yield, sideLeft)
}

func TestPoliciesThreeWayWithoutStraight(t *testing.T) {
	// a T whose main line bends: every vehicle movement is a turn, so the
	// straight-based main line detection fails and the T policy drops out
	const j = 301
	view := threeWayJunction(j)
	for _, m := range view.movements {
		if m.Kind == signal.KindStraight {
			m.Kind = signal.KindLeft
		}
	}

	ranked, err := signal.GetPossiblePolicies(view, j, signal.DefaultOptions())
	require.NoError(t, err)

	names := policyNames(ranked)
	assert.NotContains(t, names, "three-phase")
	assert.Contains(t, names, "phase per road")
	assert.Contains(t, names, "arbitrary assignment")
	assert.Contains(t, names, "all walk, then free-for-all yield")
	for _, r := range ranked {
		assert.NoError(t, r.Plan.Validate(), "policy %s", r.Name)
	}
}

func TestAllWalkKeepsTwoPhasesWithoutCrosswalks(t *testing.T) {
	const j = 202
	ranked, err := signal.GetPossiblePolicies(onewayJunction(j), j, signal.DefaultOptions())
	require.NoError(t, err)

	idx := lo.IndexOf(policyNames(ranked), "all walk, then free-for-all yield")
	require.GreaterOrEqual(t, idx, 0)
	plan := ranked[idx].Plan

	// no crosswalks to protect, but the walk phase stays so the cycle
	// always alternates walk / yield
	require.Len(t, plan.Phases, 2)
	assert.Empty(t, plan.Phases[0].Protected)
	assert.Empty(t, plan.Phases[0].Yield)
	assert.Len(t, plan.Phases[1].Yield, 1)
	assert.NoError(t, plan.Validate())
}

func TestPoliciesFallbacksAlwaysValidate(t *testing.T) {
	// an awkward junction no named policy covers: five roads
	const j = 400
	view := fourWayJunction(j)
	view.roads = append(view.roads, 5)
	view.sortedRoads = append(view.sortedRoads, 5)
	view.incoming[5] = []int32{51}
	view.movements = append(view.movements,
		mv(j, 51, 12, signal.KindLeft, 5, 1, pt(9, -9), pt(0.5, 10)))

	ranked, err := signal.GetPossiblePolicies(view, j, signal.DefaultOptions())
	require.NoError(t, err)
	for _, r := range ranked {
		assert.NoError(t, r.Plan.Validate(), "policy %s", r.Name)
	}
	names := policyNames(ranked)
	assert.Contains(t, names, "arbitrary assignment")
	assert.Contains(t, names, "all walk, then free-for-all yield")
	assert.NotContains(t, names, "four-phase")
	assert.NotContains(t, names, "two-phase")
}

func TestNewPicksFirstRanked(t *testing.T) {
	const j = 100
	plan, err := signal.New(fourWayJunction(j), j, signal.DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, plan.Phases, 4)
	assert.NoError(t, plan.Validate())

	_, err = signal.New(&fakeView{}, j, signal.DefaultOptions())
	assert.ErrorIs(t, err, signal.ErrNoMovementGroups)
}
