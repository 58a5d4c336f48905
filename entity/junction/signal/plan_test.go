package signal_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/signal"
)

func fourWayPlan(t *testing.T) *signal.Plan {
	t.Helper()
	plan, err := signal.New(fourWayJunction(100), 100, signal.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, plan.Phases, 4)
	return plan
}

func TestPlanTiming(t *testing.T) {
	plan := fourWayPlan(t)
	require.Equal(t, 120.0, plan.CycleLength())

	idx, phase, remaining := plan.CurrentPhaseAndRemainingTime(0)
	assert.Equal(t, 0, idx)
	assert.Same(t, plan.Phases[0], phase)
	assert.InDelta(t, 30, remaining, 1e-9)

	idx, _, remaining = plan.CurrentPhaseAndRemainingTime(29.5)
	assert.Equal(t, 0, idx)
	assert.InDelta(t, 0.5, remaining, 1e-9)

	// phase boundary belongs to the next phase
	idx, _, remaining = plan.CurrentPhaseAndRemainingTime(30)
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 30, remaining, 1e-9)

	idx, _, _ = plan.CurrentPhaseAndRemainingTime(119.9)
	assert.Equal(t, 3, idx)

	// periodic in the cycle length, including negative times
	for _, now := range []float64{0, 13, 59.5, 100, 119.9} {
		i1, _, r1 := plan.CurrentPhaseAndRemainingTime(now)
		i2, _, r2 := plan.CurrentPhaseAndRemainingTime(now + plan.CycleLength())
		i3, _, r3 := plan.CurrentPhaseAndRemainingTime(now - 2*plan.CycleLength())
		assert.Equal(t, i1, i2)
		assert.Equal(t, i1, i3)
		assert.InDelta(t, r1, r2, 1e-9)
		assert.InDelta(t, r1, r3, 1e-9)
	}
}

func TestPlanOffset(t *testing.T) {
	plan := fourWayPlan(t)

	plan.Offset = 45
	idx, _, remaining := plan.CurrentPhaseAndRemainingTime(0)
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 15, remaining, 1e-9)

	// retime so that phase 2 has 12.5s left at t=50
	plan.Offset = plan.OffsetForPhase(50, 2, 12.5)
	idx, _, remaining = plan.CurrentPhaseAndRemainingTime(50)
	assert.Equal(t, 2, idx)
	assert.InDelta(t, 12.5, remaining, 1e-9)
	assert.GreaterOrEqual(t, plan.Offset, 0.0)
	assert.Less(t, plan.Offset, plan.CycleLength())
}

func TestPriorityOfMovement(t *testing.T) {
	plan := fourWayPlan(t)
	nsMovement := signal.MovementID{Junction: 100, Src: 11, Dst: 32}
	weMovement := signal.MovementID{Junction: 100, Src: 21, Dst: 42}

	// north-south straight is protected in phase 0, banned in phase 2
	assert.Equal(t, signal.PriorityProtected, plan.PriorityOfMovement(10, nsMovement))
	assert.Equal(t, signal.PriorityBanned, plan.PriorityOfMovement(70, nsMovement))
	// the perpendicular straight runs the other way around
	assert.Equal(t, signal.PriorityBanned, plan.PriorityOfMovement(10, weMovement))
	assert.Equal(t, signal.PriorityProtected, plan.PriorityOfMovement(70, weMovement))
}

func TestPlanValidate(t *testing.T) {
	plan := fourWayPlan(t)
	assert.NoError(t, plan.Validate())

	// dropping a group from all phases is reported with its id
	ns := signal.GroupID{From: 1, To: 3, Crosswalk: signal.NoMovement}
	broken := plan.Clone()
	for _, phase := range broken.Phases {
		delete(phase.Protected, ns)
		delete(phase.Yield, ns)
	}
	err := broken.Validate()
	var verr *signal.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []signal.GroupID{ns}, verr.Missing)
	assert.Contains(t, err.Error(), "missing")

	// conflicting protected pair in one phase
	we := signal.GroupID{From: 2, To: 4, Crosswalk: signal.NoMovement}
	broken = plan.Clone()
	broken.Phases[0].Protected[we] = struct{}{}
	delete(broken.Phases[2].Protected, we)
	err = broken.Validate()
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Conflicting)

	// crosswalks may not yield
	walk := signal.GroupID{From: 1, To: 1,
		Crosswalk: signal.MovementID{Junction: 100, Src: 15, Dst: 16}}
	broken = plan.Clone()
	delete(broken.Phases[2].Protected, walk)
	broken.Phases[2].Yield[walk] = struct{}{}
	err = broken.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []signal.GroupID{walk}, verr.YieldingCrosswalks)

	// no phases at all
	broken = plan.Clone()
	broken.Phases = nil
	err = broken.Validate()
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.ZeroCycle)
}

func TestPlanClone(t *testing.T) {
	plan := fourWayPlan(t)
	clone := plan.Clone()

	ns := signal.GroupID{From: 1, To: 3, Crosswalk: signal.NoMovement}
	delete(clone.Phases[0].Protected, ns)
	clone.Offset = 99

	// the original is untouched
	assert.Contains(t, plan.Phases[0].Protected, ns)
	assert.Equal(t, 0.0, plan.Offset)
}

func TestConvertToPedScramble(t *testing.T) {
	plan := fourWayPlan(t)
	opts := signal.DefaultOptions()
	plan.ConvertToPedScramble(opts)
	require.NoError(t, plan.Validate())

	// crosswalks only appear in the final scramble phase
	last := len(plan.Phases) - 1
	for idx, phase := range plan.Phases {
		for _, g := range phase.SortedProtected() {
			if g.IsCrosswalk() {
				assert.Equal(t, last, idx)
			}
		}
		for _, g := range phase.SortedYield() {
			assert.False(t, g.IsCrosswalk())
		}
	}
	scramble := plan.Phases[last]
	assert.Len(t, scramble.Protected, 8)
	assert.Empty(t, scramble.Yield)

	// applying the conversion again changes nothing
	once, err := json.Marshal(plan)
	require.NoError(t, err)
	plan.ConvertToPedScramble(opts)
	require.NoError(t, plan.Validate())
	twice, err := json.Marshal(plan)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}
