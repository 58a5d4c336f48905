package junction

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/signalet-oss/clock"
	"github.com/tsinghua-fib-lab/signalet-oss/entity"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/signal"
	"github.com/tsinghua-fib-lab/signalet-oss/utils/config"
)

// fakeContext carries just enough of the task context for conversion tests.
type fakeContext struct {
	rc *config.RuntimeConfig
}

func (c *fakeContext) Clock() *clock.Clock                      { return nil }
func (c *fakeContext) LaneManager() entity.ILaneManager         { return nil }
func (c *fakeContext) RoadManager() entity.IRoadManager         { return nil }
func (c *fakeContext) JunctionManager() entity.IJunctionManager { return nil }
func (c *fakeContext) RuntimeConfig() *config.RuntimeConfig     { return c.rc }

// convertTestJunction builds a junction with a single straight movement on
// one lane, bypassing the manager wiring.
func convertTestJunction(phaseDuration float64) *Junction {
	m := &signal.Movement{
		ID:       signal.MovementID{Junction: 1, Src: 111, Dst: 212},
		Kind:     signal.KindStraight,
		FromRoad: 1,
		ToRoad:   2,
		Geom: []geometry.Point{
			{X: -10, Y: 0},
			{X: 10, Y: 0},
		},
		KnownOverlaps: make(map[signal.MovementID]struct{}),
	}
	return &Junction{
		ctx: &fakeContext{rc: &config.RuntimeConfig{
			C: config.Control{Signal: config.Signal{PhaseDuration: phaseDuration}},
		}},
		id:             1,
		laneIDs:        []int32{900},
		movements:      []*signal.Movement{m},
		movementByLane: map[int32]signal.MovementID{900: m.ID},
	}
}

func TestSignalOptions(t *testing.T) {
	// unset duration falls through to the built-in default
	assert.Equal(t, signal.DefaultOptions(), convertTestJunction(0).signalOptions())
	assert.Equal(t, 45.0, convertTestJunction(45).signalOptions().PhaseDuration)
}

func TestPlanFromPbUsesConfiguredPhaseDuration(t *testing.T) {
	j := convertTestJunction(45)
	plan, err := j.planFromPb(&mapv2.TrafficLight{
		JunctionId: 1,
		Phases: []*mapv2.Phase{
			{Duration: 0, States: []mapv2.LightState{mapv2.LightState_LIGHT_STATE_GREEN}},
			{Duration: 12, States: []mapv2.LightState{mapv2.LightState_LIGHT_STATE_RED}},
		},
	}, j.signalOptions())
	require.NoError(t, err)
	require.Len(t, plan.Phases, 2)

	// unspecified durations take the configured value, explicit ones stay
	assert.Equal(t, 45.0, plan.Phases[0].Duration)
	assert.Equal(t, 12.0, plan.Phases[1].Duration)

	gid := signal.GroupID{From: 1, To: 2, Crosswalk: signal.NoMovement}
	assert.Contains(t, plan.Phases[0].Protected, gid)
}
