package lane_test

import (
	"testing"

	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/lane"
)

func drivingLane(id int32, maxSpeed float64) *mapv2.Lane {
	return &mapv2.Lane{
		Id:       id,
		Type:     mapv2.LaneType_LANE_TYPE_DRIVING,
		Turn:     mapv2.LaneTurn_LANE_TURN_STRAIGHT,
		MaxSpeed: maxSpeed,
		Width:    3.5,
		CenterLine: &mapv2.Polyline{Nodes: []*geov2.XYPosition{
			{X: 0, Y: 0},
			{X: 100, Y: 0},
		}},
	}
}

func TestLaneMaxV(t *testing.T) {
	m := lane.NewManager(nil)
	m.Init([]*mapv2.Lane{drivingLane(100, 16.7)})

	l := m.Get(100)
	require.Equal(t, 16.7, l.MaxV())
	assert.InDelta(t, 100.0, l.Length(), 1e-9)

	// speed limit changes take effect immediately
	l.SetMaxV(8.3)
	assert.Equal(t, 8.3, l.MaxV())
}
