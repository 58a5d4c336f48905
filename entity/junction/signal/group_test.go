package signal_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/signal"
)

func assertPolyline(t *testing.T, want, got []geometry.Point) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i].X, got[i].X, 1e-9, "point %d", i)
		assert.InDelta(t, want[i].Y, got[i].Y, 1e-9, "point %d", i)
	}
}

func TestGroupMovements(t *testing.T) {
	const j = 100
	view := fourWayJunction(j)
	groups, err := signal.GroupMovements(j, view.MovementsInJunction(j))
	require.NoError(t, err)

	// 8 vehicle road pairs + 8 crosswalk directions; the corner is discarded
	assert.Len(t, groups, 16)
	for id, g := range groups {
		assert.NotEqual(t, signal.KindSharedSidewalkCorner, g.Kind)
		assert.Equal(t, id.IsCrosswalk(), g.Kind == signal.KindCrosswalk)
	}

	// vehicle groups carry the road pair and no crosswalk marker
	ns := signal.GroupID{From: 1, To: 3, Crosswalk: signal.NoMovement}
	require.Contains(t, groups, ns)
	assert.Equal(t, signal.KindStraight, groups[ns].Kind)
	assert.Equal(t, []signal.MovementID{{Junction: j, Src: 11, Dst: 32}}, groups[ns].Members)

	// crosswalk groups are singletons linked to the opposite direction
	walk := signal.GroupID{From: 1, To: 1,
		Crosswalk: signal.MovementID{Junction: j, Src: 15, Dst: 16}}
	back := signal.GroupID{From: 1, To: 1,
		Crosswalk: signal.MovementID{Junction: j, Src: 16, Dst: 15}}
	require.Contains(t, groups, walk)
	require.Contains(t, groups, back)
	assert.Equal(t, []signal.GroupID{back}, groups[walk].Siblings)
	assert.Equal(t, []signal.GroupID{walk}, groups[back].Siblings)
}

func TestGroupMovementsEmpty(t *testing.T) {
	_, err := signal.GroupMovements(7, nil)
	assert.ErrorIs(t, err, signal.ErrNoMovementGroups)

	// a junction with only corner movements is just as degenerate
	corner := mv(7, 16, 45, signal.KindSharedSidewalkCorner, 1, 4, pt(2, 8), pt(8, 2))
	_, err = signal.GroupMovements(7, []*signal.Movement{corner})
	assert.ErrorIs(t, err, signal.ErrNoMovementGroups)
}

func TestGroupSrcCenterAndWidth(t *testing.T) {
	const j = 100
	view := fourWayJunction(j)
	// a second northbound straight so the 1->3 group spans two lanes
	view.movements = append(view.movements,
		mv(j, 13, 33, signal.KindStraight, 1, 3, pt(-1.5, 10), pt(-1.5, -10)))
	// road 1 runs from the north edge down into the junction
	view.centerlines = map[int32][]geometry.Point{1: {pt(0, 50), pt(0, 10)}}
	view.laneOffsets = map[int32]int{11: 0, 13: 1}
	view.laneBackward = map[int32]bool{15: true}

	groups, err := signal.GroupMovements(j, view.MovementsInJunction(j))
	require.NoError(t, err)

	// two-lane vehicle group: centered between lanes 0 and 1, one full lane
	// right of the road axis, rendered pointing away from the junction
	ns := groups[signal.GroupID{From: 1, To: 3, Crosswalk: signal.NoMovement}]
	require.NotNil(t, ns)
	pl, width := ns.SrcCenterAndWidth(view)
	assert.InDelta(t, 7.0, width, 1e-9)
	assertPolyline(t, []geometry.Point{pt(-3.5, 10), pt(-3.5, 50)}, pl)

	// crosswalk on a lane running against the road axis: the centerline is
	// flipped before shifting and kept junction-outward afterwards
	walk := groups[signal.GroupID{From: 1, To: 1,
		Crosswalk: signal.MovementID{Junction: j, Src: 15, Dst: 16}}]
	require.NotNil(t, walk)
	pl, width = walk.SrcCenterAndWidth(view)
	assert.InDelta(t, 3.5, width, 1e-9)
	assertPolyline(t, []geometry.Point{pt(1.75, 10), pt(1.75, 50)}, pl)
}

func TestGroupConflicts(t *testing.T) {
	const j = 100
	view := fourWayJunction(j)
	groups, err := signal.GroupMovements(j, view.MovementsInJunction(j))
	require.NoError(t, err)

	g := func(from, to int32) *signal.Group {
		id := signal.GroupID{From: from, To: to, Crosswalk: signal.NoMovement}
		require.Contains(t, groups, id)
		return groups[id]
	}

	// perpendicular straights cross
	assert.True(t, g(1, 3).ConflictsWith(g(2, 4)))
	assert.True(t, g(2, 4).ConflictsWith(g(1, 3)))
	// opposite straights pass each other
	assert.False(t, g(1, 3).ConflictsWith(g(3, 1)))
	// same source road fans out without conflict
	assert.False(t, g(1, 3).ConflictsWith(g(1, 4)))
	// same target road always conflicts
	assert.True(t, g(2, 4).ConflictsWith(g(1, 4)))
	// crosswalk groups never conflict with each other
	for id1, g1 := range groups {
		for id2, g2 := range groups {
			if id1.IsCrosswalk() && id2.IsCrosswalk() {
				assert.False(t, g1.ConflictsWith(g2))
			}
		}
	}
}
