package signal_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/signal"
)

func deg(d float64) float64 {
	return d * math.Pi / 180
}

func TestKindFromAngles(t *testing.T) {
	cases := []struct {
		entry, exit float64
		expect      signal.MovementKind
	}{
		{0, 0, signal.KindStraight},
		{0, deg(9), signal.KindStraight},
		{0, deg(-9), signal.KindStraight},
		{0, deg(11), signal.KindLeft},
		{0, deg(90), signal.KindLeft},
		{0, deg(180), signal.KindLeft},
		{0, deg(-11), signal.KindRight},
		{0, deg(-90), signal.KindRight},
		{0, deg(181), signal.KindRight},
		// wraparound across ±π
		{deg(170), deg(-170), signal.KindLeft},
		{deg(-170), deg(170), signal.KindRight},
		{deg(175), deg(-180), signal.KindStraight},
	}
	for _, c := range cases {
		assert.Equal(t, c.expect, signal.KindFromAngles(c.entry, c.exit),
			"entry=%v exit=%v", c.entry, c.exit)
	}
}

func TestMovementConflict(t *testing.T) {
	const j = 100
	nsStraight := mv(j, 11, 32, signal.KindStraight, 1, 3, pt(-0.5, 10), pt(-0.5, -10))
	weStraight := mv(j, 21, 42, signal.KindStraight, 2, 4, pt(-10, -0.5), pt(10, -0.5))
	neLeft := mv(j, 11, 42, signal.KindLeft, 1, 4, pt(-0.5, 10), pt(10, -0.5))
	corner := mv(j, 16, 45, signal.KindSharedSidewalkCorner, 1, 4, pt(2, 8), pt(8, 2))
	walkE := mv(j, 45, 46, signal.KindCrosswalk, 4, 4, pt(8, -2), pt(8, 2))
	walkN := mv(j, 15, 16, signal.KindCrosswalk, 1, 1, pt(-2, 8), pt(2, 8))

	// crossing paths conflict, symmetrically
	assert.True(t, nsStraight.ConflictsWith(weStraight))
	assert.True(t, weStraight.ConflictsWith(nsStraight))

	// self never conflicts
	assert.False(t, nsStraight.ConflictsWith(nsStraight))

	// corners never conflict with anything
	assert.False(t, corner.ConflictsWith(nsStraight))
	assert.False(t, nsStraight.ConflictsWith(corner))

	// pedestrian movements never conflict with each other
	assert.False(t, walkE.ConflictsWith(walkN))

	// shared entry point: fan-out from the same lane, no conflict
	assert.False(t, nsStraight.ConflictsWith(neLeft))

	// shared exit point: merging into the same target, conflict
	assert.True(t, weStraight.ConflictsWith(neLeft))

	// left turn crosses the east crosswalk
	assert.True(t, neLeft.ConflictsWith(walkE))
	// but stays clear of the north one
	assert.False(t, neLeft.ConflictsWith(walkN))
}

func TestMovementKnownOverlaps(t *testing.T) {
	const j = 100
	// parallel opposite left turns, geometrically disjoint
	a := mv(j, 11, 42, signal.KindLeft, 1, 4, pt(-0.5, 10), pt(10, -0.5))
	b := mv(j, 31, 22, signal.KindLeft, 3, 2, pt(0.5, -10), pt(-10, 0.5))
	assert.False(t, a.ConflictsWith(b))

	// a recorded overlap from map data forces the conflict
	a.KnownOverlaps = map[signal.MovementID]struct{}{b.ID: {}}
	assert.True(t, a.ConflictsWith(b))
}

func TestMovementAngle(t *testing.T) {
	m := mv(100, 11, 32, signal.KindStraight, 1, 3, pt(0, 0), pt(0, 10))
	assert.InDelta(t, math.Pi/2, m.Angle(), 1e-9)
}
