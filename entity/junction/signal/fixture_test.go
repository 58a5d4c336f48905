package signal_test

import (
	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/signal"
)

// fakeView is a canned MapView over hand-built junction fixtures.
type fakeView struct {
	roads       []int32
	sortedRoads []int32
	movements   []*signal.Movement
	incoming    map[int32][]int32
	outgoing    map[int32][]int32

	// geometry knobs, only filled by tests that render groups
	centerlines  map[int32][]geometry.Point
	laneOffsets  map[int32]int
	laneBackward map[int32]bool
}

func (v *fakeView) RoadsInJunction(junctionID int32) []int32 { return v.roads }

func (v *fakeView) RoadsSortedByIncomingAngle(junctionID int32) []int32 { return v.sortedRoads }

func (v *fakeView) MovementsInJunction(junctionID int32) []*signal.Movement { return v.movements }

func (v *fakeView) IncomingLanes(roadID, junctionID int32) []int32 { return v.incoming[roadID] }

func (v *fakeView) OutgoingLanes(roadID, junctionID int32) []int32 { return v.outgoing[roadID] }

func (v *fakeView) RoadCenterLine(roadID int32) []geometry.Point { return v.centerlines[roadID] }

func (v *fakeView) LaneDirAndOffset(roadID, laneID int32) (bool, int) {
	return !v.laneBackward[laneID], v.laneOffsets[laneID]
}

func (v *fakeView) LaneWidth(laneID int32) float64 { return 3.5 }

func pt(x, y float64) geometry.Point {
	return geometry.Point{X: x, Y: y}
}

func mv(junction, src, dst int32, kind signal.MovementKind, fromRoad, toRoad int32, geom ...geometry.Point) *signal.Movement {
	return &signal.Movement{
		ID:       signal.MovementID{Junction: junction, Src: src, Dst: dst},
		Kind:     kind,
		FromRoad: fromRoad,
		ToRoad:   toRoad,
		Geom:     geom,
	}
}

// crosswalkPair builds the two opposite walking movements over one physical
// crosswalk, linked to each other.
func crosswalkPair(junction, laneA, laneB, road int32, a, b geometry.Point) []*signal.Movement {
	forth := mv(junction, laneA, laneB, signal.KindCrosswalk, road, road, a, b)
	back := mv(junction, laneB, laneA, signal.KindCrosswalk, road, road, b, a)
	forth.OtherCrosswalks = []signal.MovementID{back.ID}
	back.OtherCrosswalks = []signal.MovementID{forth.ID}
	return []*signal.Movement{forth, back}
}

// fourWayJunction builds a standard two-way four-way crossing.
//
//	            road 1 (north)
//	road 2 (west)    +    road 4 (east)
//	            road 3 (south)
//
// Vehicle movements run on x=±0.5 / y=±0.5 lane lines so that opposite
// straights and opposite left turns never cross each other. Crosswalks sit
// 8m out from the center, clear of the perpendicular traffic.
func fourWayJunction(junction int32) *fakeView {
	movements := []*signal.Movement{
		// straights
		mv(junction, 11, 32, signal.KindStraight, 1, 3, pt(-0.5, 10), pt(-0.5, -10)),
		mv(junction, 31, 12, signal.KindStraight, 3, 1, pt(0.5, -10), pt(0.5, 10)),
		mv(junction, 21, 42, signal.KindStraight, 2, 4, pt(-10, -0.5), pt(10, -0.5)),
		mv(junction, 41, 22, signal.KindStraight, 4, 2, pt(10, 0.5), pt(-10, 0.5)),
		// left turns
		mv(junction, 11, 42, signal.KindLeft, 1, 4, pt(-0.5, 10), pt(10, -0.5)),
		mv(junction, 31, 22, signal.KindLeft, 3, 2, pt(0.5, -10), pt(-10, 0.5)),
		mv(junction, 41, 32, signal.KindLeft, 4, 3, pt(10, 0.5), pt(-0.5, -10)),
		mv(junction, 21, 12, signal.KindLeft, 2, 1, pt(-10, -0.5), pt(0.5, 10)),
		// right turns
		mv(junction, 11, 22, signal.KindRight, 1, 2, pt(-0.5, 10), pt(-10, 0.5)),
		mv(junction, 31, 42, signal.KindRight, 3, 4, pt(0.5, -10), pt(10, -0.5)),
		mv(junction, 41, 12, signal.KindRight, 4, 1, pt(10, 0.5), pt(0.5, 10)),
		mv(junction, 21, 32, signal.KindRight, 2, 3, pt(-10, -0.5), pt(-0.5, -10)),
	}
	movements = append(movements, crosswalkPair(junction, 15, 16, 1, pt(-2, 8), pt(2, 8))...)
	movements = append(movements, crosswalkPair(junction, 25, 26, 2, pt(-8, -2), pt(-8, 2))...)
	movements = append(movements, crosswalkPair(junction, 35, 36, 3, pt(-2, -8), pt(2, -8))...)
	movements = append(movements, crosswalkPair(junction, 45, 46, 4, pt(8, -2), pt(8, 2))...)
	// one shared sidewalk corner, must be discarded by grouping
	movements = append(movements,
		mv(junction, 16, 45, signal.KindSharedSidewalkCorner, 1, 4, pt(2, 8), pt(8, 2)))

	return &fakeView{
		roads:       []int32{1, 2, 3, 4},
		sortedRoads: []int32{1, 2, 3, 4},
		movements:   movements,
		incoming:    map[int32][]int32{1: {11}, 2: {21}, 3: {31}, 4: {41}},
		outgoing:    map[int32][]int32{1: {12}, 2: {22}, 3: {32}, 4: {42}},
	}
}

// degenerateJunction builds a junction where road 1 continues as road 2,
// both two-way, with a crosswalk over each.
func degenerateJunction(junction int32) *fakeView {
	movements := []*signal.Movement{
		mv(junction, 111, 212, signal.KindStraight, 1, 2, pt(-10, -0.5), pt(10, -0.5)),
		mv(junction, 211, 112, signal.KindStraight, 2, 1, pt(10, 0.5), pt(-10, 0.5)),
	}
	movements = append(movements, crosswalkPair(junction, 115, 116, 1, pt(-8, -2), pt(-8, 2))...)
	movements = append(movements, crosswalkPair(junction, 215, 216, 2, pt(8, -2), pt(8, 2))...)

	return &fakeView{
		roads:       []int32{1, 2},
		sortedRoads: []int32{1, 2},
		movements:   movements,
		incoming:    map[int32][]int32{1: {111}, 2: {211}},
		outgoing:    map[int32][]int32{1: {112}, 2: {212}},
	}
}

// onewayJunction builds a one-way pass-through: road 1 in, road 2 out.
func onewayJunction(junction int32) *fakeView {
	return &fakeView{
		roads:       []int32{1, 2},
		sortedRoads: []int32{1, 2},
		movements: []*signal.Movement{
			mv(junction, 111, 212, signal.KindStraight, 1, 2, pt(-10, 0), pt(10, 0)),
		},
		incoming: map[int32][]int32{1: {111}},
		outgoing: map[int32][]int32{2: {212}},
	}
}

// threeWayJunction builds a T: roads 1 and 2 form the main line, road 3 is
// the side street to the east.
func threeWayJunction(junction int32) *fakeView {
	movements := []*signal.Movement{
		mv(junction, 11, 22, signal.KindStraight, 1, 2, pt(-0.5, 10), pt(-0.5, -10)),
		mv(junction, 21, 12, signal.KindStraight, 2, 1, pt(0.5, -10), pt(0.5, 10)),
		mv(junction, 11, 32, signal.KindLeft, 1, 3, pt(-0.5, 10), pt(10, -0.5)),
		mv(junction, 21, 32, signal.KindRight, 2, 3, pt(0.5, -10), pt(10, -0.5)),
		mv(junction, 31, 12, signal.KindRight, 3, 1, pt(10, 0.5), pt(0.5, 10)),
		mv(junction, 31, 22, signal.KindLeft, 3, 2, pt(10, 0.5), pt(-0.5, -10)),
	}
	movements = append(movements, crosswalkPair(junction, 15, 16, 1, pt(-2, 8), pt(2, 8))...)
	movements = append(movements, crosswalkPair(junction, 25, 26, 2, pt(-2, -8), pt(2, -8))...)
	movements = append(movements, crosswalkPair(junction, 35, 36, 3, pt(8, -2), pt(8, 2))...)

	return &fakeView{
		roads:       []int32{1, 2, 3},
		sortedRoads: []int32{1, 2, 3},
		movements:   movements,
		incoming:    map[int32][]int32{1: {11}, 2: {21}, 3: {31}},
		outgoing:    map[int32][]int32{1: {12}, 2: {22}, 3: {32}},
	}
}
