package signal

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
)

// 几何比较容差（米）
const geomEpsilon = 1e-6

// samePoint 判断两点在容差内是否相同（仅考虑平面坐标）
func samePoint(a, b geometry.Point) bool {
	return math.Abs(a.X-b.X) < geomEpsilon && math.Abs(a.Y-b.Y) < geomEpsilon
}

// cross2D 二维叉积 (b-a) x (c-a)
func cross2D(a, b, c geometry.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// onSegment 判断点c是否落在线段ab上（已知三点共线）
func onSegment(a, b, c geometry.Point) bool {
	return math.Min(a.X, b.X)-geomEpsilon <= c.X && c.X <= math.Max(a.X, b.X)+geomEpsilon &&
		math.Min(a.Y, b.Y)-geomEpsilon <= c.Y && c.Y <= math.Max(a.Y, b.Y)+geomEpsilon
}

// segmentsIntersect 判断线段p1p2与q1q2是否相交（含端点与共线重叠）
func segmentsIntersect(p1, p2, q1, q2 geometry.Point) bool {
	d1 := cross2D(q1, q2, p1)
	d2 := cross2D(q1, q2, p2)
	d3 := cross2D(p1, p2, q1)
	d4 := cross2D(p1, p2, q2)

	if ((d1 > geomEpsilon && d2 < -geomEpsilon) || (d1 < -geomEpsilon && d2 > geomEpsilon)) &&
		((d3 > geomEpsilon && d4 < -geomEpsilon) || (d3 < -geomEpsilon && d4 > geomEpsilon)) {
		return true
	}
	// 共线或端点相接的情况
	if math.Abs(d1) <= geomEpsilon && onSegment(q1, q2, p1) {
		return true
	}
	if math.Abs(d2) <= geomEpsilon && onSegment(q1, q2, p2) {
		return true
	}
	if math.Abs(d3) <= geomEpsilon && onSegment(p1, p2, q1) {
		return true
	}
	if math.Abs(d4) <= geomEpsilon && onSegment(p1, p2, q2) {
		return true
	}
	return false
}

// polylinesIntersect 判断两条折线是否在任意位置相交（含端点）
// 说明：退化折线（起点等于终点）按单点处理
func polylinesIntersect(a, b []geometry.Point) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

// reversedPolyline 反转折线方向
func reversedPolyline(line []geometry.Point) []geometry.Point {
	res := make([]geometry.Point, len(line))
	for i, p := range line {
		res[len(line)-1-i] = p
	}
	return res
}

// shiftPolylineRight 将折线沿行进方向向右平移offset
// 说明：每个点按相邻线段方向的法向平移，仅用于渲染/命中测试辅助几何
func shiftPolylineRight(line []geometry.Point, offset float64) []geometry.Point {
	if len(line) < 2 {
		return line
	}
	dirs := geometry.GetPolylineDirections(line)
	res := make([]geometry.Point, len(line))
	for i, p := range line {
		seg := i
		if seg >= len(dirs) {
			seg = len(dirs) - 1
		}
		d := dirs[seg].Direction - math.Pi/2
		res[i] = geometry.Point{
			X: p.X + offset*math.Cos(d),
			Y: p.Y + offset*math.Sin(d),
			Z: p.Z,
		}
	}
	return res
}
