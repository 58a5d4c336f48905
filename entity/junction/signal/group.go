// 提供运动组（同一对道路之间全部运动的聚合）及其冲突判定
package signal

import (
	"errors"
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
)

var (
	ErrNoMovementGroups = errors.New("junction has no movement groups")
)

// GroupID 运动组标识符
// 说明：人行横道组内嵌其唯一成员的运动ID，以区分同一对道路上
// 两个方向的横道；非人行横道组的Crosswalk为NoMovement
type GroupID struct {
	From      int32      `json:"from"`
	To        int32      `json:"to"`
	Crosswalk MovementID `json:"crosswalk"`
}

// IsCrosswalk 判断是否为人行横道组
func (id GroupID) IsCrosswalk() bool {
	return id.Crosswalk != NoMovement
}

func (id GroupID) String() string {
	if id.IsCrosswalk() {
		return fmt.Sprintf("Group(%d->%d, crosswalk %v)", id.From, id.To, id.Crosswalk)
	}
	return fmt.Sprintf("Group(%d->%d)", id.From, id.To)
}

// groupIDLess 运动组标识符的全序关系，用于确定性排序
func groupIDLess(a, b GroupID) bool {
	if a.From != b.From {
		return a.From < b.From
	}
	if a.To != b.To {
		return a.To < b.To
	}
	return movementIDLess(a.Crosswalk, b.Crosswalk)
}

// SortedGroupIDs 获取排序后的组标识符列表
func SortedGroupIDs(groups map[GroupID]*Group) []GroupID {
	ids := lo.Keys(groups)
	sort.Slice(ids, func(i, j int) bool { return groupIDLess(ids[i], ids[j]) })
	return ids
}

// Group 运动组，信号配时的原子单元
type Group struct {
	ID      GroupID
	Kind    MovementKind
	Members []MovementID
	// 代表折线（成员折线的逐点平均）
	Geom  []geometry.Point
	Angle float64

	// 人行横道组：同一条物理横道其他方向对应的组，编辑时联动
	Siblings []GroupID

	// 成员运动，用于组间几何冲突的加速与成员查询
	movements []*Movement
}

// ConflictsWith 判断两个运动组是否不能同时放行
// 算法说明：
// 1. 同一组不冲突
// 2. 两个人行横道组之间不冲突（行人同时过不同路腿是可接受的）
// 3. 入口道路相同（同源扇出）不冲突
// 4. 出口道路相同（汇入同一道路）冲突，且先于几何判定
// 5. 其余情况按代表折线是否相交判定
func (g *Group) ConflictsWith(other *Group) bool {
	if g.ID == other.ID {
		return false
	}
	if g.Kind == KindCrosswalk && other.Kind == KindCrosswalk {
		return false
	}

	if g.ID.From == other.ID.From {
		return false
	}
	if g.ID.To == other.ID.To {
		return true
	}
	// 地图冲突点数据可能只记录在一侧车道上，双向查询保证对称性
	for _, m := range g.movements {
		for _, o := range other.movements {
			if _, ok := m.KnownOverlaps[o.ID]; ok {
				return true
			}
			if _, ok := o.KnownOverlaps[m.ID]; ok {
				return true
			}
		}
	}
	return polylinesIntersect(g.Geom, other.Geom)
}

// GroupMovements 将路口内的全部运动划分为运动组
// 功能：非人行横道运动按(入口道路,出口道路)聚合；人行横道运动各成单元素组；
// 共享人行道转角运动被丢弃（无冲突语义）
// 参数：junctionID-路口ID，movements-路口内全部运动
// 返回：组标识符到运动组的映射；路口没有任何非转角运动时返回错误
// 说明：对退化路口（如完全封闭）调用属于上游过滤遗漏，错误必须显式处理
func GroupMovements(junctionID int32, movements []*Movement) (map[GroupID]*Group, error) {
	sorted := make([]*Movement, len(movements))
	copy(sorted, movements)
	sort.Slice(sorted, func(i, j int) bool { return movementIDLess(sorted[i].ID, sorted[j].ID) })

	results := make(map[GroupID]*Group)
	type roadPair struct{ from, to int32 }
	vehicleGroups := make(map[roadPair][]*Movement)
	pairs := make([]roadPair, 0)
	for _, m := range sorted {
		switch m.Kind {
		case KindSharedSidewalkCorner:
		case KindCrosswalk:
			id := GroupID{From: m.FromRoad, To: m.ToRoad, Crosswalk: m.ID}
			results[id] = &Group{
				ID:        id,
				Kind:      KindCrosswalk,
				Members:   []MovementID{m.ID},
				Geom:      m.Geom,
				Angle:     m.Angle(),
				movements: []*Movement{m},
			}
		default:
			pair := roadPair{from: m.FromRoad, to: m.ToRoad}
			if _, ok := vehicleGroups[pair]; !ok {
				pairs = append(pairs, pair)
			}
			vehicleGroups[pair] = append(vehicleGroups[pair], m)
		}
	}

	for _, pair := range pairs {
		members := vehicleGroups[pair]
		geom := groupGeom(members, pair.from, pair.to)
		kinds := lo.Uniq(lo.Map(members, func(m *Movement, _ int) MovementKind {
			switch m.Kind {
			case KindStraight, KindLaneChangeLeft, KindLaneChangeRight:
				return KindStraight
			default:
				return m.Kind
			}
		}))
		if len(kinds) > 1 {
			log.Warnf("movement group between %d and %d mixes turn kinds %v", pair.from, pair.to, kinds)
		}
		id := GroupID{From: pair.from, To: pair.to, Crosswalk: NoMovement}
		results[id] = &Group{
			ID:   id,
			Kind: kinds[0],
			Members: lo.Map(members, func(m *Movement, _ int) MovementID {
				return m.ID
			}),
			Geom:      geom,
			Angle:     members[0].Angle(),
			movements: members,
		}
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("junction %d: %w", junctionID, ErrNoMovementGroups)
	}

	// 解析人行横道组的联动关系（同一条横道的其他方向）
	for _, g := range results {
		if g.Kind != KindCrosswalk {
			continue
		}
		m := g.movements[0]
		for _, otherID := range m.OtherCrosswalks {
			for id := range results {
				if id.Crosswalk == otherID {
					g.Siblings = append(g.Siblings, id)
				}
			}
		}
		sort.Slice(g.Siblings, func(i, j int) bool { return groupIDLess(g.Siblings[i], g.Siblings[j]) })
	}
	return results, nil
}

// groupGeom 计算组的代表折线（成员折线的逐点平均）
// 说明：要求所有成员折线点数一致；否则退化为复制第一条成员折线并告警
func groupGeom(members []*Movement, from, to int32) []geometry.Point {
	numPts := len(members[0].Geom)
	for _, m := range members {
		if len(m.Geom) != numPts {
			log.Warnf("movement group between %d and %d can't make nice geometry", from, to)
			return members[0].Geom
		}
	}
	pts := make([]geometry.Point, numPts)
	for idx := 0; idx < numPts; idx++ {
		var sum geometry.Point
		for _, m := range members {
			sum.X += m.Geom[idx].X
			sum.Y += m.Geom[idx].Y
			sum.Z += m.Geom[idx].Z
		}
		n := float64(len(members))
		pts[idx] = geometry.Point{X: sum.X / n, Y: sum.Y / n, Z: sum.Z / n}
	}
	return pts
}

// SrcCenterAndWidth 计算组在入口道路上的代表中心线与宽度
// 功能：用于渲染与命中测试，不参与冲突/相位判定
// 返回：从路口指出的折线与组覆盖的车道宽度
func (g *Group) SrcCenterAndWidth(view MapView) ([]geometry.Point, float64) {
	center := view.RoadCenterLine(g.ID.From)
	laneWidth := view.LaneWidth(g.Members[0].Src)

	forward, _ := view.LaneDirAndOffset(g.ID.From, g.Members[0].Src)
	pl := center
	if !forward {
		pl = reversedPolyline(center)
	}

	offsets := lo.Uniq(lo.Map(g.Members, func(m MovementID, _ int) int {
		_, offset := view.LaneDirAndOffset(g.ID.From, m.Src)
		return offset
	}))
	sort.Ints(offsets)
	var offset float64
	if len(offsets)%2 == 0 {
		// 两条车道的中间
		offset = float64(offsets[len(offsets)/2]) - 0.5
	} else {
		offset = float64(offsets[len(offsets)/2])
	}
	pl = shiftPolylineRight(pl, laneWidth*(0.5+offset))
	if !g.ID.IsCrosswalk() {
		pl = reversedPolyline(pl)
	}
	width := laneWidth * float64(offsets[len(offsets)-1]-offsets[0]+1)
	return pl, width
}
