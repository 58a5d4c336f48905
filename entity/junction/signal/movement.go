// 提供路口信号控制的运动模型：单条车道到车道的运动（Movement）及其冲突判定
package signal

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
)

// MovementKind 运动类型
type MovementKind int32

const (
	KindCrosswalk            MovementKind = iota // 人行横道
	KindSharedSidewalkCorner                     // 路口转角处的共享人行道（无冲突语义）
	KindStraight                                 // 直行
	KindLaneChangeLeft                           // 向左变道
	KindLaneChangeRight                          // 向右变道
	KindRight                                    // 右转
	KindLeft                                     // 左转
)

// String 获取运动类型的字符串表示
func (k MovementKind) String() string {
	switch k {
	case KindCrosswalk:
		return "crosswalk"
	case KindSharedSidewalkCorner:
		return "shared sidewalk corner"
	case KindStraight:
		return "straight"
	case KindLaneChangeLeft:
		return "lane change left"
	case KindLaneChangeRight:
		return "lane change right"
	case KindRight:
		return "right"
	case KindLeft:
		return "left"
	default:
		return fmt.Sprintf("unknown(%d)", int32(k))
	}
}

// KindFromAngles 根据出入口方向角推断车辆运动类型
// 功能：计算出口方向相对入口方向的旋转角，按固定阈值分类
// 参数：entry-入口方向角（弧度），exit-出口方向角（弧度）
// 返回：Straight/Right/Left三者之一
// 算法说明：旋转角规范化到[0,360)度；小于10度或大于350度为直行；
// 大于180度（顺时针）为右转；其余（逆时针）为左转。阈值为固定常量，不可配置
func KindFromAngles(entry, exit float64) MovementKind {
	diff := math.Mod((exit-entry)*180/math.Pi, 360)
	if diff < 0 {
		diff += 360
	}
	if diff < 10 || diff > 350 {
		return KindStraight
	} else if diff > 180 {
		// 顺时针旋转
		return KindRight
	} else {
		// 逆时针旋转
		return KindLeft
	}
}

// MovementID 运动标识符
// 说明：由所属路口与出入车道唯一确定；路口ID用于区分同一条
// 人行道两端的两个人行横道
type MovementID struct {
	Junction int32 `json:"junction"` // 所属路口ID
	Src      int32 `json:"src"`      // 入口车道ID
	Dst      int32 `json:"dst"`      // 出口车道ID
}

// NoMovement 空运动标识符，用作GroupID中"非人行横道"的占位
var NoMovement = MovementID{Junction: -1, Src: -1, Dst: -1}

func (id MovementID) String() string {
	return fmt.Sprintf("Movement(%d: %d->%d)", id.Junction, id.Src, id.Dst)
}

// movementIDLess 运动标识符的全序关系，用于确定性排序
func movementIDLess(a, b MovementID) bool {
	if a.Junction != b.Junction {
		return a.Junction < b.Junction
	}
	if a.Src != b.Src {
		return a.Src < b.Src
	}
	return a.Dst < b.Dst
}

// Movement 路口内单条车道到车道的运动
// 说明：在路口车道重算时整体重建，除信号分配的外部记录外不做原地修改
type Movement struct {
	ID       MovementID
	Kind     MovementKind
	FromRoad int32 // 入口车道所在道路
	ToRoad   int32 // 出口车道所在道路

	// 路口内折线几何。允许退化（起点与终点相同），表示没有实际路径
	Geom []geometry.Point

	// 仅对人行横道有效：表示同一条物理横道在其他通行方向上的运动
	OtherCrosswalks []MovementID

	// 来自地图冲突点数据的已知几何冲突集合（可选），命中时跳过折线求交
	KnownOverlaps map[MovementID]struct{}
}

// Angle 获取运动的总体方向角（首点指向末点，弧度）
func (m *Movement) Angle() float64 {
	first, last := m.Geom[0], m.Geom[len(m.Geom)-1]
	return math.Atan2(last.Y-first.Y, last.X-first.X)
}

// BetweenSidewalks 判断运动是否在人行道之间（行人运动）
func (m *Movement) BetweenSidewalks() bool {
	return m.Kind == KindCrosswalk || m.Kind == KindSharedSidewalkCorner
}

// ConflictsWith 判断两个运动是否不能同时放行
// 功能：按优先级依次应用冲突规则，最后退化为折线求交
// 返回：true表示冲突，false表示可以同时放行
// 算法说明：
// 1. 任一方为共享人行道转角则不冲突
// 2. 同一运动不冲突（自反为假）
// 3. 两个行人运动之间不冲突
// 4. 起点相同（同源扇出）不冲突
// 5. 终点相同（汇入同一目标）冲突，且先于几何判定
// 6. 其余情况按路径折线是否相交（含端点）判定
func (m *Movement) ConflictsWith(other *Movement) bool {
	if m.Kind == KindSharedSidewalkCorner || other.Kind == KindSharedSidewalkCorner {
		return false
	}
	if m.ID == other.ID {
		return false
	}
	if m.BetweenSidewalks() && other.BetweenSidewalks() {
		return false
	}

	if samePoint(m.Geom[0], other.Geom[0]) {
		return false
	}
	if samePoint(m.Geom[len(m.Geom)-1], other.Geom[len(other.Geom)-1]) {
		return true
	}
	if _, ok := m.KnownOverlaps[other.ID]; ok {
		return true
	}
	if _, ok := other.KnownOverlaps[m.ID]; ok {
		return true
	}
	return polylinesIntersect(m.Geom, other.Geom)
}
