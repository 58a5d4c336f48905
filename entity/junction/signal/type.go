package signal

import "git.fiblab.net/general/common/v2/geometry"

// 依赖倒置，表达信号引擎对地图数据的接口需求

// MapView 信号引擎消费的地图查询接口
// 说明：由路口实体基于车道/道路管理器实现；信号引擎不直接持有地图数据
type MapView interface {
	// 与路口相连的所有道路ID
	RoadsInJunction(junctionID int32) []int32
	// 按进入路口的方向角稳定排序的道路ID列表（四路与逐路策略使用）
	RoadsSortedByIncomingAngle(junctionID int32) []int32
	// 路口内的所有运动
	MovementsInJunction(junctionID int32) []*Movement
	// 道路在指定路口的入口车道ID列表
	IncomingLanes(roadID, junctionID int32) []int32
	// 道路在指定路口的出口车道ID列表
	OutgoingLanes(roadID, junctionID int32) []int32
	// 道路中心线（用于计算运动组的代表折线，不参与冲突/相位判定）
	RoadCenterLine(roadID int32) []geometry.Point
	// 车道在道路中的方向与偏移（true为正向，偏移0为最左侧车道）
	LaneDirAndOffset(roadID, laneID int32) (forward bool, offset int)
	// 车道宽度
	LaneWidth(laneID int32) float64
}
