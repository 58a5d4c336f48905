package road

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/signalet-oss/entity"
)

// Road 道路实体
// 功能：表示地图中的道路，包含车道集合与路口连接信息
type Road struct {
	ctx entity.ITaskContext

	id           int32
	laneIDs      []int32
	name         string
	drivingLanes []entity.ILane         // 行车道，按从左到右排序
	walkingLanes []entity.ILane         // 人行道，按从左到右排序
	lanes        map[int32]entity.ILane // 车道id->车道指针映射表

	drivingPredecessor entity.IJunction // 前驱路口
	drivingSuccessor   entity.IJunction // 后继路口

	originalMaxV float64 // 道路最大车速均值
}

// newRoad 创建并初始化一个新的Road实例
// 功能：根据基础数据创建Road对象，初始化车道、车速、类型分类等配置
// 参数：ctx-任务上下文，base-基础Road数据，laneManager-车道管理器
// 返回：初始化完成的Road实例
// 说明：按车道类型分类存储，计算平均最大车速
func newRoad(ctx entity.ITaskContext, base *mapv2.Road, laneManager entity.ILaneManager) *Road {
	r := &Road{
		ctx:     ctx,
		id:      base.Id,
		name:    base.Name,
		laneIDs: base.LaneIds,
		lanes:   make(map[int32]entity.ILane),
	}

	drivingLaneCount := 0
	r.originalMaxV = .0
	for i, laneID := range r.laneIDs {
		lane := laneManager.Get(laneID)
		r.lanes[laneID] = lane
		lane.SetParentRoadWhenInit(r, i)
		switch lane.Type() {
		case mapv2.LaneType_LANE_TYPE_DRIVING:
			r.drivingLanes = append(r.drivingLanes, lane)
			r.originalMaxV += lane.MaxV()
			drivingLaneCount++
		case mapv2.LaneType_LANE_TYPE_WALKING:
			r.walkingLanes = append(r.walkingLanes, lane)
		case mapv2.LaneType_LANE_TYPE_RAIL_TRANSIT:
		default:
			log.Panicf("Unknown lane type: %d", lane.Type())
		}
	}
	if drivingLaneCount > 0 {
		r.originalMaxV /= float64(drivingLaneCount)
	}

	return r
}

// initAfterJunction 在Junction初始化后设置Road的路口连接关系
// 功能：根据行车道的连接关系确定Road的前驱和后继路口
// 参数：junctionManager-Junction管理器
// 说明：验证前驱和后继路口的唯一性，确保Road连接关系正确
func (r *Road) initAfterJunction(_ entity.IJunctionManager) {
	for _, lane := range r.drivingLanes {
		for _, pre := range lane.Predecessors() {
			junc := pre.Lane.ParentJunction()
			if junc == nil {
				log.Panicf("Lane %d:%d's predecessor is not in junction", r.id, pre.Lane.ID())
			}
			if r.drivingPredecessor == nil {
				r.drivingPredecessor = junc
			} else if r.drivingPredecessor != junc {
				log.Panicf("Road %d's predecessor is not unique: %d v.s. %d", r.id, r.drivingPredecessor.ID(), junc.ID())
			}
		}
		for _, suc := range lane.Successors() {
			junc := suc.Lane.ParentJunction()
			if junc == nil {
				log.Panicf("Lane %d:%d's successor is not in junction", r.id, suc.Lane.ID())
			}
			if r.drivingSuccessor == nil {
				r.drivingSuccessor = junc
			} else if r.drivingSuccessor != junc {
				log.Panicf("Road %d's successor is not unique: %d v.s. %d", r.id, r.drivingSuccessor.ID(), junc.ID())
			}
		}
	}
}

// ID 获取Road的唯一标识符
// 功能：返回Road的ID，用于标识和查找特定的Road
// 返回：Road的ID，如果Road为nil则返回-1
func (r *Road) ID() int32 {
	if r == nil {
		return -1
	}
	return r.id
}

// String 获取Road的字符串表示
func (r *Road) String() string {
	return fmt.Sprintf("Road %d", r.id)
}

// Lanes 获取Road的所有车道映射
// 功能：返回Road内所有车道的映射表，以车道ID为键
// 返回：车道ID到车道对象的映射
func (r *Road) Lanes() map[int32]entity.ILane {
	return r.lanes
}

// CenterLine 获取Road的参考中心线
// 功能：返回中间行车道的中心线，作为道路几何的代表
// 返回：中心线折线，如果无行车道则返回第一条人行道的中心线
// 说明：用于计算道路进入路口的方位角
func (r *Road) CenterLine() []geometry.Point {
	if len(r.drivingLanes) > 0 {
		return r.drivingLanes[len(r.drivingLanes)/2].CenterLine()
	}
	if len(r.walkingLanes) > 0 {
		return r.walkingLanes[0].CenterLine()
	}
	log.Panicf("Road %d has no lane with center line", r.id)
	return nil
}

// DrivingPredecessor 获取前驱Junction
// 功能：返回Road的前驱路口，即车辆进入Road的路口
// 返回：前驱路口对象
func (r *Road) DrivingPredecessor() entity.IJunction {
	return r.drivingPredecessor
}

// DrivingSuccessor 获取后继Junction
// 功能：返回Road的后继路口，即车辆离开Road的路口
// 返回：后继路口对象
func (r *Road) DrivingSuccessor() entity.IJunction {
	return r.drivingSuccessor
}

// LanesInto 获取Road中驶入指定路口的行车道
// 功能：返回后继车道位于指定路口内的行车道列表
// 参数：junctionID-路口ID
// 返回：驶入该路口的行车道列表，按从左到右排序
func (r *Road) LanesInto(junctionID int32) []entity.ILane {
	lanes := make([]entity.ILane, 0)
	for _, lane := range r.drivingLanes {
		for _, suc := range lane.Successors() {
			if junc := suc.Lane.ParentJunction(); junc != nil && junc.ID() == junctionID {
				lanes = append(lanes, lane)
				break
			}
		}
	}
	return lanes
}

// LanesOutOf 获取Road中从指定路口驶出的行车道
// 功能：返回前驱车道位于指定路口内的行车道列表
// 参数：junctionID-路口ID
// 返回：从该路口驶出的行车道列表，按从左到右排序
func (r *Road) LanesOutOf(junctionID int32) []entity.ILane {
	lanes := make([]entity.ILane, 0)
	for _, lane := range r.drivingLanes {
		for _, pre := range lane.Predecessors() {
			if junc := pre.Lane.ParentJunction(); junc != nil && junc.ID() == junctionID {
				lanes = append(lanes, lane)
				break
			}
		}
	}
	return lanes
}

// MaxV 获取道路限速（行车道限速的均值）
// 功能：返回道路的设计最大车速，基于所有行车道的平均限速
// 返回：道路最大车速
func (r *Road) MaxV() float64 {
	return r.originalMaxV
}

// Name 获取Road的名称
func (r *Road) Name() string {
	return r.name
}
