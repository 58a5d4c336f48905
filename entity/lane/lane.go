package lane

import (
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mathutil"
	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/signalet-oss/entity"
)

// Lane 车道实体
// 功能：表示地图中的车道，包含几何信息、拓扑连接与信号灯状态
type Lane struct {
	ctx entity.ITaskContext

	id int32

	// 初始化临时变量

	initPredecessors []*mapv2.LaneConnection
	initSuccessors   []*mapv2.LaneConnection
	initOverlaps     []*mapv2.LaneOverlap

	typ               mapv2.LaneType              // 车道类型
	turn              mapv2.LaneTurn              // 转向类型
	maxV              float64                     // 当前车道限速
	parentJunction    entity.IJunction            // 所在路口
	parentRoad        entity.IRoad                // 所在道路
	parentID          int32
	offsetInRoad      int                         // 在道路中的索引，0为最左侧车道，1为左数第二侧车道，以此类推
	predecessors      map[int32]entity.Connection // 前驱车道映射表
	successors        map[int32]entity.Connection // 后继车道映射表
	uniquePredecessor entity.ILane                // 唯一前驱
	uniqueSuccessor   entity.ILane                // 唯一后继
	overlaps          map[float64]entity.Overlap  // 冲突点数据集合

	lineLengths    []float64                    // 中心线折线点对应的长度列表
	length         float64                      // 以中心线的长度为车道长度
	width          float64                      // 车道宽度
	lineDirections []geometry.PolylineDirection // 中心线折线段每一段的方向（atan2）
	line           []geometry.Point             // 转成Point的中心线折线

	lightState              mapv2.LightState // 车道信号灯状态
	lightStateTotalTime     float64          // 车道信号灯本相位总时长
	lightStateRemainingTime float64          // 车道信号灯下一次切换时间
}

// newLane 创建并初始化一个新的Lane实例
// 功能：根据基础数据创建Lane对象，初始化几何信息与信号灯默认状态
// 参数：ctx-任务上下文，base-基础Lane数据
// 返回：初始化完成的Lane实例
// 说明：连接关系在initWithManager中建立；默认信号灯为无限时长绿灯
func newLane(ctx entity.ITaskContext, base *mapv2.Lane) *Lane {
	l := &Lane{
		ctx:                     ctx,
		id:                      base.Id,
		initPredecessors:        base.Predecessors,
		initSuccessors:          base.Successors,
		initOverlaps:            base.Overlaps,
		typ:                     base.Type,
		turn:                    base.Turn,
		maxV:                    base.MaxSpeed,
		predecessors:            make(map[int32]entity.Connection),
		successors:              make(map[int32]entity.Connection),
		overlaps:                make(map[float64]entity.Overlap),
		width:                   base.Width,
		lightState:              mapv2.LightState_LIGHT_STATE_GREEN,
		lightStateTotalTime:     mathutil.INF,
		lightStateRemainingTime: mathutil.INF,
	}
	l.line = lo.Map(base.CenterLine.Nodes, func(node *geov2.XYPosition, _ int) geometry.Point {
		return geometry.NewPointFromPb(node)
	})
	l.lineLengths = geometry.GetPolylineLengths2D(l.line)
	l.length = l.lineLengths[len(l.lineLengths)-1]
	l.lineDirections = geometry.GetPolylineDirections(l.line)

	switch l.typ {
	case mapv2.LaneType_LANE_TYPE_DRIVING,
		mapv2.LaneType_LANE_TYPE_WALKING,
		mapv2.LaneType_LANE_TYPE_RAIL_TRANSIT:
	default:
		log.Panicf("bad type %v for lane %d", l.typ, l.id)
	}
	return l
}

// initWithManager 在管理器初始化后建立Lane的连接关系
// 功能：根据初始化数据建立前驱、后继、冲突点等连接关系
// 参数：laneManager-车道管理器
// 说明：建立车道间的拓扑关系，路口内车道的唯一前驱/后继在此确定
func (l *Lane) initWithManager(laneManager entity.ILaneManager) {
	for _, conn := range l.initPredecessors {
		lane := laneManager.Get(conn.Id)
		l.predecessors[conn.Id] = entity.Connection{Lane: lane, Type: conn.Type}
	}
	if len(l.predecessors) == 1 {
		for _, conn := range l.predecessors {
			l.uniquePredecessor = conn.Lane
			break
		}
	}
	for _, conn := range l.initSuccessors {
		lane := laneManager.Get(conn.Id)
		l.successors[conn.Id] = entity.Connection{Lane: lane, Type: conn.Type}
	}
	if len(l.successors) == 1 {
		for _, conn := range l.successors {
			l.uniqueSuccessor = conn.Lane
			break
		}
	}
	for _, overlap := range l.initOverlaps {
		lane := laneManager.Get(overlap.Other.LaneId)
		l.overlaps[overlap.Self.S] = entity.Overlap{
			Other:     lane,
			OtherS:    overlap.Other.S,
			SelfFirst: overlap.SelfFirst,
		}
	}
	l.initPredecessors = nil
	l.initSuccessors = nil
	l.initOverlaps = nil
}

// 数据初始化

// SetParentRoadWhenInit 设置lane所在road与偏移量
// 功能：在初始化阶段设置Lane所属的道路和偏移量
// 参数：parent-所属道路，offset-在道路中的偏移量
// 说明：设置后清除junction关联，更新parentID
func (l *Lane) SetParentRoadWhenInit(parent entity.IRoad, offset int) {
	l.parentRoad = parent
	l.offsetInRoad = offset
	l.parentJunction = nil
	l.parentID = parent.ID()
}

// SetParentJunctionWhenInit 设置lane所在junction
// 功能：在初始化阶段设置Lane所属的路口
// 参数：parent-所属路口
// 说明：设置后清除道路关联，更新parentID
func (l *Lane) SetParentJunctionWhenInit(parent entity.IJunction) {
	l.parentJunction = parent
	l.parentRoad = nil
	l.parentID = parent.ID()
}

// 静态数据

func (l *Lane) String() string {
	return fmt.Sprintf("Lane %d", l.id)
}

// 获取Lane ID
func (l *Lane) ID() int32 {
	if l == nil {
		return -1
	}
	return l.id
}

// 获取Lane长度
func (l *Lane) Length() float64 {
	return l.length
}

// 获取Lane宽度
func (l *Lane) Width() float64 {
	return l.width
}

// 获取Lane类型
func (l *Lane) Type() mapv2.LaneType {
	return l.typ
}

// 获取Lane转向类型
func (l *Lane) Turn() mapv2.LaneTurn {
	return l.turn
}

// 获取Lane的父对象(road/junction)的ID
func (l *Lane) ParentID() int32 {
	return l.parentID
}

// Road Lane在Road中的偏移量，最左侧为0，往右侧递增
func (l *Lane) OffsetInRoad() int {
	if l.parentRoad == nil {
		log.Panicf("Lane %d: Not in road", l.id)
	}
	return l.offsetInRoad
}

// 获取Lane的所有后继Lane与连接关系
func (l *Lane) Successors() map[int32]entity.Connection {
	return l.successors
}

// 获取Lane的所有前驱Lane与连接关系
func (l *Lane) Predecessors() map[int32]entity.Connection {
	return l.predecessors
}

// 查询唯一前驱，仅限于路口内车道
func (l *Lane) UniquePredecessor() (entity.ILane, error) {
	if l.parentJunction == nil {
		return nil, fmt.Errorf("Lane %d: Not in junction", l.id)
	}
	if l.uniquePredecessor == nil {
		return nil, fmt.Errorf("Lane %d: Predecessor is not unique", l.id)
	}
	return l.uniquePredecessor, nil
}

// 查询唯一后继，仅限于路口内车道
func (l *Lane) UniqueSuccessor() (entity.ILane, error) {
	if l.parentJunction == nil {
		return nil, fmt.Errorf("Lane %d: Not in junction", l.id)
	}
	if l.uniqueSuccessor == nil {
		return nil, fmt.Errorf("Lane %d: Successor is not unique", l.id)
	}
	return l.uniqueSuccessor, nil
}

// IsRightTurnDrivingLane 检查是否是右转行车道
// 功能：判断车道是否为右转专用行车道
// 返回：true表示是右转行车道，false表示不是
func (l *Lane) IsRightTurnDrivingLane() bool {
	return l.typ == mapv2.LaneType_LANE_TYPE_DRIVING && l.turn == mapv2.LaneTurn_LANE_TURN_RIGHT
}

// 获取Lane的冲突点数据集合
func (l *Lane) Overlaps() map[float64]entity.Overlap {
	return l.overlaps
}

// 获取Lane所在的Road
func (l *Lane) ParentRoad() entity.IRoad {
	return l.parentRoad
}

// 获取Lane所在的Junction
func (l *Lane) ParentJunction() entity.IJunction {
	return l.parentJunction
}

// 检查Lane是否为Road Lane
func (l *Lane) InRoad() bool {
	return l.parentRoad != nil
}

// 检查Lane是否为Junction Lane
func (l *Lane) InJunction() bool {
	return l.parentJunction != nil
}

// 获取Lane的中心线
func (l *Lane) CenterLine() []geometry.Point {
	return l.line
}

// 获取Lane的中心线长度
func (l *Lane) CenterLineLengths() []float64 {
	return l.lineLengths
}

// 信号灯

// 获取信号灯状态
func (l *Lane) Light() (mapv2.LightState, float64, float64) {
	return l.lightState, l.lightStateTotalTime, l.lightStateRemainingTime
}

// 设置信号灯状态
func (l *Lane) SetLight(state mapv2.LightState, totalTime float64, remainingTime float64) {
	l.lightState = state
	l.lightStateTotalTime = totalTime
	l.lightStateRemainingTime = remainingTime
}

// 检查是否是人行道
func (l *Lane) IsWalkLane() bool {
	return l.Type() == mapv2.LaneType_LANE_TYPE_WALKING
}

// 路况

// 获取车道限速
func (l *Lane) MaxV() float64 {
	return l.maxV
}

// 设置车道限速，立即生效
func (l *Lane) SetMaxV(v float64) {
	l.maxV = v
}

// 根据本车道s坐标计算切向角度
func (l *Lane) GetDirectionByS(s float64) (direction geometry.PolylineDirection) {
	if s < l.lineLengths[0] || s > l.lineLengths[len(l.lineLengths)-1] {
		log.Debugf("get direction with s %v out of range{%v,%v}",
			s, l.lineLengths[0], l.lineLengths[len(l.lineLengths)-1])
		s = lo.Clamp(s, l.lineLengths[0], l.lineLengths[len(l.lineLengths)-1])
	}
	if i := sort.SearchFloat64s(l.lineLengths, s); i == 0 {
		direction = l.lineDirections[0]
	} else {
		direction = l.lineDirections[i-1]
	}
	return
}

// 将当前车道s坐标转换为xy(z)坐标
func (l *Lane) GetPositionByS(s float64) (pos geometry.Point) {
	if s < l.lineLengths[0] || s > l.lineLengths[len(l.lineLengths)-1] {
		log.Debugf("get position with s %v out of range{%v,%v}",
			s, l.lineLengths[0], l.lineLengths[len(l.lineLengths)-1])
		s = lo.Clamp(s, l.lineLengths[0], l.lineLengths[len(l.lineLengths)-1])
	}
	if i := sort.SearchFloat64s(l.lineLengths, s); i == 0 {
		pos = l.line[0]
	} else {
		sHigh, sLow := l.lineLengths[i], l.lineLengths[i-1]
		k := (s - sLow) / (sHigh - sLow)
		if k < 0 || k > 1 {
			log.Panicf("lane: GetPositionByS(), bad k %v due to pos %v. sHigh=%f, sLow=%f, s=%f", k, pos, sHigh, sLow, s)
		}
		pos = geometry.Blend(l.line[i-1], l.line[i], k)
	}
	return
}

// 检查车道是否不能通行（不是绿灯）
func (l *Lane) IsNoEntry() bool {
	return l.InJunction() && l.lightState != mapv2.LightState_LIGHT_STATE_GREEN
}
