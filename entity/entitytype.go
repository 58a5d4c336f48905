package entity

import (
	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// Lane连接关系
type Connection struct {
	Lane ILane                    // 连接到的Lane
	Type mapv2.LaneConnectionType // 连接类型
}

// Lane冲突点
type Overlap struct {
	Other     ILane   // 冲突Lane
	OtherS    float64 // 冲突车道的S坐标
	SelfFirst bool    // 是否本Lane优先
}

// entity/lane/lane.go的依赖倒置
type ILane interface {
	ILaneTrafficLightSetter

	// 初始化

	SetParentRoadWhenInit(parent IRoad, offset int) // 设置lane所在road的指针与偏移量
	SetParentJunctionWhenInit(parent IJunction)     // 设置lane所在junction

	// Print

	String() string

	// getter

	ID() int32            // 获取Lane ID
	Length() float64      // 获取Lane长度
	Width() float64       // 获取Lane宽度
	Type() mapv2.LaneType // 获取Lane类型
	Turn() mapv2.LaneTurn // 获取Lane转向类型
	ParentID() int32      // 获取Lane的父对象(road/junction)的ID
	OffsetInRoad() int    // Road Lane在Road中的偏移量，最左侧为0，往右侧递增

	Predecessors() map[int32]Connection // 获取Lane的所有前驱Lane与连接关系
	Successors() map[int32]Connection   // 获取Lane的所有后继Lane与连接关系
	// 查询唯一前驱，仅限于路口内车道
	UniquePredecessor() (ILane, error)
	// 查询唯一后继，仅限于路口内车道
	UniqueSuccessor() (ILane, error)
	Overlaps() map[float64]Overlap // 获取Lane上的冲突点列表

	CenterLine() []geometry.Point                         // 获取Lane的中心线
	CenterLineLengths() []float64                         // 获取Lane的中心线长度
	GetPositionByS(s float64) geometry.Point              // 将当前车道s坐标转换为xy坐标
	GetDirectionByS(s float64) geometry.PolylineDirection // 根据本车道s坐标计算切向角度
	InRoad() bool                                         // 检查Lane是否为Road Lane
	InJunction() bool                                     // 检查Lane是否为Junction Lane
	IsNoEntry() bool                                      // 检查车道是否不能通行（不是绿灯）

	// 车道状态

	MaxV() float64                                                             // 获取车道限速
	Light() (state mapv2.LightState, totalTime float64, remainingTime float64) // 获取信号灯状态

	// 所在道路/路口

	ParentRoad() IRoad         // 获取Lane所在的Road
	ParentJunction() IJunction // 获取Lane所在的Junction

	// setter

	SetMaxV(v float64) // 设置车道限速
}

// 车道的信控接口
type ILaneTrafficLightSetter interface {
	SetLight(state mapv2.LightState, totalTime float64, remainingTime float64) // 设置信号灯状态
	IsWalkLane() bool                                                          // 检查是否是人行道
	IsRightTurnDrivingLane() bool                                              // 检查是否是右转行车道
}

// entity/road/road.go的依赖倒置
type IRoad interface {
	String() string

	ID() int32                     // 获取Road ID
	Name() string                  // 获取Road名称
	Lanes() map[int32]ILane        // 获取Road的所有Lane(ID -> Lane)
	CenterLine() []geometry.Point  // 获取Road的代表中心线（取居中行车道）
	DrivingPredecessor() IJunction // 获取前驱Junction
	DrivingSuccessor() IJunction   // 获取后继Junction

	LanesInto(junctionID int32) []ILane  // 获取进入指定路口的车道（按从左到右排序）
	LanesOutOf(junctionID int32) []ILane // 获取从指定路口离开的车道（按从左到右排序）

	MaxV() float64 // 获取道路限速
}

// entity/junction/junction.go的依赖倒置
type IJunction interface {
	ID() int32              // 获取Junction ID
	Lanes() map[int32]ILane // 获取Junction内的所有车道（Lane ID -> Lane）
	HasTrafficLight() bool  // 判断是否有信号灯
}
