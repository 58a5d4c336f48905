package entity

import (
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"git.fiblab.net/sim/syncer/v3"
)

// Manager依赖倒置

// entity/lane/manager.go的依赖倒置
type ILaneManager interface {
	Init(pbs []*mapv2.Lane) // 初始化

	// 输入Lane ID，查找Lane，如果不存在则panic
	Get(id int32) ILane
	// 输入Lane ID，查找Lane，如果不存在则返回error
	GetOrError(id int32) (ILane, error)
}

// entity/road/manager.go的依赖倒置
type IRoadManager interface {
	Init(pbs []*mapv2.Road, laneManager ILaneManager)   // 初始化
	InitAfterJunction(junctionManager IJunctionManager) // 初始化所有Road的Junction关系

	// 输入Road ID，查找Road，如果不存在则panic
	Get(id int32) IRoad
	// 输入Road ID，查找Road，如果不存在则返回error
	GetOrError(id int32) (IRoad, error)
}

// entity/junction/manager.go的依赖倒置
type IJunctionManager interface {
	Init(pbs []*mapv2.Junction, laneManager ILaneManager, roadManager IRoadManager) // 初始化
	// 初始化所有路口的信号方案，依赖Road的前驱后继路口关系，
	// 必须在IRoadManager.InitAfterJunction之后调用
	InitSignals()
	Register(sidecar *syncer.Sidecar) // 注册到Sidecar

	// 输入Junction ID，查找Junction，如果不存在则panic
	Get(id int32) IJunction
	// 输入Junction ID，查找Junction，如果不存在则返回error
	GetOrError(id int32) (IJunction, error)

	Prepare()          // 准备阶段
	Update(dt float64) // 更新阶段
}
