package junction

import (
	"errors"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/signalet-oss/entity"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/signal"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/signalet-oss/utils/randengine"
)

var (
	ErrDisabledTrafficLight = errors.New("traffic light is disabled for the junction")
)

type Junction struct {
	ctx entity.ITaskContext

	id             int32
	laneIDs        []int32
	trafficLight   ITrafficLight              // 信号灯模块
	lanes          map[int32]entity.ILane     // 车道id->车道指针映射表
	movements      []*signal.Movement         // 路口内运动集合
	movementByLane map[int32]signal.MovementID // 路口车道id->运动ID
	roadIDs        []int32                    // 相连道路ID，升序
	sortedRoadIDs  []int32                    // 相连道路ID，按进入路口的方位角排序
	fixedProgram   *mapv2.TrafficLight

	generator *randengine.Engine
}

// newJunction 创建并初始化一个新的Junction实例
// 功能：根据基础数据创建Junction对象，初始化车道映射
// 参数：ctx-任务上下文，base-基础Junction数据，laneManager-车道管理器
// 返回：初始化完成的Junction实例
// 说明：运动推导与信号方案构建在initSignals中完成，
// 需要等待Road的前驱后继路口关系建立
func newJunction(
	ctx entity.ITaskContext,
	base *mapv2.Junction,
	laneManager entity.ILaneManager,
	_ entity.IRoadManager,
) *Junction {
	j := &Junction{
		ctx:            ctx,
		id:             base.Id,
		laneIDs:        base.LaneIds,
		lanes:          make(map[int32]entity.ILane),
		movements:      make([]*signal.Movement, 0),
		movementByLane: make(map[int32]signal.MovementID),
		fixedProgram:   base.FixedProgram,
		generator:      randengine.New(uint64(base.Id)),
	}

	for _, laneID := range j.laneIDs {
		lane := laneManager.Get(laneID)
		lane.SetParentJunctionWhenInit(j)
		j.lanes[laneID] = lane
	}

	return j
}

// buildMovements 从路口车道推导运动集合
// 功能：每条有唯一前驱与后继的路口车道产生一个运动，
// 并从车道冲突点数据填充已知几何冲突集合
// 算法说明：
// 1. 人行道车道：前驱后继在同一道路上为人行横道，否则为共享人行道转角
// 2. 行车道：由前驱末端与后继首端的切向角度差确定转向类型
// 3. 同一道路上的其他横道记录为联动横道
func (j *Junction) buildMovements() {
	j.movements = j.movements[:0]
	j.movementByLane = make(map[int32]signal.MovementID)
	byID := make(map[signal.MovementID]*signal.Movement)
	crosswalksByRoad := make(map[int32][]signal.MovementID)
	for _, laneID := range j.laneIDs {
		l := j.lanes[laneID]
		pre, err := l.UniquePredecessor()
		if err != nil {
			log.Warnf("junction %d lane %d has no movement: %v", j.id, laneID, err)
			continue
		}
		suc, err := l.UniqueSuccessor()
		if err != nil {
			log.Warnf("junction %d lane %d has no movement: %v", j.id, laneID, err)
			continue
		}
		preRoad, sucRoad := pre.ParentRoad(), suc.ParentRoad()
		if preRoad == nil || sucRoad == nil {
			log.Warnf("junction %d lane %d connects to another junction lane, skipped", j.id, laneID)
			continue
		}
		m := &signal.Movement{
			ID:            signal.MovementID{Junction: j.id, Src: pre.ID(), Dst: suc.ID()},
			FromRoad:      preRoad.ID(),
			ToRoad:        sucRoad.ID(),
			Geom:          l.CenterLine(),
			KnownOverlaps: make(map[signal.MovementID]struct{}),
		}
		if _, dup := byID[m.ID]; dup {
			j.movementByLane[laneID] = m.ID
			continue
		}
		if l.IsWalkLane() {
			if m.FromRoad == m.ToRoad {
				m.Kind = signal.KindCrosswalk
				crosswalksByRoad[m.FromRoad] = append(crosswalksByRoad[m.FromRoad], m.ID)
			} else {
				m.Kind = signal.KindSharedSidewalkCorner
			}
		} else {
			entry := pre.GetDirectionByS(pre.Length()).Direction
			exit := suc.GetDirectionByS(0).Direction
			m.Kind = signal.KindFromAngles(entry, exit)
		}
		j.movements = append(j.movements, m)
		j.movementByLane[laneID] = m.ID
		byID[m.ID] = m
	}
	// 第二遍：冲突点数据与联动横道
	for _, laneID := range j.laneIDs {
		id, ok := j.movementByLane[laneID]
		if !ok {
			continue
		}
		m := byID[id]
		for _, ov := range j.lanes[laneID].Overlaps() {
			if otherID, ok := j.movementByLane[ov.Other.ID()]; ok && otherID != m.ID {
				m.KnownOverlaps[otherID] = struct{}{}
			}
		}
		if m.Kind == signal.KindCrosswalk {
			m.OtherCrosswalks = m.OtherCrosswalks[:0]
			for _, other := range crosswalksByRoad[m.FromRoad] {
				if other != m.ID {
					m.OtherCrosswalks = append(m.OtherCrosswalks, other)
				}
			}
		}
	}
}

// computeRoads 计算相连道路集合及其按进入路口方位角的排序
// 说明：道路驶入路口时取入口车道末端方向，仅驶出时取出口车道
// 首端方向的反向；方位角相同时按道路ID保证确定性
func (j *Junction) computeRoads() {
	roadSet := make(map[int32]struct{})
	for _, m := range j.movements {
		roadSet[m.FromRoad] = struct{}{}
		roadSet[m.ToRoad] = struct{}{}
	}
	j.roadIDs = lo.Keys(roadSet)
	sort.Slice(j.roadIDs, func(a, b int) bool { return j.roadIDs[a] < j.roadIDs[b] })

	angles := make(map[int32]float64, len(j.roadIDs))
	for _, roadID := range j.roadIDs {
		r := j.ctx.RoadManager().Get(roadID)
		var angle float64
		if lanesIn := r.LanesInto(j.id); len(lanesIn) > 0 {
			l := lanesIn[len(lanesIn)/2]
			angle = l.GetDirectionByS(l.Length()).Direction
		} else if lanesOut := r.LanesOutOf(j.id); len(lanesOut) > 0 {
			l := lanesOut[len(lanesOut)/2]
			angle = l.GetDirectionByS(0).Direction + math.Pi
		}
		angle = math.Mod(angle, 2*math.Pi)
		if angle < 0 {
			angle += 2 * math.Pi
		}
		angles[roadID] = angle
	}
	j.sortedRoadIDs = make([]int32, len(j.roadIDs))
	copy(j.sortedRoadIDs, j.roadIDs)
	sort.SliceStable(j.sortedRoadIDs, func(a, b int) bool {
		ra, rb := j.sortedRoadIDs[a], j.sortedRoadIDs[b]
		if angles[ra] != angles[rb] {
			return angles[ra] < angles[rb]
		}
		return ra < rb
	})
}

// initSignals 推导运动并构建信号方案
// 功能：构建信号灯控制器，按配置选择固定程序或自动分配的方案
// 说明：依赖Road的前驱后继路口关系，必须在Road.initAfterJunction之后调用；
// 推导不出任何运动组的路口（如快速路汇流）保持全绿无信控
func (j *Junction) initSignals() {
	j.buildMovements()
	j.computeRoads()

	setters := make([]entity.ILaneTrafficLightSetter, len(j.laneIDs))
	laneMovements := make([]signal.MovementID, len(j.laneIDs))
	for i, laneID := range j.laneIDs {
		setters[i] = j.lanes[laneID]
		if id, ok := j.movementByLane[laneID]; ok {
			laneMovements[i] = id
		} else {
			laneMovements[i] = signal.NoMovement
		}
	}
	j.trafficLight = trafficlight.NewFixedPlanTrafficLight(j.ctx, j.id, setters, laneMovements)

	cfg := j.ctx.RuntimeConfig().C.Signal
	opts := j.signalOptions()

	if j.ctx.RuntimeConfig().C.PreferFixedLight && j.fixedProgram != nil && len(j.fixedProgram.Phases) > 0 {
		plan, err := j.planFromPb(j.fixedProgram, opts)
		if err != nil {
			log.Panicf("junction %d: convert fixed program error: %v", j.id, err)
		}
		if err := j.trafficLight.Set(plan); err != nil {
			log.Panicf("junction %d: set fixed program error: %v", j.id, err)
		}
		return
	}

	plan, err := signal.New(j, j.id, opts)
	if err != nil {
		if errors.Is(err, signal.ErrNoMovementGroups) {
			// 没有可分配的运动组（如边界或封闭路口），保持全绿
			log.Debugf("junction %d has no movement groups, left unsignalled", j.id)
			return
		}
		log.Panicf("junction %d: build signal plan error: %v", j.id, err)
	}
	if cfg.PedScramble {
		plan.ConvertToPedScramble(opts)
	}
	if cfg.RandomizeOffset {
		plan.Offset = plan.CycleLength() * j.generator.Float64()
	}
	if err := j.trafficLight.Set(plan); err != nil {
		log.Panicf("junction %d: set signal plan error: %v", j.id, err)
	}
}

// signalOptions 从运行配置读取信号方案构建选项
// 说明：初始化与RPC设置共用，保证配置的相位时长对两条路径一致生效
func (j *Junction) signalOptions() signal.Options {
	opts := signal.DefaultOptions()
	if d := j.ctx.RuntimeConfig().C.Signal.PhaseDuration; d > 0 {
		opts.PhaseDuration = d
	}
	return opts
}

// prepare 准备阶段，处理信号灯的准备工作
// 功能：执行信号灯的准备工作，处理各种写入缓冲区操作
func (j *Junction) prepare() {
	if j.trafficLight != nil {
		j.trafficLight.Prepare()
	}
}

// update 更新阶段，执行Junction的模拟逻辑
// 功能：执行信号灯的更新逻辑，更新信号灯状态
// 参数：dt-时间步长
func (j *Junction) update(dt float64) {
	if j.trafficLight != nil {
		j.trafficLight.Update(dt)
	}
}

// ID 获取Junction的唯一标识符
// 功能：返回Junction的ID，用于标识和查找特定的Junction
// 返回：Junction的ID，如果Junction为nil则返回-1
func (j *Junction) ID() int32 {
	if j == nil {
		return -1
	}
	return j.id
}

// Lanes 获取Junction内的所有车道映射
// 功能：返回Junction内所有车道的映射表，以车道ID为键
// 返回：车道ID到车道对象的映射
func (j *Junction) Lanes() map[int32]entity.ILane {
	return j.lanes
}

// HasTrafficLight 判断是否有信号灯
// 功能：检查当前Junction是否有可用的信号灯
// 返回：true表示有信号灯且正常工作，false表示没有信号灯或信号灯失效
func (j *Junction) HasTrafficLight() bool {
	return j.trafficLight != nil && j.trafficLight.Ok()
}

// SetTrafficLight 设置信号方案
// 功能：为Junction设置新的信号方案
// 参数：plan-信号方案
// 返回：设置结果，如果信号灯被禁用则返回错误
func (j *Junction) SetTrafficLight(plan *signal.Plan) error {
	if j.trafficLight == nil {
		// 信控被禁用，无法设置信号灯
		return ErrDisabledTrafficLight
	}
	return j.trafficLight.Set(plan)
}

// unsetTrafficLight 取消信号方案
// 功能：取消当前Junction的信号方案，使其变为全绿灯状态
// 返回：操作结果，如果信号灯被禁用则返回错误
func (j *Junction) unsetTrafficLight() error {
	if j.trafficLight == nil {
		return ErrDisabledTrafficLight
	}
	j.trafficLight.Unset()
	return nil
}

// setPhase 设置信号灯相位
// 功能：设置信号灯到指定的相位和剩余时间
// 参数：offset-相位偏移，remainingTime-剩余时间
// 返回：设置结果，如果信号灯被禁用则返回错误
func (j *Junction) setPhase(offset int32, remainingTime float64) error {
	if j.trafficLight == nil {
		return ErrDisabledTrafficLight
	}
	j.trafficLight.SetPhase(offset, remainingTime)
	return nil
}

// setStatus 设置信号灯状态
// 功能：设置信号灯的开关状态
// 参数：ok-信号灯状态，true表示正常工作，false表示失效（全绿灯）
// 返回：设置结果，如果信号灯被禁用则返回错误
func (j *Junction) setStatus(ok bool) error {
	if j.trafficLight == nil {
		return ErrDisabledTrafficLight
	}
	j.trafficLight.SetOk(ok)
	return nil
}

// 信号引擎的地图查询接口实现

// RoadsInJunction 与路口相连的所有道路ID
func (j *Junction) RoadsInJunction(junctionID int32) []int32 {
	return j.roadIDs
}

// RoadsSortedByIncomingAngle 按进入路口的方位角稳定排序的道路ID列表
func (j *Junction) RoadsSortedByIncomingAngle(junctionID int32) []int32 {
	return j.sortedRoadIDs
}

// MovementsInJunction 路口内的所有运动
func (j *Junction) MovementsInJunction(junctionID int32) []*signal.Movement {
	return j.movements
}

// IncomingLanes 道路在本路口的入口车道ID列表
func (j *Junction) IncomingLanes(roadID, junctionID int32) []int32 {
	return lo.Map(j.ctx.RoadManager().Get(roadID).LanesInto(junctionID),
		func(l entity.ILane, _ int) int32 { return l.ID() })
}

// OutgoingLanes 道路在本路口的出口车道ID列表
func (j *Junction) OutgoingLanes(roadID, junctionID int32) []int32 {
	return lo.Map(j.ctx.RoadManager().Get(roadID).LanesOutOf(junctionID),
		func(l entity.ILane, _ int) int32 { return l.ID() })
}

// RoadCenterLine 道路中心线
func (j *Junction) RoadCenterLine(roadID int32) []geometry.Point {
	return j.ctx.RoadManager().Get(roadID).CenterLine()
}

// LaneDirAndOffset 车道在道路中的方向与偏移
// 返回：车道是否指向本路口，车道在道路中的偏移（0为最左侧）
func (j *Junction) LaneDirAndOffset(roadID, laneID int32) (forward bool, offset int) {
	lane := j.ctx.LaneManager().Get(laneID)
	for _, suc := range lane.Successors() {
		if junc := suc.Lane.ParentJunction(); junc != nil && junc.ID() == j.id {
			forward = true
			break
		}
	}
	return forward, lane.OffsetInRoad()
}

// LaneWidth 车道宽度
func (j *Junction) LaneWidth(laneID int32) float64 {
	return j.ctx.LaneManager().Get(laneID).Width()
}
