package trafficlight

import (
	"fmt"

	"git.fiblab.net/general/common/v2/mathutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/signalet-oss/entity"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/signal"
)

// planTlRuntime 固定方案信号灯运行时数据结构
// 功能：存储信号方案的运行时状态，包括方案、相位索引、时间控制等
type planTlRuntime struct {
	plan         *signal.Plan
	tlStep       int32
	tlTotalTime  float64
	tlRemainingT float64
}

// fixedPlanTrafficLight 固定方案信号灯控制器
// 功能：按照信号方案的相位顺序和时长循环切换，把各运动组的
// 通行权写入路口车道的信号灯状态
type fixedPlanTrafficLight struct {
	ctx entity.ITaskContext

	JunctionID    int32                            // 所属junction ID
	lanes         []entity.ILaneTrafficLightSetter // 车道数据
	laneMovements []signal.MovementID              // 各车道对应的运动（无运动为NoMovement）

	laneGroups       []signal.GroupID // 各车道对应的运动组，方案设置时重算
	laneHasGroup     []bool
	timeBeforeChange [][]float64    // 下一次信号灯变化时间（相位切换时不一定所有的信号灯都变）
	snapshot         planTlRuntime  // snapshot，用于保存输出的数据
	runtime          planTlRuntime  // 运行时数据
	buffer           *planTlRuntime // 数据buffer，用于交互式接口写入(optional)
	ok               bool           // 信号灯状态，true为开启，false为关闭
	okBuffer         bool           // 信号灯状态buffer，用于交互式接口写入
}

// NewFixedPlanTrafficLight 创建固定方案信号灯控制器
// 功能：初始化控制器，设置基础参数和车道到运动的映射
// 参数：ctx-任务上下文，junctionID-路口ID，lanes-车道列表，laneMovements-各车道对应的运动
// 返回：初始化完成的信号灯控制器实例
func NewFixedPlanTrafficLight(
	ctx entity.ITaskContext,
	junctionID int32,
	lanes []entity.ILaneTrafficLightSetter,
	laneMovements []signal.MovementID,
) *fixedPlanTrafficLight {
	return &fixedPlanTrafficLight{
		ctx:           ctx,
		JunctionID:    junctionID,
		lanes:         lanes,
		laneMovements: laneMovements,
		runtime:       planTlRuntime{},
		ok:            true,
		okBuffer:      true,
	}
}

// stateOfLane 车道在指定相位下的信号灯状态
// 说明：保护-绿灯，让行-黄灯，禁行-红灯；不属于任何运动组的车道恒为绿灯
func (l *fixedPlanTrafficLight) stateOfLane(laneIndex int, phase *signal.Phase) mapv2.LightState {
	if !l.laneHasGroup[laneIndex] {
		return mapv2.LightState_LIGHT_STATE_GREEN
	}
	switch phase.PriorityOfGroup(l.laneGroups[laneIndex]) {
	case signal.PriorityProtected:
		return mapv2.LightState_LIGHT_STATE_GREEN
	case signal.PriorityYield:
		return mapv2.LightState_LIGHT_STATE_YELLOW
	default:
		return mapv2.LightState_LIGHT_STATE_RED
	}
}

// Prepare 准备阶段，处理信号灯的准备工作
// 功能：更新信号灯状态，将当前相位信息写入车道，处理全绿灯和固定方案情况
// 说明：如果没有信号方案或信号灯关闭，则保持全绿灯状态
func (l *fixedPlanTrafficLight) Prepare() {
	// 更新信号灯状态
	l.ok = l.okBuffer
	// 写入snapshot
	l.snapshot = l.runtime
	// 写入lane中数据
	if l.snapshot.plan == nil || !l.ok {
		for _, lane := range l.lanes {
			lane.SetLight(mapv2.LightState_LIGHT_STATE_GREEN, mathutil.INF, mathutil.INF)
		}
	} else {
		p := l.snapshot.plan.Phases[l.snapshot.tlStep]
		for i, lane := range l.lanes {
			lane.SetLight(
				l.stateOfLane(i, p),
				l.snapshot.tlTotalTime+l.timeBeforeChange[i][l.snapshot.tlStep],  // total time
				l.snapshot.tlRemainingT+l.timeBeforeChange[i][l.snapshot.tlStep], // remaining time
			)
		}
	}
}

// Update 更新阶段，执行固定方案信号灯的核心逻辑
// 功能：按照信号方案进行相位切换，处理时间计算
// 参数：dt-时间步长
// 算法说明：
// 1. 处理buffer中的新方案设置，重算车道到运动组的映射
// 2. 计算每个车道在后续相位中的状态变化时间
// 3. 根据剩余时间进行相位切换
func (l *fixedPlanTrafficLight) Update(dt float64) {
	if l.buffer != nil {
		l.runtime = *l.buffer
		l.buffer = nil
		// 初始化步骤
		if l.runtime.plan != nil {
			plan := l.runtime.plan
			numPhases := len(plan.Phases)
			numLanes := len(l.lanes)

			// 重算车道到运动组的映射
			l.laneGroups = make([]signal.GroupID, numLanes)
			l.laneHasGroup = make([]bool, numLanes)
			for i, mid := range l.laneMovements {
				if mid == signal.NoMovement {
					continue
				}
				if g, ok := plan.GroupOfMovement(mid); ok {
					l.laneGroups[i] = g
					l.laneHasGroup[i] = true
				}
			}

			l.timeBeforeChange = make([][]float64, 0, numLanes)
			for laneIndex := 0; laneIndex < numLanes; laneIndex++ {
				time := make([]float64, numPhases)

				// 检查所有状态是否相同
				allTheSame := true
				lastState := l.stateOfLane(laneIndex, plan.Phases[numPhases-1])

				// 遍历所有相位（从后往前），计算每个相位的持续时间
				for phaseIndex := numPhases - 2; phaseIndex >= 0; phaseIndex-- {
					state := l.stateOfLane(laneIndex, plan.Phases[phaseIndex+1])
					if state == lastState {
						time[phaseIndex] = time[phaseIndex+1] + plan.Phases[phaseIndex+1].Duration
					} else {
						allTheSame = false
					}
					lastState = state
				}

				// 如果所有状态相同，则设置为无限时间
				if allTheSame {
					for idx := range time {
						time[idx] = mathutil.INF
					}
				} else {
					// 调整时间以考虑第一个相位和最后一个相位的相邻关系
					t0 := time[0] + plan.Phases[0].Duration
					lastState = l.stateOfLane(laneIndex, plan.Phases[numPhases-1])

					// 确保第一个相位和最后一个相位的状态一致时，更新时间
					if lastState == l.stateOfLane(laneIndex, plan.Phases[0]) {
						for phaseIndex := numPhases - 1; phaseIndex >= 0; phaseIndex-- {
							if lastState != l.stateOfLane(laneIndex, plan.Phases[phaseIndex]) {
								break
							}
							time[phaseIndex] += t0
						}
					}
				}

				l.timeBeforeChange = append(l.timeBeforeChange, time)
			}
		}
	}
	if l.runtime.plan == nil || !l.ok {
		return
	}

	l.runtime.tlRemainingT -= dt
	// 切换相位
	if l.runtime.tlRemainingT <= 0 {
		l.runtime.tlRemainingT = 0
		l.runtime.tlTotalTime = 0
		// 正常切换相位逻辑
		for {
			l.runtime.tlStep = (l.runtime.tlStep + 1) % int32(len(l.runtime.plan.Phases))
			l.runtime.tlRemainingT += l.runtime.plan.Phases[l.runtime.tlStep].Duration
			if l.runtime.tlRemainingT > 0 {
				l.runtime.tlTotalTime = l.runtime.tlRemainingT
				break
			}
		}
	}
}

// Plan 获取当前信号方案
// 功能：返回当前正在执行的信号方案
// 返回：当前信号方案，如果没有方案则返回nil
func (l *fixedPlanTrafficLight) Plan() *signal.Plan {
	return l.snapshot.plan
}

// Set 设置信号方案
// 功能：设置新的信号方案，先校验方案的有效性
// 参数：plan-信号方案
// 返回：设置结果，如果方案无效则返回错误
// 说明：初始相位按方案的配时函数与当前仿真时刻确定；
// 方案设置会延迟到下一个更新周期生效
func (l *fixedPlanTrafficLight) Set(plan *signal.Plan) error {
	if plan.ID != l.JunctionID {
		return fmt.Errorf("set junction %d with wrong signal plan for junction %d", l.JunctionID, plan.ID)
	}
	if l.lanes == nil {
		return fmt.Errorf("no lane data in junction %d", l.JunctionID)
	}
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("invalid signal plan for junction %d: %w", l.JunctionID, err)
	}

	now := l.ctx.Clock().T
	phaseIndex, phase, remaining := plan.CurrentPhaseAndRemainingTime(now)
	l.buffer = &planTlRuntime{
		plan:         plan,
		tlStep:       int32(phaseIndex),
		tlTotalTime:  phase.Duration,
		tlRemainingT: remaining,
	}
	return nil
}

// Unset 取消信号方案
// 功能：取消当前信号方案，使信号灯变为全绿灯状态
// 说明：取消操作会延迟到下一个更新周期生效
func (l *fixedPlanTrafficLight) Unset() {
	l.buffer = &planTlRuntime{plan: nil, tlStep: 0, tlRemainingT: 0}
}

// SetPhase 设置信号灯相位
// 功能：设置当前相位索引和剩余时间
// 参数：offset-相位偏移，remainingT-剩余时间
// 说明：同时改写方案的相位偏移，使纯函数式配时与切换状态保持一致；
// 相位设置会延迟到下一个更新周期生效
func (l *fixedPlanTrafficLight) SetPhase(offset int32, remainingT float64) {
	plan := l.runtime.plan
	if l.buffer != nil && l.buffer.plan != nil {
		plan = l.buffer.plan
	}
	if plan == nil { // 当前没有信控方案
		return
	}
	if int(offset) >= len(plan.Phases) {
		log.Warnf("junction %d: phase index %d out of range, ignored", l.JunctionID, offset)
		return
	}
	plan = plan.Clone()
	plan.Offset = plan.OffsetForPhase(l.ctx.Clock().T, int(offset), remainingT)
	l.buffer = &planTlRuntime{
		plan:         plan,
		tlStep:       offset,
		tlTotalTime:  plan.Phases[offset].Duration,
		tlRemainingT: remainingT,
	}
}

// SetOk 设置信号灯状态
// 功能：设置信号灯的开关状态
// 参数：ok-信号灯状态，true表示正常工作，false表示失效（全绿灯）
func (l *fixedPlanTrafficLight) SetOk(ok bool) {
	l.okBuffer = ok
}

// Step 获取当前相位索引
func (l *fixedPlanTrafficLight) Step() int32 {
	return l.snapshot.tlStep
}

// RemainingTime 获取当前相位剩余时间
func (l *fixedPlanTrafficLight) RemainingTime() float64 {
	return l.snapshot.tlRemainingT
}

// Ok 获取信号灯状态
// 返回：true表示正常工作，false表示失效
func (l *fixedPlanTrafficLight) Ok() bool {
	return l.ok
}
