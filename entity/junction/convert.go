package junction

import (
	"fmt"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/signal"
)

// 信号方案与按车道状态表达的信控程序之间的转换。
// 映射规则：保护-绿灯，让行-黄灯，禁行-红灯；
// 不属于任何运动组的车道（如共享人行道转角）恒为绿灯。

// stateOfPriority 通行权到车道信号灯状态的映射
func stateOfPriority(pri signal.Priority) mapv2.LightState {
	switch pri {
	case signal.PriorityProtected:
		return mapv2.LightState_LIGHT_STATE_GREEN
	case signal.PriorityYield:
		return mapv2.LightState_LIGHT_STATE_YELLOW
	default:
		return mapv2.LightState_LIGHT_STATE_RED
	}
}

// priorityOfState 车道信号灯状态到通行权的映射
func priorityOfState(state mapv2.LightState) (signal.Priority, error) {
	switch state {
	case mapv2.LightState_LIGHT_STATE_GREEN:
		return signal.PriorityProtected, nil
	case mapv2.LightState_LIGHT_STATE_YELLOW:
		return signal.PriorityYield, nil
	case mapv2.LightState_LIGHT_STATE_RED:
		return signal.PriorityBanned, nil
	default:
		return signal.PriorityBanned, fmt.Errorf("unsupported light state %v", state)
	}
}

// planToPb 将信号方案转换为按车道状态表达的信控程序
// 功能：对每个相位，把车道所属运动组的通行权映射为车道信号灯状态
// 参数：plan-信号方案
// 返回：信控程序，车道状态顺序与路口车道ID列表一致
func (j *Junction) planToPb(plan *signal.Plan) *mapv2.TrafficLight {
	phases := make([]*mapv2.Phase, 0, len(plan.Phases))
	for _, phase := range plan.Phases {
		states := make([]mapv2.LightState, len(j.laneIDs))
		for i, laneID := range j.laneIDs {
			states[i] = mapv2.LightState_LIGHT_STATE_GREEN
			id, ok := j.movementByLane[laneID]
			if !ok {
				continue
			}
			g, ok := plan.GroupOfMovement(id)
			if !ok {
				continue
			}
			states[i] = stateOfPriority(phase.PriorityOfGroup(g))
		}
		phases = append(phases, &mapv2.Phase{
			Duration: phase.Duration,
			States:   states,
		})
	}
	return &mapv2.TrafficLight{
		JunctionId: j.id,
		Phases:     phases,
	}
}

// planFromPb 将按车道状态表达的信控程序转换为信号方案
// 功能：基于当前路口的运动组快照重建相位结构
// 参数：tl-信控程序，opts-构建选项
// 返回：信号方案和错误信息
// 说明：同一运动组覆盖的多条车道在每个相位内状态必须一致；
// 转换结果未经校验，由控制器在设置时校验
func (j *Junction) planFromPb(tl *mapv2.TrafficLight, opts signal.Options) (*signal.Plan, error) {
	if tl.JunctionId != j.id {
		return nil, fmt.Errorf("junction %d got traffic light program for junction %d", j.id, tl.JunctionId)
	}
	groups, err := signal.GroupMovements(j.id, j.movements)
	if err != nil {
		return nil, err
	}
	groupOf := make(map[signal.MovementID]signal.GroupID)
	for gid, g := range groups {
		for _, mid := range g.Members {
			groupOf[mid] = gid
		}
	}

	phases := make([]*signal.Phase, 0, len(tl.Phases))
	for phaseIndex, pb := range tl.Phases {
		if len(pb.States) != len(j.laneIDs) {
			return nil, fmt.Errorf("number of lanes %d and traffic light states %d does not match",
				len(j.laneIDs), len(pb.States))
		}
		duration := pb.Duration
		if duration <= 0 {
			duration = opts.PhaseDuration
		}
		phase := signal.NewPhase(duration)
		want := make(map[signal.GroupID]signal.Priority)
		for i, laneID := range j.laneIDs {
			mid, ok := j.movementByLane[laneID]
			if !ok {
				continue
			}
			gid, ok := groupOf[mid]
			if !ok {
				continue
			}
			pri, err := priorityOfState(pb.States[i])
			if err != nil {
				return nil, fmt.Errorf("phase %d lane %d: %w", phaseIndex, laneID, err)
			}
			if prev, seen := want[gid]; seen && prev != pri {
				return nil, fmt.Errorf("phase %d: inconsistent states within movement group %v", phaseIndex, gid)
			}
			want[gid] = pri
		}
		for _, gid := range signal.SortedGroupIDs(groups) {
			if pri, ok := want[gid]; ok {
				phase.EditGroup(groups[gid], pri)
			}
		}
		phases = append(phases, phase)
	}
	return signal.NewPlan(j.id, phases, 0, groups), nil
}
