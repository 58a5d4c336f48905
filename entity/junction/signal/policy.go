// 提供信号相位分配策略族：按固定优先级尝试多种启发式，
// 取第一个通过校验的结果，并暴露完整的候选列表供编辑器选择
package signal

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/signalet-oss/utils/container"
)

// Options 信号方案构建选项
// 说明：显式传入而非读取进程级全局状态
type Options struct {
	PhaseDuration float64 // 默认相位时长（秒）
}

// DefaultOptions 获取默认构建选项
func DefaultOptions() Options {
	return Options{PhaseDuration: 30}
}

// RankedPlan 带策略名的候选方案
type RankedPlan struct {
	Name string // 人类可读的策略名
	Plan *Plan
}

// New 为路口构建信号方案
// 功能：按固定优先级尝试全部策略，返回第一个通过校验的方案
// 返回：方案；路口没有任何运动组时返回错误（上游应跳过此类路口）
// 说明：只剩兜底策略可用时输出质量告警
func New(view MapView, junctionID int32, opts Options) (*Plan, error) {
	ranked, err := GetPossiblePolicies(view, junctionID, opts)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 2 {
		// 只有两个保证成功的兜底策略可用，信号质量会明显下降
		log.Warnf("falling back to %s for junction %d", ranked[0].Name, junctionID)
	}
	return ranked[0].Plan, nil
}

// GetPossiblePolicies 枚举路口全部可行的信号方案
// 功能：按优先级顺序运行所有策略，收集通过校验的候选；
// 末尾两项为始终可用且保证通过校验的兜底策略
// 返回：带策略名的候选列表；路口没有任何运动组时返回错误
func GetPossiblePolicies(view MapView, junctionID int32, opts Options) ([]RankedPlan, error) {
	groups, err := GroupMovements(junctionID, view.MovementsInJunction(junctionID))
	if err != nil {
		return nil, err
	}

	results := make([]RankedPlan, 0)
	if plan := fourWayFourPhase(view, junctionID, groups, opts); plan != nil {
		results = append(results, RankedPlan{Name: "four-phase", Plan: plan})
	}
	if plan := fourWayTwoPhase(view, junctionID, groups, opts); plan != nil {
		results = append(results, RankedPlan{Name: "two-phase", Plan: plan})
	}
	if plan := threeWay(view, junctionID, groups, opts); plan != nil {
		results = append(results, RankedPlan{Name: "three-phase", Plan: plan})
	}
	if plan := degenerate(view, junctionID, groups, opts); plan != nil {
		results = append(results, RankedPlan{Name: "degenerate (2 roads)", Plan: plan})
	}
	if plan := fourOneways(view, junctionID, groups, opts); plan != nil {
		results = append(results, RankedPlan{Name: "two-phase for 4 one-ways", Plan: plan})
	}
	if plan := phasePerRoad(view, junctionID, groups, opts); plan != nil {
		results = append(results, RankedPlan{Name: "phase per road", Plan: plan})
	}
	results = append(results, RankedPlan{
		Name: "arbitrary assignment",
		Plan: greedyAssignment(junctionID, groups, opts),
	})
	results = append(results, RankedPlan{
		Name: "all walk, then free-for-all yield",
		Plan: allWalkAllYield(junctionID, groups, opts),
	})
	return results, nil
}

// greedyAssignment 贪心分配（始终可用的兜底策略，质量优于全让行）
// 算法说明：
// 1. 按冲突度从大到小处理运动组（冲突最多的组最先安置，减少相位数）
// 2. 反复向当前相位加入与已接受保护组都不冲突的组；无可加入时关闭相位
// 3. 分配完成后扩张每个相位：把所有不产生保护-保护冲突的组补进相位
// 说明：校验必须通过，失败属于程序错误
func greedyAssignment(junctionID int32, groups map[GroupID]*Group, opts Options) *Plan {
	// 冲突度排序：小顶堆，负冲突数使冲突最多的组最先弹出
	queue := container.NewPriorityQueue[GroupID]()
	for _, g := range SortedGroupIDs(groups) {
		degree := 0
		for _, other := range SortedGroupIDs(groups) {
			if groups[g].ConflictsWith(groups[other]) {
				degree++
			}
		}
		queue.Push(g, -float64(degree))
	}
	queue.Heapify()
	remaining := make([]GroupID, 0, len(groups))
	for queue.Len() > 0 {
		g, _ := queue.HeapPop()
		remaining = append(remaining, g)
	}

	phases := make([]*Phase, 0)
	current := NewPhase(opts.PhaseDuration)
	for len(remaining) > 0 {
		idx := -1
		for i, g := range remaining {
			if current.CouldBeProtected(g, groups) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			current.Protected[remaining[idx]] = struct{}{}
			remaining = append(remaining[:idx], remaining[idx+1:]...)
		} else {
			if len(current.Protected) == 0 {
				log.Panicf("greedy assignment for junction %d made no progress", junctionID)
			}
			phases = append(phases, current)
			current = NewPhase(opts.PhaseDuration)
		}
	}
	if !current.empty() {
		phases = append(phases, current)
	}

	expandAllPhases(phases, groups)

	plan := NewPlan(junctionID, phases, 0, groups)
	if err := plan.Validate(); err != nil {
		log.Panicf("greedy assignment must validate: %v", err)
	}
	return plan
}

// degenerate 两路退化路口策略
// 说明：仅当恰好2条道路相交时可用。一个相位放行两条道路的直行；
// 任一道路为双向（在路口同时有出入车道）时追加一个人行横道保护相位
func degenerate(view MapView, junctionID int32, groups map[GroupID]*Group, opts Options) *Plan {
	roads := view.RoadsInJunction(junctionID)
	if len(roads) != 2 {
		return nil
	}
	r1, r2 := roads[0], roads[1]
	twoWay := func(r int32) bool {
		return len(view.IncomingLanes(r, junctionID)) > 0 && len(view.OutgoingLanes(r, junctionID)) > 0
	}
	specs := [][]phaseSpec{
		{{roads: []int32{r1, r2}, kind: KindStraight, protected: true}},
	}
	if twoWay(r1) || twoWay(r2) {
		specs = append(specs, []phaseSpec{
			{roads: []int32{r1, r2}, kind: KindCrosswalk, protected: true},
		})
	}

	plan := NewPlan(junctionID, makePhases(groups, specs, opts), 0, groups)
	if err := plan.Validate(); err != nil {
		return nil
	}
	return plan
}

// threeWay 三路T型路口策略
// 说明：仅当恰好3条道路相交时可用。通过唯一的直行运动组识别主路
// 的两条道路，余下一条为支路。两相位、无保护左转：
// 主路直行保护+转向让行+支路横道保护，然后镜像
func threeWay(view MapView, junctionID int32, groups map[GroupID]*Group, opts Options) *Plan {
	roads := view.RoadsInJunction(junctionID)
	if len(roads) != 3 {
		return nil
	}
	var straight *Group
	for _, g := range SortedGroupIDs(groups) {
		if groups[g].Kind == KindStraight {
			straight = groups[g]
			break
		}
	}
	if straight == nil {
		return nil
	}
	north, south := straight.ID.From, straight.ID.To
	side := lo.Filter(roads, func(r int32, _ int) bool {
		return r != north && r != south
	})
	if len(side) != 1 {
		return nil
	}
	east := side[0]

	specs := [][]phaseSpec{
		{
			{roads: []int32{north, south}, kind: KindStraight, protected: true},
			{roads: []int32{north, south}, kind: KindRight, protected: false},
			{roads: []int32{north, south}, kind: KindLeft, protected: false},
			{roads: []int32{east}, kind: KindRight, protected: false},
			{roads: []int32{east}, kind: KindCrosswalk, protected: true},
		},
		{
			{roads: []int32{east}, kind: KindStraight, protected: true},
			{roads: []int32{east}, kind: KindRight, protected: false},
			{roads: []int32{east}, kind: KindLeft, protected: false},
			{roads: []int32{north, south}, kind: KindRight, protected: false},
			{roads: []int32{north, south}, kind: KindCrosswalk, protected: true},
		},
	}

	plan := NewPlan(junctionID, makePhases(groups, specs, opts), 0, groups)
	if err := plan.Validate(); err != nil {
		return nil
	}
	return plan
}

// fourWayFourPhase 四路四相位策略（带保护左转）
// 说明：仅当恰好4条道路相交时可用。按进入方向角把道路概念性地
// 标记为北西南东。南北直行+横道、南北保护左转、东西直行+横道、
// 东西保护左转，共四个相位
func fourWayFourPhase(view MapView, junctionID int32, groups map[GroupID]*Group, opts Options) *Plan {
	roads := view.RoadsSortedByIncomingAngle(junctionID)
	if len(roads) != 4 {
		return nil
	}
	north, west, south, east := roads[0], roads[1], roads[2], roads[3]

	specs := [][]phaseSpec{
		{
			{roads: []int32{north, south}, kind: KindStraight, protected: true},
			{roads: []int32{north, south}, kind: KindRight, protected: false},
			{roads: []int32{east, west}, kind: KindRight, protected: false},
			{roads: []int32{east, west}, kind: KindCrosswalk, protected: true},
		},
		{
			{roads: []int32{north, south}, kind: KindLeft, protected: true},
		},
		{
			{roads: []int32{east, west}, kind: KindStraight, protected: true},
			{roads: []int32{east, west}, kind: KindRight, protected: false},
			{roads: []int32{north, south}, kind: KindRight, protected: false},
			{roads: []int32{north, south}, kind: KindCrosswalk, protected: true},
		},
		{
			{roads: []int32{east, west}, kind: KindLeft, protected: true},
		},
	}

	plan := NewPlan(junctionID, makePhases(groups, specs, opts), 0, groups)
	if err := plan.Validate(); err != nil {
		return nil
	}
	return plan
}

// fourWayTwoPhase 四路两相位策略（无保护左转，左转并入让行）
// 说明：前提与四相位相同；左转流量低时延误更小
func fourWayTwoPhase(view MapView, junctionID int32, groups map[GroupID]*Group, opts Options) *Plan {
	roads := view.RoadsSortedByIncomingAngle(junctionID)
	if len(roads) != 4 {
		return nil
	}
	north, west, south, east := roads[0], roads[1], roads[2], roads[3]

	specs := [][]phaseSpec{
		{
			{roads: []int32{north, south}, kind: KindStraight, protected: true},
			{roads: []int32{north, south}, kind: KindRight, protected: false},
			{roads: []int32{north, south}, kind: KindLeft, protected: false},
			{roads: []int32{east, west}, kind: KindRight, protected: false},
			{roads: []int32{east, west}, kind: KindCrosswalk, protected: true},
		},
		{
			{roads: []int32{east, west}, kind: KindStraight, protected: true},
			{roads: []int32{east, west}, kind: KindRight, protected: false},
			{roads: []int32{east, west}, kind: KindLeft, protected: false},
			{roads: []int32{north, south}, kind: KindRight, protected: false},
			{roads: []int32{north, south}, kind: KindCrosswalk, protected: true},
		},
	}

	plan := NewPlan(junctionID, makePhases(groups, specs, opts), 0, groups)
	if err := plan.Validate(); err != nil {
		return nil
	}
	return plan
}

// fourOneways 四路中恰好两条单行道进入的策略
// 说明：仅当4条道路中恰好2条在路口有入口车道时可用；
// 每条进入道路一个相位：直行保护+本路横道保护+转向让行
func fourOneways(view MapView, junctionID int32, groups map[GroupID]*Group, opts Options) *Plan {
	roads := view.RoadsInJunction(junctionID)
	if len(roads) != 4 {
		return nil
	}
	incomings := lo.Filter(roads, func(r int32, _ int) bool {
		return len(view.IncomingLanes(r, junctionID)) > 0
	})
	if len(incomings) != 2 {
		return nil
	}
	r1, r2 := incomings[0], incomings[1]

	specs := [][]phaseSpec{
		{
			{roads: []int32{r1}, kind: KindStraight, protected: true},
			{roads: []int32{r1}, kind: KindCrosswalk, protected: true},
			{roads: []int32{r1}, kind: KindRight, protected: false},
			{roads: []int32{r1}, kind: KindLeft, protected: false},
		},
		{
			{roads: []int32{r2}, kind: KindStraight, protected: true},
			{roads: []int32{r2}, kind: KindCrosswalk, protected: true},
			{roads: []int32{r2}, kind: KindRight, protected: false},
			{roads: []int32{r2}, kind: KindLeft, protected: false},
		},
	}

	plan := NewPlan(junctionID, makePhases(groups, specs, opts), 0, groups)
	if err := plan.Validate(); err != nil {
		return nil
	}
	return plan
}

// phasePerRoad 逐路轮转策略
// 说明：按方向角顺序为每条道路生成一个相位：该路的全部运动让行，
// 相邻两条道路的人行横道保护。没有让行运动的纯出口道路被跳过
func phasePerRoad(view MapView, junctionID int32, groups map[GroupID]*Group, opts Options) *Plan {
	sortedRoads := view.RoadsSortedByIncomingAngle(junctionID)
	phases := make([]*Phase, 0, len(sortedRoads))
	n := len(sortedRoads)
	for idx, r := range sortedRoads {
		adj1 := sortedRoads[((idx-1)+n)%n]
		adj2 := sortedRoads[(idx+1)%n]

		phase := NewPhase(opts.PhaseDuration)
		for _, id := range SortedGroupIDs(groups) {
			group := groups[id]
			if group.Kind == KindCrosswalk {
				if id.From == adj1 || id.From == adj2 {
					phase.Protected[id] = struct{}{}
				}
			} else if id.From == r {
				phase.Yield[id] = struct{}{}
			}
		}
		// 纯出口的单行道没有让行运动，跳过
		if len(phase.Yield) > 0 {
			phases = append(phases, phase)
		}
	}

	plan := NewPlan(junctionID, phases, 0, groups)
	if err := plan.Validate(); err != nil {
		return nil
	}
	return plan
}

// allWalkAllYield 全横道放行+全让行策略（始终可用的最终兜底）
// 说明：恰好两个相位：全部人行横道组保护（车辆组未被分配到该相位，
// 隐式禁行），然后全部车辆组让行（无保护的自协调通行）
func allWalkAllYield(junctionID int32, groups map[GroupID]*Group, opts Options) *Plan {
	allWalk := NewPhase(opts.PhaseDuration)
	allYield := NewPhase(opts.PhaseDuration)
	for _, id := range SortedGroupIDs(groups) {
		if groups[id].Kind == KindCrosswalk {
			allWalk.Protected[id] = struct{}{}
		} else {
			allYield.Yield[id] = struct{}{}
		}
	}
	// 没有横道的路口全放行相位为空（等效全红），保留以维持两相位结构
	phases := []*Phase{allWalk, allYield}

	plan := NewPlan(junctionID, phases, 0, groups)
	if err := plan.Validate(); err != nil {
		log.Panicf("all-walk assignment must validate: %v", err)
	}
	return plan
}

// expandAllPhases 相位扩张：把所有可以无冲突保护的组补进每个相位
// 说明：在不破坏保护-保护无冲突不变量的前提下最大化每相位的通行量
func expandAllPhases(phases []*Phase, groups map[GroupID]*Group) {
	for _, phase := range phases {
		for _, g := range SortedGroupIDs(groups) {
			if phase.CouldBeProtected(g, groups) {
				phase.Protected[g] = struct{}{}
			}
		}
	}
}

// phaseSpec 相位规格表中的一行：指定道路集合上指定类型的运动组
// 按保护/让行加入相位
type phaseSpec struct {
	roads     []int32
	kind      MovementKind
	protected bool
}

// makePhases 按相位规格表构建相位列表
// 说明：人行横道组随EditGroup与同一条横道的其他方向联动；
// 构建后为空的相位被过滤
func makePhases(groups map[GroupID]*Group, specs [][]phaseSpec, opts Options) []*Phase {
	phases := make([]*Phase, 0, len(specs))
	for _, rows := range specs {
		phase := NewPhase(opts.PhaseDuration)
		for _, row := range rows {
			for _, id := range SortedGroupIDs(groups) {
				group := groups[id]
				if group.Kind != row.kind || !lo.Contains(row.roads, id.From) {
					continue
				}
				pri := PriorityYield
				if row.protected {
					pri = PriorityProtected
				}
				phase.EditGroup(group, pri)
			}
		}
		if phase.empty() {
			continue
		}
		phases = append(phases, phase)
	}
	return phases
}
