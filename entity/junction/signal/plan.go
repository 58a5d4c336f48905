// 提供信号方案（一个路口的完整信控程序）：相位列表、周期配时与校验
package signal

import (
	"fmt"
	"math"
	"strings"
)

// Plan 路口信号方案
// 说明：持有路口的运动组快照（方案是该快照的所有者，路口车道
// 重算时方案整体重建）；校验通过后只读，可被多个读者并发查询
type Plan struct {
	ID     int32             // 所属路口ID
	Phases []*Phase          // 一个循环周期内的有序相位列表
	Offset float64           // 相位偏移（秒）
	Groups map[GroupID]*Group

	// 组间冲突缓存，构建/反序列化后一次性填充，此后只读
	conflict map[[2]GroupID]bool
}

// NewPlan 创建信号方案并填充冲突缓存
func NewPlan(junctionID int32, phases []*Phase, offset float64, groups map[GroupID]*Group) *Plan {
	p := &Plan{
		ID:     junctionID,
		Phases: phases,
		Offset: offset,
		Groups: groups,
	}
	p.rebuildConflictCache()
	return p
}

// rebuildConflictCache 重建组间冲突缓存
// 说明：几何求交是冲突判定中唯一代价较高的操作，按组对记忆化；
// 几何只随拓扑编辑变化，方案重建时缓存随之重建
func (p *Plan) rebuildConflictCache() {
	ids := SortedGroupIDs(p.Groups)
	p.conflict = make(map[[2]GroupID]bool, len(ids)*len(ids))
	for _, a := range ids {
		for _, b := range ids {
			p.conflict[[2]GroupID{a, b}] = p.Groups[a].ConflictsWith(p.Groups[b])
		}
	}
}

// Conflicts 查询两个组是否冲突（对称、自反为假）
func (p *Plan) Conflicts(a, b GroupID) bool {
	return p.conflict[[2]GroupID{a, b}]
}

// CycleLength 获取一个循环周期的总时长（秒）
func (p *Plan) CycleLength() float64 {
	total := .0
	for _, phase := range p.Phases {
		total += phase.Duration
	}
	return total
}

// CurrentPhaseAndRemainingTime 查询指定时刻的活动相位
// 功能：纯函数式配时查询，不保存任何可变状态，可被多读者并发调用
// 参数：now-仿真时刻（秒）
// 返回：相位下标、相位与该相位的剩余时长
// 算法说明：effective = (now + offset) mod 周期长度，按序累加相位时长，
// effective落入哪个相位区间即为当前相位
func (p *Plan) CurrentPhaseAndRemainingTime(now float64) (int, *Phase, float64) {
	cycle := p.CycleLength()
	if len(p.Phases) == 0 || cycle <= 0 {
		log.Panicf("plan for junction %d has empty cycle, must be rejected by validation", p.ID)
	}
	offset := math.Mod(now+p.Offset, cycle)
	if offset < 0 {
		offset += cycle
	}
	for idx, phase := range p.Phases {
		if offset < phase.Duration {
			return idx, phase, phase.Duration - offset
		}
		offset -= phase.Duration
	}
	// 浮点误差落在周期末尾时归入最后一个相位
	last := len(p.Phases) - 1
	return last, p.Phases[last], 0
}

// OffsetForPhase 计算使指定相位在now时刻剩余remaining秒的偏移量
// 功能：在不打断纯函数式配时的前提下，把运行中的信号重定相
// 返回：新的偏移量（秒，规范化到[0,周期)）
func (p *Plan) OffsetForPhase(now float64, index int, remaining float64) float64 {
	start := .0
	for _, phase := range p.Phases[:index] {
		start += phase.Duration
	}
	// 目标：(now+offset) mod cycle == start + duration - remaining
	target := start + p.Phases[index].Duration - remaining
	cycle := p.CycleLength()
	offset := math.Mod(target-now, cycle)
	if offset < 0 {
		offset += cycle
	}
	return offset
}

// GroupOfMovement 查询运动所属的组
func (p *Plan) GroupOfMovement(m MovementID) (GroupID, bool) {
	for _, id := range SortedGroupIDs(p.Groups) {
		for _, member := range p.Groups[id].Members {
			if member == m {
				return id, true
			}
		}
	}
	return GroupID{}, false
}

// PriorityOfMovement 查询运动在指定时刻的通行权
func (p *Plan) PriorityOfMovement(now float64, m MovementID) Priority {
	g, ok := p.GroupOfMovement(m)
	if !ok {
		log.Panicf("movement %v is not part of plan for junction %d", m, p.ID)
	}
	_, phase, _ := p.CurrentPhaseAndRemainingTime(now)
	return phase.PriorityOfGroup(g)
}

// Clone 深拷贝方案（运动组快照共享，相位与偏移独立）
// 说明：编辑流程在副本上构建候选方案，校验通过后整体替换，
// 失败时原方案保持完整
func (p *Plan) Clone() *Plan {
	phases := make([]*Phase, len(p.Phases))
	for i, phase := range p.Phases {
		phases[i] = phase.Clone()
	}
	c := &Plan{
		ID:       p.ID,
		Phases:   phases,
		Offset:   p.Offset,
		Groups:   p.Groups,
		conflict: p.conflict,
	}
	return c
}

// ValidationError 信号方案校验错误
// 说明：携带具体的缺失/多余/冲突组信息用于诊断
type ValidationError struct {
	JunctionID         int32
	ZeroCycle          bool         // 无相位或周期长度为零
	Missing            []GroupID    // 未被任何相位覆盖的组
	Extraneous         []GroupID    // 引用了方案之外（过期）的组
	Conflicting        [][2]GroupID // 同一相位内冲突的保护组对
	YieldingCrosswalks []GroupID    // 出现在让行集合中的人行横道组
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid signal plan for junction %d:", e.JunctionID)
	if e.ZeroCycle {
		b.WriteString(" empty phase list or zero cycle length;")
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " missing %v;", e.Missing)
	}
	if len(e.Extraneous) > 0 {
		fmt.Fprintf(&b, " contains irrelevant %v;", e.Extraneous)
	}
	if len(e.Conflicting) > 0 {
		fmt.Fprintf(&b, " conflicting protected groups in one phase %v;", e.Conflicting)
	}
	if len(e.YieldingCrosswalks) > 0 {
		fmt.Fprintf(&b, " crosswalks may not yield %v;", e.YieldingCrosswalks)
	}
	return strings.TrimSuffix(b.String(), ";")
}

// Validate 校验信号方案
// 功能：两项检查均须通过：
// 1. 覆盖性：所有相位的保护∪让行集合恰好等于方案的全部组集合
// 2. 相位内无冲突：单个相位内任意两个保护组不冲突；让行组可与任何组冲突；
// 人行横道组不允许出现在让行集合中（行人只有保护或禁止两种状态）
// 返回：通过返回nil，否则返回携带诊断信息的 *ValidationError
// 说明：每次策略生成与每次用户编辑提交前都必须调用
func (p *Plan) Validate() error {
	e := &ValidationError{JunctionID: p.ID}

	if len(p.Phases) == 0 || p.CycleLength() <= 0 {
		e.ZeroCycle = true
	}

	actual := make(map[GroupID]struct{})
	for _, phase := range p.Phases {
		for g := range phase.Protected {
			actual[g] = struct{}{}
		}
		for g := range phase.Yield {
			actual[g] = struct{}{}
		}
	}
	for _, g := range SortedGroupIDs(p.Groups) {
		if _, ok := actual[g]; !ok {
			e.Missing = append(e.Missing, g)
		}
	}
	for _, g := range sortedSet(actual) {
		if _, ok := p.Groups[g]; !ok {
			e.Extraneous = append(e.Extraneous, g)
		}
	}

	for _, phase := range p.Phases {
		protected := phase.SortedProtected()
		for i, g1 := range protected {
			for _, g2 := range protected[i+1:] {
				if _, ok := p.Groups[g1]; !ok {
					continue
				}
				if _, ok := p.Groups[g2]; !ok {
					continue
				}
				if p.Conflicts(g1, g2) {
					e.Conflicting = append(e.Conflicting, [2]GroupID{g1, g2})
				}
			}
		}
		for _, g := range phase.SortedYield() {
			if group, ok := p.Groups[g]; ok && group.Kind == KindCrosswalk {
				e.YieldingCrosswalks = append(e.YieldingCrosswalks, g)
			}
		}
	}

	if e.ZeroCycle || len(e.Missing) > 0 || len(e.Extraneous) > 0 ||
		len(e.Conflicting) > 0 || len(e.YieldingCrosswalks) > 0 {
		return e
	}
	return nil
}

// ConvertToPedScramble 将方案改造为带行人专用相位的方案
// 功能：从既有相位中剥离人行横道组，在横道离开后把不再冲突的让行组
// 提升为保护组，最后追加一个全部横道同时放行的专用相位；
// 车辆组不会进入该相位，因而在行人专用相位内隐式禁行
// 参数：opts-相位时长等构建选项
// 说明：原地幂等变换：剥离后变空的相位被丢弃（其中只含横道组，
// 覆盖性由新的专用相位保证），因此重复应用不再产生新相位
func (p *Plan) ConvertToPedScramble(opts Options) {
	kept := make([]*Phase, 0, len(p.Phases))
	for _, phase := range p.Phases {
		for _, g := range phase.SortedProtected() {
			if p.Groups[g].Kind == KindCrosswalk {
				delete(phase.Protected, g)
			}
		}
		// 横道离开后尝试把让行组提升为保护组
		for _, g := range phase.SortedYield() {
			if phase.CouldBeProtected(g, p.Groups) {
				phase.Protected[g] = struct{}{}
				delete(phase.Yield, g)
			}
		}
		if !phase.empty() {
			kept = append(kept, phase)
		}
	}

	scramble := NewPhase(opts.PhaseDuration)
	for _, g := range SortedGroupIDs(p.Groups) {
		if p.Groups[g].Kind == KindCrosswalk {
			scramble.EditGroup(p.Groups[g], PriorityProtected)
		}
	}
	p.Phases = append(kept, scramble)
}
