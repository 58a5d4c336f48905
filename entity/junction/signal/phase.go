package signal

import "sort"

// Priority 通行权
type Priority int32

const (
	PriorityBanned    Priority = iota // 本相位禁止通行
	PriorityYield                     // 让行：冲突的高优先级交通清空后方可通行
	PriorityProtected                 // 保护：无需让行直接通行
)

// String 获取通行权的字符串表示
func (p Priority) String() string {
	switch p {
	case PriorityBanned:
		return "banned"
	case PriorityYield:
		return "yield"
	case PriorityProtected:
		return "protected"
	default:
		return "unknown"
	}
}

// Phase 信号相位
// 说明：保护集合与让行集合不相交；两个集合都不包含的组在本相位被禁止通行
type Phase struct {
	Protected map[GroupID]struct{}
	Yield     map[GroupID]struct{}
	Duration  float64 // 相位时长（秒）
}

// NewPhase 创建空相位
func NewPhase(duration float64) *Phase {
	return &Phase{
		Protected: make(map[GroupID]struct{}),
		Yield:     make(map[GroupID]struct{}),
		Duration:  duration,
	}
}

// Clone 深拷贝相位
func (p *Phase) Clone() *Phase {
	c := NewPhase(p.Duration)
	for g := range p.Protected {
		c.Protected[g] = struct{}{}
	}
	for g := range p.Yield {
		c.Yield[g] = struct{}{}
	}
	return c
}

// empty 判断相位是否为空（不含任何组）
func (p *Phase) empty() bool {
	return len(p.Protected) == 0 && len(p.Yield) == 0
}

// SortedProtected 获取排序后的保护组列表
func (p *Phase) SortedProtected() []GroupID {
	return sortedSet(p.Protected)
}

// SortedYield 获取排序后的让行组列表
func (p *Phase) SortedYield() []GroupID {
	return sortedSet(p.Yield)
}

func sortedSet(set map[GroupID]struct{}) []GroupID {
	ids := make([]GroupID, 0, len(set))
	for g := range set {
		ids = append(ids, g)
	}
	sort.Slice(ids, func(i, j int) bool { return groupIDLess(ids[i], ids[j]) })
	return ids
}

// CouldBeProtected 判断组加入本相位保护集合后是否仍无冲突
// 参数：g-候选组，groups-路口的全部运动组
// 返回：true表示可以加入，false表示已在集合中或与现有保护组冲突
func (p *Phase) CouldBeProtected(g GroupID, groups map[GroupID]*Group) bool {
	group := groups[g]
	for other := range p.Protected {
		if g == other || group.ConflictsWith(groups[other]) {
			return false
		}
	}
	return true
}

// PriorityOfGroup 查询组在本相位的通行权
func (p *Phase) PriorityOfGroup(g GroupID) Priority {
	if _, ok := p.Protected[g]; ok {
		return PriorityProtected
	}
	if _, ok := p.Yield[g]; ok {
		return PriorityYield
	}
	return PriorityBanned
}

// EditGroup 设置组在本相位的通行权
// 功能：先从两个集合中移除再按目标通行权插入，保证组不会同时出现在两个集合；
// 人行横道组与其同一条横道的其他方向联动编辑。重复应用同一通行权为幂等操作
func (p *Phase) EditGroup(g *Group, pri Priority) {
	ids := append([]GroupID{g.ID}, g.Siblings...)
	for _, id := range ids {
		delete(p.Protected, id)
		delete(p.Yield, id)
		switch pri {
		case PriorityProtected:
			p.Protected[id] = struct{}{}
		case PriorityYield:
			p.Yield[id] = struct{}{}
		}
	}
}
