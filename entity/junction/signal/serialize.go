package signal

import (
	"encoding/json"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
)

// 信号方案的持久化表示
// 说明：map在JSON中无法保持确定性顺序，持久化时统一转为按ID排序的
// 数组，保证同一方案两次序列化得到字节级一致的结果

type phaseJSON struct {
	Protected []GroupID `json:"protected"`
	Yield     []GroupID `json:"yield"`
	Duration  float64   `json:"duration"`
}

type groupJSON struct {
	ID       GroupID          `json:"id"`
	Kind     MovementKind     `json:"kind"`
	Members  []MovementID     `json:"members"`
	Geom     []geometry.Point `json:"geom"`
	Angle    float64          `json:"angle"`
	Siblings []GroupID        `json:"siblings,omitempty"`
}

type planJSON struct {
	ID     int32       `json:"id"`
	Offset float64     `json:"offset"`
	Phases []phaseJSON `json:"phases"`
	Groups []groupJSON `json:"groups"`
}

// MarshalJSON 序列化信号方案
// 说明：相位内的组ID与组列表均按ID排序，输出确定性
func (p *Plan) MarshalJSON() ([]byte, error) {
	out := planJSON{
		ID:     p.ID,
		Offset: p.Offset,
		Phases: make([]phaseJSON, 0, len(p.Phases)),
		Groups: make([]groupJSON, 0, len(p.Groups)),
	}
	for _, phase := range p.Phases {
		out.Phases = append(out.Phases, phaseJSON{
			Protected: phase.SortedProtected(),
			Yield:     phase.SortedYield(),
			Duration:  phase.Duration,
		})
	}
	for _, id := range SortedGroupIDs(p.Groups) {
		g := p.Groups[id]
		out.Groups = append(out.Groups, groupJSON{
			ID:       g.ID,
			Kind:     g.Kind,
			Members:  g.Members,
			Geom:     g.Geom,
			Angle:    g.Angle,
			Siblings: g.Siblings,
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON 反序列化信号方案
// 说明：冲突缓存在载入后重建；载入的组不含原始运动折线，
// 冲突判定退化为组代表折线的几何相交（已知重叠不再可用）
func (p *Plan) UnmarshalJSON(data []byte) error {
	var in planJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.ID = in.ID
	p.Offset = in.Offset
	p.Phases = make([]*Phase, 0, len(in.Phases))
	for _, phase := range in.Phases {
		restored := NewPhase(phase.Duration)
		for _, g := range phase.Protected {
			restored.Protected[g] = struct{}{}
		}
		for _, g := range phase.Yield {
			restored.Yield[g] = struct{}{}
		}
		p.Phases = append(p.Phases, restored)
	}
	p.Groups = make(map[GroupID]*Group, len(in.Groups))
	for _, g := range in.Groups {
		siblings := g.Siblings
		sort.Slice(siblings, func(i, j int) bool { return groupIDLess(siblings[i], siblings[j]) })
		p.Groups[g.ID] = &Group{
			ID:       g.ID,
			Kind:     g.Kind,
			Members:  g.Members,
			Geom:     g.Geom,
			Angle:    g.Angle,
			Siblings: siblings,
		}
	}
	p.rebuildConflictCache()
	return nil
}
