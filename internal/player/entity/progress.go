package entity

// Progress 任务、招募、派系事件等外部玩法带来的成长。
// 零值字段表示不变；Level、GangSize、Skills 是目标值，Wanted、Reputation 是增量。
type Progress struct {
	Level      int
	GangSize   *int
	Wanted     int
	Reputation map[string]int
	Skills     map[string]int
}

// ApplyProgress 先整体校验再落地，任一项非法时玩家状态不变。
func (p *Player) ApplyProgress(g Progress) error {
	if g.Level < 0 {
		return ErrInvalidProgress.WithData("level", g.Level)
	}
	if g.GangSize != nil && *g.GangSize < 0 {
		return ErrInvalidProgress.WithData("gangSize", *g.GangSize)
	}
	for branch, level := range g.Skills {
		if err := checkSkill(branch, level); err != nil {
			return err
		}
	}

	if g.Level > 0 {
		p.SetLevel(g.Level)
	}
	if g.GangSize != nil {
		p.SetGangSize(*g.GangSize)
	}
	switch {
	case g.Wanted > 0:
		p.RaiseWanted(g.Wanted)
	case g.Wanted < 0:
		p.ReduceWanted(-g.Wanted)
	}
	for faction, delta := range g.Reputation {
		if delta != 0 {
			p.AdjustReputation(faction, delta)
		}
	}
	for branch, level := range g.Skills {
		p.s.Skills[branch] = level
		p.dirty = true
	}
	return nil
}
