package service

import (
	"context"

	"Underworld/internal/shared/types"
	"Underworld/internal/shared/utils"
)

// WarContext 是交给战斗结算的全部输入。
type WarContext struct {
	District     types.DistrictID
	Attacker     types.PlayerID
	Defender     types.PlayerID
	AttackerGang int
	Defense      int
	RiskTier     int
}

// WarResult 战斗结算结果：进攻成功则易主，失败时 DefensePenalty 扣在守方街区防御上。
type WarResult struct {
	AttackerWon    bool    `json:"attackerWon"`
	WinChance      float64 `json:"winChance"`
	DefensePenalty int     `json:"defensePenalty"`
}

// CombatResolver 决定一场街区战争的胜负。
type CombatResolver interface {
	Resolve(ctx context.Context, w WarContext) WarResult
}

// CombatFunc 让普通函数实现 CombatResolver。
type CombatFunc func(ctx context.Context, w WarContext) WarResult

func (f CombatFunc) Resolve(ctx context.Context, w WarContext) WarResult {
	return f(ctx, w)
}

const (
	gangStrengthPerMember = 10
	minWinChance          = 0.05
	maxWinChance          = 0.95
	minDefensePenalty     = 5
	maxDefensePenalty     = 15
)

// StrengthCombat 按帮派人数与街区防御的相对强弱给出胜率。
type StrengthCombat struct {
	Rand utils.RandSource
}

func (c StrengthCombat) Resolve(_ context.Context, w WarContext) WarResult {
	chance := WinChance(w.AttackerGang, w.Defense)
	res := WarResult{WinChance: chance}
	if c.Rand.Float64() < chance {
		res.AttackerWon = true
		return res
	}
	res.DefensePenalty = utils.IntRange(c.Rand, minDefensePenalty, maxDefensePenalty)
	return res
}

// WinChance = 进攻强度 / (进攻强度 + 防御)，钳在 [5%, 95%]。
func WinChance(gang, defense int) float64 {
	attack := float64(max(0, gang) * gangStrengthPerMember)
	def := float64(max(0, defense))
	if attack+def == 0 {
		return 0.5
	}
	chance := attack / (attack + def)
	return max(minWinChance, min(maxWinChance, chance))
}
