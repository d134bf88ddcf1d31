package passive

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"Underworld/internal/shared/types"
	"Underworld/internal/shared/utils"
	"Underworld/modules/kit/errx"
	"Underworld/modules/kit/logx"
)

const CodeMalformedReputation errx.Code = "MALFORMED_REPUTATION"

var ErrMalformedReputation = errx.NewValidation(CodeMalformedReputation, "声望数据异常")

// Subject 是被动效果作用的玩家，玩家实体实现它。
type Subject interface {
	ID() types.PlayerID
	Reputation(faction string) (int, bool)
	Cash() int64
	CreditCash(amount int64)
	CreditDirtyCash(amount int64)
	AddAmmo(n int)
	ReduceWanted(n int) int
}

// Applied 单个派系本次结算的结果。
type Applied struct {
	Faction string `json:"faction"`
	Effect  string `json:"effect"`
	Amount  int64  `json:"amount"`
}

// DailyReport 一次每日结算的汇总；Err 聚合了各派系失败，不影响其他派系生效。
type DailyReport struct {
	PlayerID types.PlayerID `json:"playerId"`
	Day      string         `json:"day"`
	Applied  []Applied      `json:"applied"`
	Skipped  bool           `json:"skipped,omitempty"`
	Err      error          `json:"-"`
}

func (r DailyReport) Errors() []error {
	return multierr.Errors(r.Err)
}

type effectFunc func(e *Engine, s Subject) (Applied, error)

// Engine 每日派系被动结算。随机数通过 RandSource 注入。
type Engine struct {
	rand    utils.RandSource
	log     logx.Logger
	effects map[string]effectFunc
}

func NewEngine(r utils.RandSource, l logx.Logger) *Engine {
	if r == nil {
		r = utils.NewLockedRand(time.Now().UnixNano())
	}
	return &Engine{
		rand: r,
		log:  logx.OrNop(l),
		effects: map[string]effectFunc{
			FactionFinanciers:  (*Engine).interest,
			FactionArmsDealers: (*Engine).ammoRegen,
			FactionCartel:      (*Engine).dirtyTrickle,
			FactionCorruptCops: (*Engine).wantedDecay,
		},
	}
}

// reputation 返回声望；缺省为 0，超出合法区间返回错误。
func reputation(s Subject, faction string) (int, error) {
	v, ok := s.Reputation(faction)
	if !ok {
		return 0, nil
	}
	if v < ReputationMin || v > ReputationMax {
		return v, ErrMalformedReputation.WithDataMap(map[string]any{
			"faction":    faction,
			"reputation": v,
			"player_id":  int64(s.ID()),
		})
	}
	return v, nil
}

// HasPassive 声望 >= PassiveThreshold 时为 true；数据异常按未解锁处理。
func HasPassive(s Subject, faction string) bool {
	v, err := reputation(s, faction)
	return err == nil && v >= PassiveThreshold
}

// ApplyDailyPassives 逐派系结算，任一派系失败都不影响其他派系。
func (e *Engine) ApplyDailyPassives(ctx context.Context, s Subject) DailyReport {
	report := DailyReport{PlayerID: s.ID(), Applied: []Applied{}}
	for _, faction := range Factions {
		if _, err := reputation(s, faction); err != nil {
			report.Err = multierr.Append(report.Err, err)
			continue
		}
		if !HasPassive(s, faction) {
			continue
		}
		applied, err := e.apply(faction, s)
		if err != nil {
			report.Err = multierr.Append(report.Err, fmt.Errorf("passive %s: %w", faction, err))
			continue
		}
		report.Applied = append(report.Applied, applied)
	}
	if report.Err != nil {
		logx.ReportError(ctx, e.log, "passive.daily", report.Err, zap.Int64("player_id", int64(s.ID())))
	}
	return report
}

func (e *Engine) apply(faction string, s Subject) (applied Applied, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errx.ErrInternal.WithCause(fmt.Errorf("panic: %v", r))
		}
	}()
	fn, ok := e.effects[faction]
	if !ok {
		return Applied{}, errx.ErrInternal.WithData("faction", faction)
	}
	return fn(e, s)
}

// Interest 利息 = min(InterestCap, floor(cash * 5%))，负余额不计息。
func Interest(cash int64) int64 {
	if cash <= 0 {
		return 0
	}
	return min(InterestCap, cash/1000*interestPermille+cash%1000*interestPermille/1000)
}

func (e *Engine) interest(s Subject) (Applied, error) {
	amount := Interest(s.Cash())
	s.CreditCash(amount)
	return Applied{Faction: FactionFinanciers, Effect: "interest", Amount: amount}, nil
}

func (e *Engine) ammoRegen(s Subject) (Applied, error) {
	out := Applied{Faction: FactionArmsDealers, Effect: "ammo"}
	if e.rand.Float64() >= AmmoChance {
		return out, nil
	}
	n := utils.IntRange(e.rand, AmmoMin, AmmoMax)
	s.AddAmmo(n)
	out.Amount = int64(n)
	return out, nil
}

func (e *Engine) dirtyTrickle(s Subject) (Applied, error) {
	n := utils.IntRange(e.rand, DirtyMin, DirtyMax)
	s.CreditDirtyCash(int64(n))
	return Applied{Faction: FactionCartel, Effect: "dirty_money", Amount: int64(n)}, nil
}

func (e *Engine) wantedDecay(s Subject) (Applied, error) {
	cut := s.ReduceWanted(utils.IntRange(e.rand, WantedCutMin, WantedCutMax))
	return Applied{Faction: FactionCorruptCops, Effect: "wanted_decay", Amount: int64(cut)}, nil
}

// WeaponPriceMultiplier 军火商被动：武器价格 85 折。
func WeaponPriceMultiplier(s Subject) float64 {
	if HasPassive(s, FactionArmsDealers) {
		return WeaponPriceDiscount
	}
	return Neutral
}

// DrugIncomeMultiplier 卡特尔被动：毒品收入 1.2 倍。
func DrugIncomeMultiplier(s Subject) float64 {
	if HasPassive(s, FactionCartel) {
		return DrugIncomeBonus
	}
	return Neutral
}

// ViolenceHeatMultiplier 黑警被动：暴力行为热度 75%。
func ViolenceHeatMultiplier(s Subject) float64 {
	if HasPassive(s, FactionCorruptCops) {
		return ViolenceHeatDiscount
	}
	return Neutral
}

// Multipliers 汇总三项倍率，接口展示用。
type Multipliers struct {
	WeaponPrice  float64 `json:"weaponPrice"`
	DrugIncome   float64 `json:"drugIncome"`
	ViolenceHeat float64 `json:"violenceHeat"`
}

func MultipliersOf(s Subject) Multipliers {
	return Multipliers{
		WeaponPrice:  WeaponPriceMultiplier(s),
		DrugIncome:   DrugIncomeMultiplier(s),
		ViolenceHeat: ViolenceHeatMultiplier(s),
	}
}
