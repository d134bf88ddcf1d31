package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Underworld/internal/shared/gameconfig/district"
	"Underworld/internal/shared/types"
	"Underworld/internal/shared/utils"
	"Underworld/internal/territory/entity"
	"Underworld/modules/kit/logx"
)

// Resolver 负责街区的占领、战争与搬迁。
// 对单个街区的检查与修改都在 Store.Update 的同一临界区内完成，
// 任何拒绝都发生在修改之前，不会留下半途状态。
type Resolver struct {
	registry *district.Registry
	store    *entity.Store
	combat   CombatResolver
	listener Listener
	now      func() time.Time
	log      logx.Logger
}

type Option func(*Resolver)

func WithCombat(c CombatResolver) Option {
	return func(r *Resolver) { r.combat = c }
}

func WithListener(l Listener) Option {
	return func(r *Resolver) { r.listener = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithLogger(l logx.Logger) Option {
	return func(r *Resolver) { r.log = logx.OrNop(l) }
}

func NewResolver(registry *district.Registry, store *entity.Store, opts ...Option) *Resolver {
	r := &Resolver{
		registry: registry,
		store:    store,
		combat:   StrengthCombat{Rand: utils.NewLockedRand(time.Now().UnixNano())},
		listener: NopListener{},
		now:      time.Now,
		log:      logx.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetListener 世界服务晚于 Resolver 创建时回填。
func (r *Resolver) SetListener(l Listener) {
	if l == nil {
		l = NopListener{}
	}
	r.listener = l
}

// Claim 占领无主街区：等级 >= MinClaimLevel 且现金够付占领费。
func (r *Resolver) Claim(ctx context.Context, p Player, id types.DistrictID) Outcome {
	d, ok := r.registry.Get(id)
	if !ok {
		return reject(ReasonDistrictNotFound)
	}

	out := success(d.ClaimCost)
	err := r.store.Update(id, func(tx *entity.Tx) error {
		switch {
		case tx.Record().Claimed():
			out = reject(ReasonAlreadyClaimed)
		case p.Level() < MinClaimLevel:
			out = reject(ReasonInsufficientLevel)
		case !p.DebitCash(d.ClaimCost):
			out = reject(ReasonInsufficientFunds)
		default:
			tx.SetOwner(p.ID())
		}
		return nil
	})
	if err != nil {
		return reject(ReasonDistrictNotFound)
	}
	r.report(ctx, "territory.claim", p, id, out)
	if out.OK {
		r.listener.OnClaimed(id, p)
	}
	return out
}

// DeclareWar 向他人持有的街区开战。前置条件满足即扣体力，无论胜负。
func (r *Resolver) DeclareWar(ctx context.Context, p Player, id types.DistrictID) Outcome {
	d, ok := r.registry.Get(id)
	if !ok {
		return reject(ReasonDistrictNotFound)
	}

	var (
		out      Outcome
		defender types.PlayerID
	)
	err := r.store.Update(id, func(tx *entity.Tx) error {
		rec := tx.Record()
		switch {
		case !rec.Claimed() || rec.Owner == p.ID():
			out = reject(ReasonTargetNotOwned)
			return nil
		case p.GangSize() < MinWarGangSize:
			out = reject(ReasonInsufficientGangSize)
			return nil
		case !p.DebitEnergy(WarEnergyCost):
			out = reject(ReasonInsufficientEnergy)
			return nil
		}

		defender = rec.Owner
		res := r.combat.Resolve(ctx, WarContext{
			District:     id,
			Attacker:     p.ID(),
			Defender:     defender,
			AttackerGang: p.GangSize(),
			Defense:      rec.Defense,
			RiskTier:     d.RiskTier,
		})
		if res.AttackerWon {
			tx.SetOwner(p.ID())
			tx.SetDefense(entity.DefaultDefense)
		} else {
			tx.SetDefense(rec.Defense - max(0, res.DefensePenalty))
		}
		out = success(WarEnergyCost)
		out.War = &res
		return nil
	})
	if err != nil {
		return reject(ReasonDistrictNotFound)
	}
	r.report(ctx, "territory.war", p, id, out)
	if out.OK {
		r.listener.OnWar(id, p, defender, *out.War)
	}
	return out
}

// Relocate 搬到另一个街区：距上次搬家满 MoveCooldown 且现金够付搬迁费。
func (r *Resolver) Relocate(ctx context.Context, p Player, id types.DistrictID) Outcome {
	d, ok := r.registry.Get(id)
	if !ok {
		return reject(ReasonDistrictNotFound)
	}

	now := r.now()
	last := p.LastRelocation()
	out := success(d.MoveCost)
	switch {
	case !last.IsZero() && now.Sub(last) < MoveCooldown:
		out = reject(ReasonOnCooldown)
	case r.livesIn(p.ID(), id):
		out = reject(ReasonAlreadyResident)
	case p.Cash() < d.MoveCost:
		out = reject(ReasonInsufficientFunds)
	}
	if !out.OK {
		r.report(ctx, "territory.relocate", p, id, out)
		return out
	}

	if !p.DebitCash(d.MoveCost) {
		out = reject(ReasonInsufficientFunds)
		r.report(ctx, "territory.relocate", p, id, out)
		return out
	}
	if err := r.store.AddResident(id, p.ID()); err != nil {
		p.CreditCash(d.MoveCost)
		return reject(ReasonDistrictNotFound)
	}
	p.MarkRelocated(now)
	r.report(ctx, "territory.relocate", p, id, out)
	r.listener.OnRelocated(id, p)
	return out
}

func (r *Resolver) livesIn(p types.PlayerID, id types.DistrictID) bool {
	home, ok := r.store.ResidenceOf(p)
	return ok && home == id
}

// CooldownRemaining 距离下次可搬家还要多久，0 表示现在就可以。
func (r *Resolver) CooldownRemaining(p Player) time.Duration {
	last := p.LastRelocation()
	if last.IsZero() {
		return 0
	}
	return max(0, MoveCooldown-r.now().Sub(last))
}

func (r *Resolver) report(ctx context.Context, action string, p Player, id types.DistrictID, out Outcome) {
	fields := []zap.Field{
		zap.Int64("player_id", int64(p.ID())),
		zap.String("district", string(id)),
	}
	if out.OK {
		r.log.WithContext(ctx).Debug(action+" ok", append(fields, zap.Int64("cost", out.Cost))...)
		return
	}
	logx.ReportBiz(ctx, r.log, logx.NewBizLog(action, out.ReasonCode(), out.Reason.Message()), fields...)
}
