package actors

import (
	"context"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/multierr"

	"Underworld/internal/player/entity"
	"Underworld/internal/shared/actor/messages"
	territory "Underworld/internal/territory/service"
)

// DayLayout 每日结算的日期键。
const DayLayout = "2006-01-02"

type PlayerHandler struct{}

// 全局实例
var PH = &PlayerHandler{}

func (h *PlayerHandler) HandleClaim(ctx actor.Context, p *PlayerActor, req messages.ClaimCmd) {
	out := p.deps.Resolver.Claim(context.Background(), p.entity, req.District)
	ctx.Respond(commandReply(p, out))
}

func (h *PlayerHandler) HandleWar(ctx actor.Context, p *PlayerActor, req messages.WarCmd) {
	out := p.deps.Resolver.DeclareWar(context.Background(), p.entity, req.District)
	ctx.Respond(commandReply(p, out))
}

func (h *PlayerHandler) HandleRelocate(ctx actor.Context, p *PlayerActor, req messages.RelocateCmd) {
	out := p.deps.Resolver.Relocate(context.Background(), p.entity, req.District)
	ctx.Respond(commandReply(p, out))
}

func (h *PlayerHandler) HandleCollectIncome(ctx actor.Context, p *PlayerActor, req messages.CollectIncomeCmd) {
	inc, err := p.deps.Collector.Collect(context.Background(), p.entity, req.Amount, territory.IncomeKind(req.Kind))
	if err != nil {
		ctx.Respond(messages.IncomeReply{Result: errResult(err)})
		return
	}
	ctx.Respond(messages.IncomeReply{
		Result: messages.Ok(),
		Gross:  inc.Gross,
		Net:    inc.Net,
		Tax:    inc.Tax,
		Owner:  inc.Owner,
		State:  p.view(),
	})
}

func (h *PlayerHandler) HandleProgress(ctx actor.Context, p *PlayerActor, req messages.ProgressCmd) {
	err := p.entity.ApplyProgress(entity.Progress{
		Level:      req.Level,
		GangSize:   req.GangSize,
		Wanted:     req.Wanted,
		Reputation: req.Reputation,
		Skills:     req.Skills,
	})
	if err != nil {
		ctx.Respond(messages.StateReply{Result: errResult(err)})
		return
	}
	ctx.Respond(messages.StateReply{Result: messages.Ok(), State: p.view()})
}

// HandleTaxCredit 住户缴的税到账，单向消息不应答。
func (h *PlayerHandler) HandleTaxCredit(_ actor.Context, p *PlayerActor, req messages.TaxCredit) {
	if req.Amount <= 0 {
		return
	}
	p.entity.CreditCash(req.Amount)
}

func (h *PlayerHandler) HandleDailyTick(ctx actor.Context, p *PlayerActor, req messages.DailyTickCmd) {
	now := req.Now
	if now.IsZero() {
		now = p.deps.now()
	}
	day := now.Format(DayLayout)
	if p.entity.DailyTickDone(day) {
		ctx.Respond(messages.DailyReply{Result: messages.Ok(), Day: day, Skipped: true, Applied: []messages.AppliedPassive{}})
		return
	}

	report := p.deps.Passives.ApplyDailyPassives(context.Background(), p.entity)
	p.entity.MarkDailyTick(day)

	reply := messages.DailyReply{
		Result:  messages.Ok(),
		Day:     day,
		Applied: make([]messages.AppliedPassive, 0, len(report.Applied)),
	}
	for _, a := range report.Applied {
		reply.Applied = append(reply.Applied, messages.AppliedPassive{Faction: a.Faction, Effect: a.Effect, Amount: a.Amount})
	}
	for _, err := range multierr.Errors(report.Err) {
		reply.Errors = append(reply.Errors, err.Error())
	}
	ctx.Respond(reply)
}

func (h *PlayerHandler) HandleStateQuery(ctx actor.Context, p *PlayerActor, _ messages.StateQuery) {
	ctx.Respond(messages.StateReply{Result: messages.Ok(), State: p.view()})
}

func commandReply(p *PlayerActor, out territory.Outcome) messages.CommandReply {
	reply := messages.CommandReply{
		Result: outcomeResult(out),
		Cost:   out.Cost,
		State:  p.view(),
	}
	if out.War != nil {
		reply.War = &messages.WarSummary{
			AttackerWon:    out.War.AttackerWon,
			WinChance:      out.War.WinChance,
			DefensePenalty: out.War.DefensePenalty,
		}
	}
	return reply
}
