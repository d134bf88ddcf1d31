package actors

import (
	"errors"
	"maps"

	"Underworld/internal/passive"
	"Underworld/internal/shared/actor/messages"
	territory "Underworld/internal/territory/service"
	"Underworld/modules/kit/errx"
)

const (
	reasonInvalidRequest = "INVALID_REQUEST"
	reasonNotOnline      = "PLAYER_NOT_ONLINE"
)

func fail(reason string) messages.Result {
	return messages.Fail(reasonInvalidRequest, reason)
}

func outcomeResult(out territory.Outcome) messages.Result {
	if out.OK {
		return messages.Ok()
	}
	return messages.Fail(out.ReasonCode(), out.Reason.Message())
}

// errResult 规则类错误带原因码，其余按系统错误处理。
func errResult(err error) messages.Result {
	var e *errx.Error
	if errors.As(err, &e) && !e.Kind().System() {
		reason := e.Reason()
		if reason == "" {
			reason = e.CodeText()
		}
		return messages.Fail(reason, e.Msg())
	}
	return messages.Fail(string(errx.CodeInternal), err.Error())
}

func (p *PlayerActor) view() *messages.PlayerState {
	if p.entity == nil {
		return nil
	}
	s := p.entity.State()
	out := &messages.PlayerState{
		ID:         s.ID,
		Name:       s.Name,
		Level:      s.Level,
		Cash:       s.Cash,
		DirtyCash:  s.DirtyCash,
		Ammo:       s.Ammo,
		Wanted:     s.Wanted,
		GangSize:   s.GangSize,
		Energy:     s.Energy,
		Reputation: maps.Clone(s.Reputation),
		Skills:     maps.Clone(s.Skills),
	}
	out.Multipliers = passive.MultipliersOf(p.entity)
	if p.deps.Store != nil {
		out.Residence, _ = p.deps.Store.ResidenceOf(s.ID)
	}
	if p.deps.Resolver != nil {
		out.MoveCooldownMS = p.deps.Resolver.CooldownRemaining(p.entity).Milliseconds()
	}
	return out
}
