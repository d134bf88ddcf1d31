package api

import (
	"context"
	"errors"

	playeractor "Underworld/internal/player/actor"
	playerentity "Underworld/internal/player/entity"
	"Underworld/internal/shared/transport"
	"Underworld/internal/shared/transport/ws"
	territory "Underworld/internal/territory/service"
	worldactor "Underworld/internal/world/actor"
	"Underworld/modules/kit/errx"
)

const sysBusyMsg = "系统繁忙，请稍后重试"

// mapReasonToClientCode 规则拒绝原因码到业务码。
func mapReasonToClientCode(reason string) int {
	switch reason {
	case "":
		return transport.OK
	case territory.ReasonAlreadyClaimed.ReasonCode():
		return transport.AlreadyClaimed
	case territory.ReasonInsufficientLevel.ReasonCode():
		return transport.InsufficientLevel
	case territory.ReasonInsufficientFunds.ReasonCode():
		return transport.InsufficientFunds
	case territory.ReasonTargetNotOwned.ReasonCode():
		return transport.TargetNotOwned
	case territory.ReasonInsufficientGangSize.ReasonCode():
		return transport.InsufficientGangSize
	case territory.ReasonInsufficientEnergy.ReasonCode():
		return transport.InsufficientEnergy
	case territory.ReasonOnCooldown.ReasonCode():
		return transport.OnCooldown
	case territory.ReasonAlreadyResident.ReasonCode():
		return transport.AlreadyResident
	case territory.ReasonDistrictNotFound.ReasonCode():
		return transport.DistrictNotFound
	case string(territory.CodeInvalidAmount), "INVALID_REQUEST", string(ws.CodeBadMsg),
		string(playerentity.CodeInvalidProgress), string(playerentity.CodeUnknownSkill), string(playerentity.CodeSkillOutOfRange):
		return transport.InvalidParam
	case string(errx.CodeInternal):
		return transport.SystemError
	default:
		return transport.RuleRejected
	}
}

// HandleError 把调用链上的错误转成业务码与对外文案，系统类错误不透出细节。
func HandleError(ctx context.Context, err error) (int, string) {
	if err == nil {
		return transport.OK, ""
	}
	var e *errx.Error
	if errors.As(err, &e) && !e.Kind().System() {
		reason := e.Reason()
		if reason == "" {
			reason = e.CodeText()
		}
		transport.SetErrorReason(ctx, reason)
		if e.Kind() == errx.KindNotFound && reason == e.CodeText() {
			return transport.NotFound, e.Msg()
		}
		return mapReasonToClientCode(reason), e.Msg()
	}

	transport.SetErrorReason(ctx, err.Error())
	var pe *playeractor.RuntimeError
	if errors.As(err, &pe) {
		code := playeractor.CodeFromError(err)
		if code == transport.InvalidParam {
			return code, pe.Message
		}
		return code, sysBusyMsg
	}
	var we *worldactor.RuntimeError
	if errors.As(err, &we) {
		return worldactor.CodeFromError(err), sysBusyMsg
	}
	return transport.SystemError, sysBusyMsg
}
