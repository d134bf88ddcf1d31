package service

import "Underworld/modules/kit/errx"

// Reason 是规则拒绝的原因码。
type Reason struct {
	code    string
	message string
}

func (r Reason) ReasonCode() string { return r.code }
func (r Reason) Message() string    { return r.message }
func (r Reason) IsZero() bool       { return r.code == "" }

var (
	ReasonAlreadyClaimed       = Reason{"ALREADY_CLAIMED", "district already has an owner"}
	ReasonInsufficientLevel    = Reason{"INSUFFICIENT_LEVEL", "player level too low to claim"}
	ReasonInsufficientFunds    = Reason{"INSUFFICIENT_FUNDS", "not enough cash"}
	ReasonTargetNotOwned       = Reason{"TARGET_NOT_OWNED", "district is not held by a rival"}
	ReasonInsufficientGangSize = Reason{"INSUFFICIENT_GANG_SIZE", "gang too small to declare war"}
	ReasonInsufficientEnergy   = Reason{"INSUFFICIENT_ENERGY", "not enough energy"}
	ReasonOnCooldown           = Reason{"ON_COOLDOWN", "relocation cooldown active"}
	ReasonAlreadyResident      = Reason{"ALREADY_RESIDENT", "already living in this district"}
	ReasonDistrictNotFound     = Reason{"DISTRICT_NOT_FOUND", "unknown district"}
)

const CodeRuleRejected errx.Code = "RULE_REJECTED"

// ErrRejected 把规则拒绝转成校验类错误，接口层统一映射。
var ErrRejected = errx.NewValidation(CodeRuleRejected, "操作被规则拒绝")

// Outcome 是 claim/war/relocate 的显式结果。
type Outcome struct {
	OK     bool       `json:"ok"`
	Reason Reason     `json:"-"`
	War    *WarResult `json:"war,omitempty"`
	// Cost 本次实际扣除的现金或体力
	Cost int64 `json:"cost"`
}

func success(cost int64) Outcome {
	return Outcome{OK: true, Cost: cost}
}

func reject(r Reason) Outcome {
	return Outcome{Reason: r}
}

// ReasonCode 成功时为空串。
func (o Outcome) ReasonCode() string {
	return o.Reason.code
}

// Err 失败时返回带原因码的校验错误，成功时返回 nil。
func (o Outcome) Err() error {
	if o.OK {
		return nil
	}
	if o.Reason == ReasonDistrictNotFound {
		return errx.ErrNotFound.WithReason(o.Reason).WithMsg(o.Reason.message)
	}
	return ErrRejected.WithReason(o.Reason).WithMsg(o.Reason.message)
}
