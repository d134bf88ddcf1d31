package messages

import "Underworld/internal/shared/types"

// Result 所有 actor 应答共用的业务结果，Reason 为空表示成功。
type Result struct {
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func Ok() Result {
	return Result{OK: true}
}

func Fail(reason, message string) Result {
	return Result{Reason: reason, Message: message}
}

// Standing 随事件带出的玩家快照，actor 之间只传值。
type Standing struct {
	Player     types.PlayerID `json:"playerId"`
	Name       string         `json:"name"`
	Reputation int            `json:"reputation"`
}
