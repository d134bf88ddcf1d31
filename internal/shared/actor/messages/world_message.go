package messages

import (
	"time"

	"Underworld/internal/shared/types"
)

// 以下消息由领地规则触发后 Send 给世界 actor。

type TerritoryClaimed struct {
	District types.DistrictID
	Owner    Standing
}

type WarWaged struct {
	District       types.DistrictID
	Attacker       Standing
	Defender       types.PlayerID
	AttackerWon    bool
	DefensePenalty int
}

type ResidentMoved struct {
	District types.DistrictID
	Resident Standing
}

type TaxRecorded struct {
	District types.DistrictID
	Owner    types.PlayerID
	Amount   int64
}

// WorldTick 推进事件时长与防御恢复。
type WorldTick struct {
	Now time.Time
}

// WorldQuery 请求一份世界状态副本。
type WorldQuery struct{}

// WorldFlush 立即落盘，应答 FlushReply。
type WorldFlush struct{}

type FlushReply struct {
	Err error
}
