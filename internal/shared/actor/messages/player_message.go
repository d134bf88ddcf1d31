package messages

import (
	"time"

	"Underworld/internal/passive"
	"Underworld/internal/shared/types"
)

type PlayerMessage interface {
	PlayerID() types.PlayerID
}

type PlayerBaseMessage struct {
	Player types.PlayerID
}

func (m PlayerBaseMessage) PlayerID() types.PlayerID {
	return m.Player
}

type ClaimCmd struct {
	PlayerBaseMessage
	District types.DistrictID
}

type WarCmd struct {
	PlayerBaseMessage
	District types.DistrictID
}

type RelocateCmd struct {
	PlayerBaseMessage
	District types.DistrictID
}

// CollectIncomeCmd 外部玩法（任务、生意）结算的一笔收入，按玩家当前住处抽税。
type CollectIncomeCmd struct {
	PlayerBaseMessage
	Amount int64
	Kind   string // resident | business
}

// ProgressCmd 外部玩法带来的成长：等级、帮派人数、通缉、声望、技能。
type ProgressCmd struct {
	PlayerBaseMessage
	Level      int
	GangSize   *int
	Wanted     int
	Reputation map[string]int
	Skills     map[string]int
}

// TaxCredit 把住户缴的税转给街区主人，只 Send 不等应答。
type TaxCredit struct {
	PlayerBaseMessage
	District types.DistrictID
	Amount   int64
}

// DailyTickCmd 每日结算；同一天重复投递只生效一次。
type DailyTickCmd struct {
	PlayerBaseMessage
	Now time.Time
}

type StateQuery struct {
	PlayerBaseMessage
}

// WarSummary 战斗结果，胜负与数值都给到前端。
type WarSummary struct {
	AttackerWon    bool    `json:"attackerWon"`
	WinChance      float64 `json:"winChance"`
	DefensePenalty int     `json:"defensePenalty"`
}

type CommandReply struct {
	Result
	Cost  int64        `json:"cost"`
	War   *WarSummary  `json:"war,omitempty"`
	State *PlayerState `json:"state,omitempty"`
}

type IncomeReply struct {
	Result
	Gross int64          `json:"gross"`
	Net   int64          `json:"net"`
	Tax   int64          `json:"tax"`
	Owner types.PlayerID `json:"owner,omitempty"`
	State *PlayerState   `json:"state,omitempty"`
}

type AppliedPassive struct {
	Faction string `json:"faction"`
	Effect  string `json:"effect"`
	Amount  int64  `json:"amount"`
}

type DailyReply struct {
	Result
	Day     string           `json:"day"`
	Skipped bool             `json:"skipped"` // 当天已结算过
	Applied []AppliedPassive `json:"applied"`
	Errors  []string         `json:"errors,omitempty"`
}

// PlayerState 对外展示的玩家经济状态。
type PlayerState struct {
	ID             types.PlayerID   `json:"id"`
	Name           string           `json:"name"`
	Level          int              `json:"level"`
	Cash           int64            `json:"cash"`
	DirtyCash      int64            `json:"dirtyCash"`
	Ammo           int              `json:"ammo"`
	Wanted         int              `json:"wanted"`
	GangSize       int              `json:"gangSize"`
	Energy         int              `json:"energy"`
	Reputation     map[string]int   `json:"reputation"`
	Skills         map[string]int   `json:"skills"`
	Residence      types.DistrictID `json:"residence,omitempty"`
	MoveCooldownMS int64            `json:"moveCooldownMs"`
	// Multipliers 帮派声望带来的价格/收入/热度倍率
	Multipliers passive.Multipliers `json:"multipliers"`
}

type StateReply struct {
	Result
	State *PlayerState `json:"state,omitempty"`
}
