package entity

import (
	"slices"
	"time"

	"Underworld/internal/shared/types"
)

// DefaultDefense 新街区与易主后的防御值。
const DefaultDefense = 100

// TerritoryRecord 一个街区当前的归属、住户、防御与税收累计。
type TerritoryRecord struct {
	DistrictID   types.DistrictID `json:"districtId"`
	Owner        types.PlayerID   `json:"owner"`
	Residents    []types.PlayerID `json:"residents"`
	Defense      int              `json:"defense"`
	TaxCollected int64            `json:"taxCollected"`
	OwnedSince   int64            `json:"ownedSince,omitempty"` // unix ms
}

func NewRecord(id types.DistrictID) TerritoryRecord {
	return TerritoryRecord{
		DistrictID: id,
		Owner:      types.NoPlayer,
		Residents:  []types.PlayerID{},
		Defense:    DefaultDefense,
	}
}

func (r TerritoryRecord) Claimed() bool {
	return r.Owner != types.NoPlayer
}

func (r TerritoryRecord) OwnedBy(p types.PlayerID) bool {
	return r.Claimed() && r.Owner == p
}

func (r TerritoryRecord) HasResident(p types.PlayerID) bool {
	return slices.Contains(r.Residents, p)
}

func (r TerritoryRecord) Clone() TerritoryRecord {
	r.Residents = slices.Clone(r.Residents)
	if r.Residents == nil {
		r.Residents = []types.PlayerID{}
	}
	return r
}

// Initialize 为每个街区生成初始记录：无主、无住户、默认防御、零税收。
func Initialize(ids []types.DistrictID) map[types.DistrictID]TerritoryRecord {
	out := make(map[types.DistrictID]TerritoryRecord, len(ids))
	for _, id := range ids {
		out[id] = NewRecord(id)
	}
	return out
}

func ownedSince(now time.Time, owner types.PlayerID) int64 {
	if owner == types.NoPlayer {
		return 0
	}
	return now.UnixMilli()
}
