package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/multierr"

	"Underworld/internal/shared/types"
	territory "Underworld/internal/territory/entity"
)

// 持久化文档的顶层 key，只能新增不能改名。
const (
	KeyCityDistricts = "cityDistricts"
	KeyCityEvents    = "cityEvents"
	KeyLeaderboard   = "leaderboard"
	KeyTerritories   = "territories"
	KeyVersion       = "version"
	KeySavedAt       = "savedAt"
)

// CityDistrict 城市概览里一个街区的展示信息。
type CityDistrict struct {
	ControlledBy *string `json:"controlledBy"`
	CrimeLevel   int     `json:"crimeLevel"`
}

// WorldEvent 仅用于展示的世界事件，过期后移除。
type WorldEvent struct {
	ID          int64            `json:"id"`
	Type        string           `json:"type"`
	District    types.DistrictID `json:"district"`
	Description string           `json:"description"`
	RemainingMS int64            `json:"duration"`  // 剩余时长
	CreatedAt   int64            `json:"timestamp"` // 创建时间 unix ms
}

// Advance 扣减剩余时长，返回是否仍然有效。
func (e *WorldEvent) Advance(elapsed time.Duration) bool {
	e.RemainingMS -= elapsed.Milliseconds()
	return e.RemainingMS > 0
}

type LeaderboardEntry struct {
	PlayerID   types.PlayerID `json:"playerId,omitempty"`
	Name       string         `json:"name"`
	Reputation int            `json:"reputation"`
	Territory  int            `json:"territory"`
}

// WorldState 是整份世界文档。Territories/Version/SavedAt 为后加字段，旧存档里可能没有。
type WorldState struct {
	CityDistricts map[types.DistrictID]CityDistrict              `json:"cityDistricts"`
	CityEvents    []WorldEvent                                   `json:"cityEvents"`
	Leaderboard   []LeaderboardEntry                             `json:"leaderboard"`
	Territories   map[types.DistrictID]territory.TerritoryRecord `json:"territories,omitempty"`
	Version       uint64                                         `json:"version,omitempty"`
	SavedAt       int64                                          `json:"savedAt,omitempty"`
}

func (s WorldState) Clone() WorldState {
	out := WorldState{
		CityDistricts: make(map[types.DistrictID]CityDistrict, len(s.CityDistricts)),
		CityEvents:    slices.Clone(s.CityEvents),
		Leaderboard:   slices.Clone(s.Leaderboard),
		Version:       s.Version,
		SavedAt:       s.SavedAt,
	}
	for id, d := range s.CityDistricts {
		if d.ControlledBy != nil {
			name := *d.ControlledBy
			d.ControlledBy = &name
		}
		out.CityDistricts[id] = d
	}
	if out.CityEvents == nil {
		out.CityEvents = []WorldEvent{}
	}
	if out.Leaderboard == nil {
		out.Leaderboard = []LeaderboardEntry{}
	}
	if s.Territories != nil {
		out.Territories = make(map[types.DistrictID]territory.TerritoryRecord, len(s.Territories))
		for id, rec := range s.Territories {
			out.Territories[id] = rec.Clone()
		}
	}
	return out
}

// DistrictIDs 按 id 排序，输出稳定。
func (s WorldState) DistrictIDs() []types.DistrictID {
	return slices.Sorted(maps.Keys(s.CityDistricts))
}

// 默认世界：五个街区、三条初始事件、空排行榜。
var defaultCrimeLevels = []struct {
	id    types.DistrictID
	crime int
}{
	{"downtown", 45},
	{"eastside", 30},
	{"industrial", 60},
	{"waterfront", 70},
	{"nightlife", 80},
}

func defaultDistricts() map[types.DistrictID]CityDistrict {
	out := make(map[types.DistrictID]CityDistrict, len(defaultCrimeLevels))
	for _, d := range defaultCrimeLevels {
		out[d.id] = CityDistrict{CrimeLevel: d.crime}
	}
	return out
}

func defaultEvents(now time.Time) []WorldEvent {
	ts := now.UnixMilli()
	return []WorldEvent{
		{ID: 1, Type: "police_crackdown", District: "downtown", Description: "Police have doubled patrols downtown.", RemainingMS: (24 * time.Hour).Milliseconds(), CreatedAt: ts},
		{ID: 2, Type: "gang_war", District: "waterfront", Description: "Two crews are fighting over the docks.", RemainingMS: (12 * time.Hour).Milliseconds(), CreatedAt: ts},
		{ID: 3, Type: "market_boom", District: "nightlife", Description: "Club season is packing the strip.", RemainingMS: (48 * time.Hour).Milliseconds(), CreatedAt: ts},
	}
}

func DefaultWorldState(now time.Time) WorldState {
	return WorldState{
		CityDistricts: defaultDistricts(),
		CityEvents:    defaultEvents(now),
		Leaderboard:   []LeaderboardEntry{},
	}
}

// DecodeWorldState 逐个顶层 key 解码，缺失或损坏的 key 单独回退默认值；
// 返回的 error 汇总了所有回退原因，调用方只用于打日志。
func DecodeWorldState(raw []byte, now time.Time) (WorldState, error) {
	def := DefaultWorldState(now)

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		if err == nil {
			err = fmt.Errorf("world document is not an object")
		}
		return def, fmt.Errorf("decode world document: %w", err)
	}

	var errs error
	out := def

	if districts, err := decodeKey[map[types.DistrictID]CityDistrict](doc, KeyCityDistricts); err != nil {
		errs = multierr.Append(errs, err)
	} else if districts != nil {
		// 存档里缺的默认街区补回来
		for id, d := range def.CityDistricts {
			if _, ok := districts[id]; !ok {
				districts[id] = d
			}
		}
		out.CityDistricts = districts
	}

	if events, err := decodeKey[[]WorldEvent](doc, KeyCityEvents); err != nil {
		errs = multierr.Append(errs, err)
	} else if events != nil {
		out.CityEvents = events
	}

	if board, err := decodeKey[[]LeaderboardEntry](doc, KeyLeaderboard); err != nil {
		errs = multierr.Append(errs, err)
	} else if board != nil {
		out.Leaderboard = board
	}

	if recs, err := decodeKey[map[types.DistrictID]territory.TerritoryRecord](doc, KeyTerritories); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		out.Territories = recs
	}

	if v, err := decodeKey[uint64](doc, KeyVersion); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		out.Version = v
	}
	if v, err := decodeKey[int64](doc, KeySavedAt); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		out.SavedAt = v
	}
	return out, errs
}

// decodeKey 缺失或为 null 时返回零值且无错误。
func decodeKey[T any](doc map[string]json.RawMessage, key string) (T, error) {
	var zero T
	raw, ok := doc[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

func EncodeWorldState(s WorldState) ([]byte, error) {
	return json.Marshal(s)
}

// WorldPersistSnapshot 交给仓储写出的一份已编码文档。
type WorldPersistSnapshot struct {
	Version uint64
	SavedAt time.Time
	Payload []byte
}
