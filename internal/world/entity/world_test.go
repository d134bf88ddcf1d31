package entity

import (
	"encoding/json"
	"testing"
	"time"

	"Underworld/internal/shared/types"
	territory "Underworld/internal/territory/entity"
)

var epoch = time.UnixMilli(1_700_000_000_000)

func TestDefaultWorldState_形状(t *testing.T) {
	s := DefaultWorldState(epoch)
	if len(s.CityDistricts) != 5 {
		t.Fatalf("districts = %d, want 5", len(s.CityDistricts))
	}
	if len(s.CityEvents) != 3 {
		t.Fatalf("events = %d, want 3", len(s.CityEvents))
	}
	if s.Leaderboard == nil || len(s.Leaderboard) != 0 {
		t.Fatalf("leaderboard = %#v, want empty non-nil", s.Leaderboard)
	}
	if d := s.CityDistricts["nightlife"]; d.CrimeLevel != 80 || d.ControlledBy != nil {
		t.Fatalf("nightlife = %+v", d)
	}
}

func TestDecodeWorldState_损坏文档回退默认(t *testing.T) {
	for _, raw := range []string{"", "not json", "[]", "null"} {
		s, err := DecodeWorldState([]byte(raw), epoch)
		if err == nil {
			t.Fatalf("%q: want error", raw)
		}
		if len(s.CityDistricts) != 5 || len(s.CityEvents) != 3 || len(s.Leaderboard) != 0 {
			t.Fatalf("%q: not default shape: %+v", raw, s)
		}
	}
}

func TestDecodeWorldState_逐key合并(t *testing.T) {
	raw := `{
		"cityDistricts": {"downtown": {"controlledBy": "vito", "crimeLevel": 10}},
		"cityEvents": "garbage",
		"leaderboard": [{"name": "vito", "reputation": 40, "territory": 1}],
		"unknownKey": 1
	}`
	s, err := DecodeWorldState([]byte(raw), epoch)
	if err == nil {
		t.Fatalf("want error for malformed cityEvents")
	}
	down := s.CityDistricts["downtown"]
	if down.ControlledBy == nil || *down.ControlledBy != "vito" || down.CrimeLevel != 10 {
		t.Fatalf("downtown = %+v", down)
	}
	if len(s.CityDistricts) != 5 {
		t.Fatalf("missing default districts not restored: %d", len(s.CityDistricts))
	}
	if len(s.CityEvents) != 3 {
		t.Fatalf("malformed events should fall back to default, got %d", len(s.CityEvents))
	}
	if len(s.Leaderboard) != 1 || s.Leaderboard[0].Name != "vito" {
		t.Fatalf("leaderboard = %+v", s.Leaderboard)
	}
}

func TestEncodeDecode_保留领地记录(t *testing.T) {
	s := DefaultWorldState(epoch)
	rec := territory.NewRecord("eastside")
	rec.Owner = 7
	rec.Residents = append(rec.Residents, 7, 9)
	s.Territories = map[types.DistrictID]territory.TerritoryRecord{"eastside": rec}
	s.Version = 4

	raw, err := EncodeWorldState(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		t.Fatalf("decode keys: %v", err)
	}
	for _, k := range []string{KeyCityDistricts, KeyCityEvents, KeyLeaderboard, KeyTerritories} {
		if _, ok := keys[k]; !ok {
			t.Fatalf("key %s missing in %s", k, raw)
		}
	}

	got, err := DecodeWorldState(raw, epoch)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != 4 {
		t.Fatalf("version = %d", got.Version)
	}
	r := got.Territories["eastside"]
	if r.Owner != 7 || len(r.Residents) != 2 || r.Defense != territory.DefaultDefense {
		t.Fatalf("record = %+v", r)
	}
}

func TestClone_互不影响(t *testing.T) {
	s := DefaultWorldState(epoch)
	name := "vito"
	s.CityDistricts["downtown"] = CityDistrict{ControlledBy: &name, CrimeLevel: 45}
	c := s.Clone()
	*c.CityDistricts["downtown"].ControlledBy = "carlo"
	c.CityEvents[0].Type = "changed"
	if *s.CityDistricts["downtown"].ControlledBy != "vito" || s.CityEvents[0].Type == "changed" {
		t.Fatalf("clone shares memory with source")
	}
}

func TestWorldEvent_Advance(t *testing.T) {
	e := WorldEvent{RemainingMS: 1500}
	if !e.Advance(time.Second) || e.RemainingMS != 500 {
		t.Fatalf("after 1s: %+v", e)
	}
	if e.Advance(time.Second) {
		t.Fatalf("event should expire, remaining %d", e.RemainingMS)
	}
}
