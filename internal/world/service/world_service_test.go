package service

import (
	"context"
	"testing"
	"time"

	"Underworld/internal/shared/actor/messages"
	"Underworld/internal/shared/types"
	territory "Underworld/internal/territory/entity"
	"Underworld/internal/world/entity"
)

type fakeGateway struct {
	saves   []entity.WorldState
	flushed int
}

func (g *fakeGateway) SaveWorldState(s entity.WorldState) { g.saves = append(g.saves, s) }
func (g *fakeGateway) FlushWorldState(context.Context) error {
	g.flushed++
	return nil
}

func (g *fakeGateway) last(t *testing.T) entity.WorldState {
	t.Helper()
	if len(g.saves) == 0 {
		t.Fatalf("no save scheduled")
	}
	return g.saves[len(g.saves)-1]
}

type seqIDs struct{ n int64 }

func (s *seqIDs) NextID() int64 {
	s.n++
	return 1000 + s.n
}

type recPublisher struct{ events []entity.WorldEvent }

func (p *recPublisher) Publish(e entity.WorldEvent) { p.events = append(p.events, e) }

var ids = []types.DistrictID{"downtown", "eastside", "industrial", "waterfront", "nightlife"}

type fixture struct {
	store *territory.Store
	gw    *fakeGateway
	pub   *recPublisher
	now   time.Time
	svc   *WorldService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: territory.NewStore(ids),
		gw:    &fakeGateway{},
		pub:   &recPublisher{},
		now:   time.UnixMilli(1_700_000_000_000),
	}
	f.svc = NewWorldService(f.store, entity.DefaultWorldState(f.now), f.gw, &seqIDs{},
		WithPublisher(f.pub),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func vito() messages.Standing {
	return messages.Standing{Player: 7, Name: "vito", Reputation: 30}
}

func TestOnClaimed_同步控制者与事件(t *testing.T) {
	f := newFixture(t)
	if err := f.store.SetOwner("eastside", 7); err != nil {
		t.Fatalf("set owner: %v", err)
	}
	f.svc.OnClaimed(messages.TerritoryClaimed{District: "eastside", Owner: vito()})

	s := f.gw.last(t)
	d := s.CityDistricts["eastside"]
	if d.ControlledBy == nil || *d.ControlledBy != "vito" {
		t.Fatalf("controlledBy = %v", d.ControlledBy)
	}
	if len(s.CityEvents) != 4 || s.CityEvents[3].Type != EventClaimed || s.CityEvents[3].ID != 1001 {
		t.Fatalf("events = %+v", s.CityEvents)
	}
	if len(f.pub.events) != 1 {
		t.Fatalf("published = %d, want 1", len(f.pub.events))
	}
	if len(s.Leaderboard) != 1 || s.Leaderboard[0].Territory != 1 || s.Leaderboard[0].Name != "vito" {
		t.Fatalf("leaderboard = %+v", s.Leaderboard)
	}
	if s.Territories["eastside"].Owner != 7 {
		t.Fatalf("territories not carried in save: %+v", s.Territories["eastside"])
	}
}

func TestOnWar_胜负事件与犯罪度(t *testing.T) {
	f := newFixture(t)
	_ = f.store.SetOwner("waterfront", 9)
	f.svc.OnClaimed(messages.TerritoryClaimed{District: "waterfront", Owner: messages.Standing{Player: 9, Name: "carlo"}})

	f.svc.OnWar(messages.WarWaged{District: "waterfront", Attacker: vito(), Defender: 9, AttackerWon: false})
	s := f.gw.last(t)
	if got := s.CityEvents[len(s.CityEvents)-1]; got.Type != EventDefenseHeld {
		t.Fatalf("last event = %+v", got)
	}
	if *s.CityDistricts["waterfront"].ControlledBy != "carlo" {
		t.Fatalf("failed war must not change controller")
	}
	if s.CityDistricts["waterfront"].CrimeLevel != 75 {
		t.Fatalf("crime = %d, want 75", s.CityDistricts["waterfront"].CrimeLevel)
	}

	_ = f.store.SetOwner("waterfront", 7)
	f.svc.OnWar(messages.WarWaged{District: "waterfront", Attacker: vito(), Defender: 9, AttackerWon: true})
	s = f.gw.last(t)
	if got := s.CityEvents[len(s.CityEvents)-1]; got.Type != EventConquered {
		t.Fatalf("last event = %+v", got)
	}
	if *s.CityDistricts["waterfront"].ControlledBy != "vito" {
		t.Fatalf("controller = %s", *s.CityDistricts["waterfront"].ControlledBy)
	}
	if s.Leaderboard[0].Name != "vito" || s.Leaderboard[0].Territory != 1 {
		t.Fatalf("leaderboard = %+v", s.Leaderboard)
	}
}

func TestTick_事件过期与防御恢复(t *testing.T) {
	f := newFixture(t)
	_ = f.store.SetOwner("downtown", 7)
	_ = f.store.Update("downtown", func(tx *territory.Tx) error {
		tx.SetDefense(90)
		return nil
	})

	// 默认事件最短 12 小时
	f.now = f.now.Add(13 * time.Hour)
	f.svc.Tick(f.now)
	s := f.gw.last(t)
	if len(s.CityEvents) != 2 {
		t.Fatalf("events after 13h = %d, want 2", len(s.CityEvents))
	}
	for _, e := range s.CityEvents {
		if e.Type == "gang_war" {
			t.Fatalf("expired event kept: %+v", e)
		}
	}
	if rec, _ := f.store.Snapshot("downtown"); rec.Defense != 95 {
		t.Fatalf("defense = %d, want 95", rec.Defense)
	}
	if *s.CityDistricts["downtown"].ControlledBy != "player-7" {
		t.Fatalf("controller of unknown owner = %s", *s.CityDistricts["downtown"].ControlledBy)
	}

	f.svc.Tick(f.now)
	f.svc.Tick(f.now)
	if rec, _ := f.store.Snapshot("downtown"); rec.Defense != territory.DefaultDefense {
		t.Fatalf("defense must cap at %d, got %d", territory.DefaultDefense, rec.Defense)
	}
}

func TestNewWorldService_从排行榜恢复名字(t *testing.T) {
	store := territory.NewStore(ids)
	_ = store.SetOwner("nightlife", 7)
	state := entity.DefaultWorldState(time.Now())
	state.Leaderboard = []entity.LeaderboardEntry{{PlayerID: 7, Name: "vito", Reputation: 12, Territory: 1}}

	svc := NewWorldService(store, state, &fakeGateway{}, &seqIDs{})
	got := svc.State()
	if c := got.CityDistricts["nightlife"].ControlledBy; c == nil || *c != "vito" {
		t.Fatalf("controlledBy = %v", c)
	}
	if got.Leaderboard[0].Reputation != 12 {
		t.Fatalf("leaderboard = %+v", got.Leaderboard)
	}
}

func TestFlush_同步写出(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if f.gw.flushed != 1 || len(f.gw.saves) != 1 {
		t.Fatalf("flushed = %d saves = %d", f.gw.flushed, len(f.gw.saves))
	}
}

func TestLeaderboard_截断与排序(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= LeaderboardSize+3; i++ {
		f.svc.OnRelocated(messages.ResidentMoved{District: "eastside", Resident: messages.Standing{Player: types.PlayerID(i), Reputation: i}})
	}
	s := f.gw.last(t)
	if len(s.Leaderboard) != LeaderboardSize {
		t.Fatalf("leaderboard len = %d", len(s.Leaderboard))
	}
	if s.Leaderboard[0].Reputation != LeaderboardSize+3 {
		t.Fatalf("top = %+v", s.Leaderboard[0])
	}
}
