package actor

import (
	"context"
	"sync"
	"testing"
	"time"

	"Underworld/internal/passive"
	"Underworld/internal/player/actors"
	"Underworld/internal/player/entity"
	"Underworld/internal/player/infra/persistence/memory"
	"Underworld/internal/shared/actor/messages"
	"Underworld/internal/shared/gameconfig/district"
	"Underworld/internal/shared/types"
	"Underworld/internal/shared/utils"
	territoryentity "Underworld/internal/territory/entity"
	territory "Underworld/internal/territory/service"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	repo  *memory.PlayerRepo
	store *territoryentity.Store
	rt    *Runtime
}

func newHarness(t *testing.T, win bool, states ...entity.State) *harness {
	t.Helper()
	reg := district.Default()
	store := territoryentity.NewStore(reg.IDs())
	clock := func() time.Time { return now }
	resolver := territory.NewResolver(reg, store,
		territory.WithClock(clock),
		territory.WithCombat(territory.CombatFunc(func(context.Context, territory.WarContext) territory.WarResult {
			return territory.WarResult{AttackerWon: win, DefensePenalty: 10}
		})),
	)
	collector := territory.NewCollector(reg, store, nil)

	repo := memory.NewPlayerRepo()
	repo.Seed(states...)
	rt := NewRuntime(&actors.Deps{
		Repo:       repo,
		Store:      store,
		Resolver:   resolver,
		Collector:  collector,
		Passives:   passive.NewEngine(utils.NewLockedRand(1), nil),
		FlushEvery: time.Hour,
		Now:        clock,
	}, 2*time.Second)
	collector.SetListener(rt)
	t.Cleanup(rt.Shutdown)
	return &harness{repo: repo, store: store, rt: rt}
}

func boss(id types.PlayerID) entity.State {
	s := entity.NewState(id, "boss"+id.String(), now)
	s.Level = 20
	s.Cash = 2_000_000
	s.GangSize = 10
	return s
}

func TestRuntime_占领成功扣费(t *testing.T) {
	h := newHarness(t, true, boss(1))
	reply, err := h.rt.Claim(context.Background(), 1, "eastside")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !reply.OK || reply.Cost != 250_000 {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.State == nil || reply.State.Cash != 2_000_000-250_000 {
		t.Fatalf("state = %+v", reply.State)
	}
	if owner, _ := h.store.Owner("eastside"); owner != 1 {
		t.Fatalf("owner = %d", owner)
	}
}

func TestRuntime_等级不足返回原因码(t *testing.T) {
	h := newHarness(t, true)
	// 不存在的玩家按默认值创建，等级 1
	reply, err := h.rt.Claim(context.Background(), 42, "eastside")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if reply.OK || reply.Reason != territory.ReasonInsufficientLevel.ReasonCode() {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.State.Cash != entity.DefaultCash {
		t.Fatalf("failed claim must not charge, cash = %d", reply.State.Cash)
	}
}

func TestRuntime_并发占领只有一个成功(t *testing.T) {
	var players []entity.State
	for i := 1; i <= 8; i++ {
		players = append(players, boss(types.PlayerID(i)))
	}
	h := newHarness(t, true, players...)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(pid types.PlayerID) {
			defer wg.Done()
			reply, err := h.rt.Claim(context.Background(), pid, "nightlife")
			if err != nil {
				t.Errorf("claim %d: %v", pid, err)
				return
			}
			if reply.OK {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}(types.PlayerID(i))
	}
	wg.Wait()
	if oks != 1 {
		t.Fatalf("successful claims = %d, want 1", oks)
	}
}

func TestRuntime_战争失败仍扣体力(t *testing.T) {
	h := newHarness(t, false, boss(1), boss(2))
	if r, _ := h.rt.Claim(context.Background(), 1, "industrial"); !r.OK {
		t.Fatalf("claim: %+v", r)
	}
	reply, err := h.rt.War(context.Background(), 2, "industrial")
	if err != nil {
		t.Fatalf("war: %v", err)
	}
	if !reply.OK || reply.War == nil || reply.War.AttackerWon {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.State.Energy != entity.MaxEnergy-territory.WarEnergyCost {
		t.Fatalf("energy = %d", reply.State.Energy)
	}
	rec, _ := h.store.Snapshot("industrial")
	if rec.Owner != 1 || rec.Defense != territoryentity.DefaultDefense-10 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestRuntime_税款转给街区主人(t *testing.T) {
	h := newHarness(t, true, boss(1), boss(2))
	if r, _ := h.rt.Claim(context.Background(), 1, "eastside"); !r.OK {
		t.Fatalf("claim: %+v", r)
	}
	if err := h.store.AddResident("eastside", 2); err != nil {
		t.Fatalf("resident: %v", err)
	}
	inc, err := h.rt.CollectIncome(context.Background(), 2, 1000, "resident")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !inc.OK || inc.Net != 900 || inc.Tax != 100 || inc.Owner != 1 {
		t.Fatalf("income = %+v", inc)
	}

	// 税款异步到账，同一邮箱里 State 排在 TaxCredit 之后
	want := int64(2_000_000 - 250_000 + 100)
	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := h.rt.State(context.Background(), 1)
		if err != nil {
			t.Fatalf("state: %v", err)
		}
		if st.State.Cash == want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("owner cash = %d, want %d", st.State.Cash, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
	rec, _ := h.store.Snapshot("eastside")
	if rec.TaxCollected != 100 {
		t.Fatalf("tax collected = %d", rec.TaxCollected)
	}
}

func TestRuntime_非法收入类型(t *testing.T) {
	h := newHarness(t, true, boss(1))
	inc, err := h.rt.CollectIncome(context.Background(), 1, 100, "lottery")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if inc.OK || inc.Reason == "" {
		t.Fatalf("reply = %+v", inc)
	}
}

func TestRuntime_成长后可以占领(t *testing.T) {
	s := entity.NewState(1, "rookie", now)
	s.Cash = 1_000_000
	h := newHarness(t, true, s)

	reply, err := h.rt.Claim(context.Background(), 1, "eastside")
	if err != nil || reply.Reason != territory.ReasonInsufficientLevel.ReasonCode() {
		t.Fatalf("新玩家应等级不足: %+v err=%v", reply, err)
	}

	gang := 6
	st, err := h.rt.Progress(context.Background(), messages.ProgressCmd{
		PlayerBaseMessage: messages.PlayerBaseMessage{Player: 1},
		Level:             12,
		GangSize:          &gang,
		Wanted:            3,
		Reputation:        map[string]int{passive.FactionFinanciers: 15},
		Skills:            map[string]int{"leadership": 2},
	})
	if err != nil || !st.OK {
		t.Fatalf("progress: %+v err=%v", st, err)
	}
	if st.State.Level != 12 || st.State.GangSize != 6 || st.State.Wanted != 3 ||
		st.State.Reputation[passive.FactionFinanciers] != 15 || st.State.Skills["leadership"] != 2 {
		t.Fatalf("state = %+v", st.State)
	}

	reply, err = h.rt.Claim(context.Background(), 1, "eastside")
	if err != nil || !reply.OK {
		t.Fatalf("成长后应能占领: %+v err=%v", reply, err)
	}
}

func TestRuntime_成长数据非法时不改状态(t *testing.T) {
	h := newHarness(t, true, boss(1))
	st, err := h.rt.Progress(context.Background(), messages.ProgressCmd{
		PlayerBaseMessage: messages.PlayerBaseMessage{Player: 1},
		Level:             30,
		Skills:            map[string]int{"combat": 99},
	})
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if st.OK || st.Reason != string(entity.CodeSkillOutOfRange) {
		t.Fatalf("reply = %+v", st)
	}
	cur, _ := h.rt.State(context.Background(), 1)
	if cur.State.Level != 20 {
		t.Fatalf("非法成长不应生效: level=%d", cur.State.Level)
	}
}

func TestRuntime_每日结算一天一次(t *testing.T) {
	s := boss(1)
	s.Reputation = map[string]int{passive.FactionFinanciers: 50}
	h := newHarness(t, true, s)

	first, err := h.rt.DailyTick(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if first.Skipped || len(first.Applied) != 1 || first.Applied[0].Amount != passive.Interest(2_000_000) {
		t.Fatalf("first = %+v", first)
	}
	second, err := h.rt.DailyTick(context.Background(), 1, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !second.Skipped {
		t.Fatalf("second tick on same day must be skipped: %+v", second)
	}
}

func TestRuntime_停止时写回(t *testing.T) {
	h := newHarness(t, true, boss(1))
	if r, _ := h.rt.Claim(context.Background(), 1, "eastside"); !r.OK {
		t.Fatalf("claim: %+v", r)
	}
	h.rt.Shutdown()
	got, ok := h.repo.Get(1)
	if !ok || got.Cash != 2_000_000-250_000 {
		t.Fatalf("persisted = %+v, %v", got, ok)
	}
}

func TestRuntime_非法玩家id(t *testing.T) {
	h := newHarness(t, true)
	if _, err := h.rt.State(context.Background(), 0); CodeFromError(err) != 100 {
		t.Fatalf("err = %v", err)
	}
}
