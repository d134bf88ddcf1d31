package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Underworld/internal/territory/entity"
	"Underworld/modules/kit/errx"
)

var ctx = context.Background()

func TestClaim_连续占领两次_第二次AlreadyClaimed且只扣一次钱(t *testing.T) {
	l := &recListener{}
	r, store, reg := newFixture(WithListener(l))
	p := rich(1)
	cost := reg.ClaimCosts()[0]

	if out := r.Claim(ctx, p, "downtown"); !out.OK || out.Cost != cost {
		t.Fatalf("第一次占领应成功: %+v", out)
	}
	out := r.Claim(ctx, p, "downtown")
	if out.OK || out.Reason != ReasonAlreadyClaimed {
		t.Fatalf("第二次应 AlreadyClaimed: %+v", out)
	}
	if p.cash != 10_000_000-cost {
		t.Fatalf("只应扣一次钱: cash=%d", p.cash)
	}
	if owner, _ := store.Owner("downtown"); owner != 1 {
		t.Fatalf("owner=%d", owner)
	}
	if l.claims != 1 {
		t.Fatalf("只应通知一次占领, got=%d", l.claims)
	}
}

func TestClaim_等级与资金不足(t *testing.T) {
	r, store, _ := newFixture()

	low := rich(2)
	low.level = MinClaimLevel - 1
	if out := r.Claim(ctx, low, "eastside"); out.Reason != ReasonInsufficientLevel {
		t.Fatalf("期望 InsufficientLevel: %+v", out)
	}

	poor := rich(3)
	poor.cash = 100
	if out := r.Claim(ctx, poor, "eastside"); out.Reason != ReasonInsufficientFunds {
		t.Fatalf("期望 InsufficientFunds: %+v", out)
	}
	if poor.cash != 100 {
		t.Fatalf("失败的占领不应扣钱")
	}
	if rec, _ := store.Snapshot("eastside"); rec.Claimed() {
		t.Fatalf("失败的占领不应改变归属")
	}
	if out := r.Claim(ctx, rich(4), "atlantis"); out.Reason != ReasonDistrictNotFound {
		t.Fatalf("期望 DistrictNotFound: %+v", out)
	}
}

func TestClaim_并发占领同一街区只有一人成功(t *testing.T) {
	r, _, _ := newFixture()
	var (
		mu   sync.Mutex
		wins int
		wg   sync.WaitGroup
	)
	for i := 1; i <= 32; i++ {
		wg.Add(1)
		go func(p *fakePlayer) {
			defer wg.Done()
			if r.Claim(ctx, p, "nightlife").OK {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(rich(typesID(i)))
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("期望只有一人占领成功, got=%d", wins)
	}
}

func TestDeclareWar_无主街区TargetNotOwned且不扣体力(t *testing.T) {
	r, _, _ := newFixture(WithCombat(fixedCombat(true, 0)))
	p := rich(1)
	out := r.DeclareWar(ctx, p, "industrial")
	if out.OK || out.Reason != ReasonTargetNotOwned {
		t.Fatalf("期望 TargetNotOwned: %+v", out)
	}
	if p.energy != 100 {
		t.Fatalf("不应扣体力: %d", p.energy)
	}

	// 打自己的街区同样不合法
	_ = r.Claim(ctx, p, "industrial")
	if out := r.DeclareWar(ctx, p, "industrial"); out.Reason != ReasonTargetNotOwned || p.energy != 100 {
		t.Fatalf("对自己开战应被拒: %+v energy=%d", out, p.energy)
	}
}

func TestDeclareWar_帮派人数与体力不足不扣体力(t *testing.T) {
	r, store, _ := newFixture(WithCombat(fixedCombat(true, 0)))
	_ = store.SetOwner("waterfront", 99)

	small := rich(1)
	small.gang = MinWarGangSize - 1
	if out := r.DeclareWar(ctx, small, "waterfront"); out.Reason != ReasonInsufficientGangSize || small.energy != 100 {
		t.Fatalf("期望 InsufficientGangSize 且不扣体力: %+v energy=%d", out, small.energy)
	}

	tired := rich(2)
	tired.energy = WarEnergyCost - 1
	if out := r.DeclareWar(ctx, tired, "waterfront"); out.Reason != ReasonInsufficientEnergy || tired.energy != WarEnergyCost-1 {
		t.Fatalf("期望 InsufficientEnergy: %+v", out)
	}
}

func TestDeclareWar_无论胜负都扣体力(t *testing.T) {
	for _, win := range []bool{true, false} {
		l := &recListener{}
		r, store, _ := newFixture(WithCombat(fixedCombat(win, 12)), WithListener(l))
		_ = store.SetOwner("downtown", 99)
		_ = store.RecordTax("downtown", 500)
		p := rich(1)

		out := r.DeclareWar(ctx, p, "downtown")
		if !out.OK || out.War == nil || out.War.AttackerWon != win {
			t.Fatalf("win=%v out=%+v", win, out)
		}
		if p.energy != 100-WarEnergyCost {
			t.Fatalf("win=%v 应扣 %d 体力, energy=%d", win, WarEnergyCost, p.energy)
		}
		rec, _ := store.Snapshot("downtown")
		if win {
			if rec.Owner != 1 || rec.TaxCollected != 0 || rec.Defense != entity.DefaultDefense {
				t.Fatalf("胜利应易主并清零税收: %+v", rec)
			}
		} else {
			if rec.Owner != 99 || rec.Defense != entity.DefaultDefense-12 || rec.TaxCollected != 500 {
				t.Fatalf("失败应扣守方防御: %+v", rec)
			}
		}
		if l.wars != 1 {
			t.Fatalf("应通知一次战争")
		}
	}
}

func TestDeclareWar_防御扣到0为止(t *testing.T) {
	r, store, _ := newFixture(WithCombat(fixedCombat(false, 1000)))
	_ = store.SetOwner("eastside", 99)
	_ = r.DeclareWar(ctx, rich(1), "eastside")
	if rec, _ := store.Snapshot("eastside"); rec.Defense != 0 {
		t.Fatalf("defense=%d", rec.Defense)
	}
}

func TestRelocate_冷却期内第二次失败且不扣钱(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	r, store, reg := newFixture(WithClock(c.now))
	p := rich(1)
	d, _ := reg.Get("eastside")

	if out := r.Relocate(ctx, p, "eastside"); !out.OK {
		t.Fatalf("第一次搬家应成功: %+v", out)
	}
	if p.cash != 10_000_000-d.MoveCost {
		t.Fatalf("cash=%d", p.cash)
	}
	before := p.cash

	c.advance(30 * time.Minute)
	out := r.Relocate(ctx, p, "nightlife")
	if out.OK || out.Reason != ReasonOnCooldown {
		t.Fatalf("期望 OnCooldown: %+v", out)
	}
	if p.cash != before {
		t.Fatalf("失败的搬家不应扣钱")
	}
	if home, _ := store.ResidenceOf(1); home != "eastside" {
		t.Fatalf("home=%s", home)
	}
	if got := r.CooldownRemaining(p); got != 30*time.Minute {
		t.Fatalf("剩余冷却=%v", got)
	}

	c.advance(30 * time.Minute)
	if out := r.Relocate(ctx, p, "nightlife"); !out.OK {
		t.Fatalf("冷却结束应可搬家: %+v", out)
	}
	if home, _ := store.ResidenceOf(1); home != "nightlife" {
		t.Fatalf("home=%s", home)
	}
	if rec, _ := store.Snapshot("eastside"); rec.HasResident(1) {
		t.Fatalf("应从旧街区移出")
	}
}

func TestRelocate_资金不足与重复入住(t *testing.T) {
	c := &clock{t: time.Now()}
	r, _, _ := newFixture(WithClock(c.now))
	poor := rich(1)
	poor.cash = 0
	if out := r.Relocate(ctx, poor, "downtown"); out.Reason != ReasonInsufficientFunds {
		t.Fatalf("期望 InsufficientFunds: %+v", out)
	}

	p := rich(2)
	_ = r.Relocate(ctx, p, "downtown")
	c.advance(2 * time.Hour)
	if out := r.Relocate(ctx, p, "downtown"); out.Reason != ReasonAlreadyResident {
		t.Fatalf("期望 AlreadyResident: %+v", out)
	}
}

// stingyPlayer 余额看着够，扣款却失败。
type stingyPlayer struct{ *fakePlayer }

func (stingyPlayer) DebitCash(int64) bool { return false }

func TestRelocate_扣款失败不入住(t *testing.T) {
	r, store, _ := newFixture()
	p := stingyPlayer{rich(3)}
	if out := r.Relocate(ctx, p, "downtown"); out.Reason != ReasonInsufficientFunds {
		t.Fatalf("期望 InsufficientFunds: %+v", out)
	}
	if _, ok := store.ResidenceOf(3); ok {
		t.Fatalf("扣款失败不应改住处")
	}
	if !p.relocated.IsZero() {
		t.Fatalf("扣款失败不应记冷却")
	}
}

func TestOutcome_Err映射错误大类(t *testing.T) {
	if (Outcome{OK: true}).Err() != nil {
		t.Fatalf("成功不应有错误")
	}
	err := reject(ReasonOnCooldown).Err()
	if !errors.Is(err, ErrRejected) || errx.KindOf(err) != errx.KindValidation {
		t.Fatalf("err=%v", err)
	}
	var e *errx.Error
	if !errors.As(err, &e) || e.Reason() != "ON_COOLDOWN" {
		t.Fatalf("reason 丢失: %v", err)
	}
	if errx.KindOf(reject(ReasonDistrictNotFound).Err()) != errx.KindNotFound {
		t.Fatalf("未知街区应映射为 not found")
	}
}

func TestStrengthCombat_胜率钳制(t *testing.T) {
	if WinChance(0, 100) != minWinChance || WinChance(1000, 0) != maxWinChance {
		t.Fatalf("胜率应钳在 [%.2f, %.2f]", minWinChance, maxWinChance)
	}
	if got := WinChance(10, 100); got != 0.5 {
		t.Fatalf("10 人对 100 防御应为 0.5, got=%v", got)
	}

	win := StrengthCombat{Rand: seqRand{f: 0.0}}.Resolve(ctx, WarContext{AttackerGang: 10, Defense: 100})
	if !win.AttackerWon || win.DefensePenalty != 0 {
		t.Fatalf("win=%+v", win)
	}
	lose := StrengthCombat{Rand: seqRand{f: 0.99, i: 3}}.Resolve(ctx, WarContext{AttackerGang: 10, Defense: 100})
	if lose.AttackerWon || lose.DefensePenalty != minDefensePenalty+3 {
		t.Fatalf("lose=%+v", lose)
	}
}

type seqRand struct {
	f float64
	i int
}

func (s seqRand) Intn(n int) int   { return min(s.i, n-1) }
func (s seqRand) Float64() float64 { return s.f }
