package passive

import (
	"context"
	"errors"
	"math"
	"testing"

	"Underworld/internal/shared/types"
)

type subject struct {
	rep    map[string]int
	cash   int64
	dirty  int64
	ammo   int
	wanted int
}

func (s *subject) ID() types.PlayerID { return 1 }
func (s *subject) Reputation(f string) (int, bool) {
	v, ok := s.rep[f]
	return v, ok
}
func (s *subject) Cash() int64             { return s.cash }
func (s *subject) CreditCash(n int64)      { s.cash += n }
func (s *subject) CreditDirtyCash(n int64) { s.dirty += n }
func (s *subject) AddAmmo(n int)           { s.ammo += n }
func (s *subject) ReduceWanted(n int) int {
	cut := min(n, s.wanted)
	s.wanted -= cut
	return cut
}

// scripted 按顺序吐出预设的随机数。
type scripted struct {
	floats []float64
	ints   []int
}

func (r *scripted) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scripted) Intn(n int) int {
	v := r.ints[0]
	r.ints = r.ints[1:]
	return min(v, n-1)
}

var ctx = context.Background()

func TestInterest_超过上限按5万封顶(t *testing.T) {
	s := &subject{rep: map[string]int{FactionFinanciers: 10}, cash: 2_000_000}
	report := NewEngine(&scripted{}, nil).ApplyDailyPassives(ctx, s)
	if s.cash != 2_050_000 {
		t.Fatalf("利息应封顶为 50000, cash=%d", s.cash)
	}
	if len(report.Applied) != 1 || report.Applied[0].Amount != 50_000 || report.Err != nil {
		t.Fatalf("report=%+v", report)
	}
	if Interest(1999) != 99 || Interest(-5) != 0 {
		t.Fatalf("利息应向下取整且负余额不计息")
	}
}

func TestInterest_大额余额不溢出(t *testing.T) {
	for _, cash := range []int64{200_000_000_000_000_000, math.MaxInt64} {
		if got := Interest(cash); got != InterestCap {
			t.Fatalf("cash=%d interest=%d", cash, got)
		}
	}
	if Interest(1_000_999) != 50_049 {
		t.Fatalf("余数部分应向下取整: %d", Interest(1_000_999))
	}
}

func TestHasPassive_门槛为10(t *testing.T) {
	s := &subject{rep: map[string]int{FactionCartel: 9, FactionCorruptCops: 10, FactionArmsDealers: 500}}
	if HasPassive(s, FactionCartel) || !HasPassive(s, FactionCorruptCops) {
		t.Fatalf("门槛判断错误")
	}
	if HasPassive(s, FactionArmsDealers) {
		t.Fatalf("越界声望不应解锁被动")
	}
	if HasPassive(s, FactionFinanciers) {
		t.Fatalf("没有声望记录不应解锁")
	}
}

func TestMultipliers_未解锁时为1(t *testing.T) {
	none := &subject{rep: map[string]int{}}
	if m := MultipliersOf(none); m != (Multipliers{1, 1, 1}) {
		t.Fatalf("未解锁倍率应全为 1: %+v", m)
	}
	all := &subject{rep: map[string]int{FactionArmsDealers: 50, FactionCartel: 50, FactionCorruptCops: 50}}
	m := MultipliersOf(all)
	if m.WeaponPrice != 0.85 || m.DrugIncome != 1.2 || m.ViolenceHeat != 0.75 {
		t.Fatalf("m=%+v", m)
	}
}

func TestApplyDailyPassives_四个派系各自生效(t *testing.T) {
	s := &subject{
		rep:    map[string]int{FactionFinanciers: 10, FactionArmsDealers: 10, FactionCartel: 10, FactionCorruptCops: 10},
		cash:   1000,
		wanted: 1,
	}
	// 军火：0.1 < 0.25 命中，Intn=2 → 3 发；卡特尔：Intn=0 → 50；黑警：Intn=2 → 减 3（下限 0）
	r := &scripted{floats: []float64{0.1}, ints: []int{2, 0, 2}}
	report := NewEngine(r, nil).ApplyDailyPassives(ctx, s)

	if report.Err != nil || len(report.Applied) != 4 {
		t.Fatalf("report=%+v", report)
	}
	if s.cash != 1050 || s.ammo != 3 || s.dirty != 50 || s.wanted != 0 {
		t.Fatalf("结算结果不符: %+v", s)
	}
}

func TestApplyDailyPassives_弹药未命中不发放(t *testing.T) {
	s := &subject{rep: map[string]int{FactionArmsDealers: 10}}
	report := NewEngine(&scripted{floats: []float64{0.25}}, nil).ApplyDailyPassives(ctx, s)
	if s.ammo != 0 || report.Applied[0].Amount != 0 {
		t.Fatalf("0.25 不应命中 25%% 概率: ammo=%d", s.ammo)
	}
}

func TestApplyDailyPassives_单个派系数据异常不影响其他派系(t *testing.T) {
	s := &subject{
		rep:  map[string]int{FactionFinanciers: 10, FactionCartel: 101},
		cash: 100,
	}
	report := NewEngine(&scripted{}, nil).ApplyDailyPassives(ctx, s)
	if s.cash != 105 {
		t.Fatalf("理财派系仍应生效, cash=%d", s.cash)
	}
	if s.dirty != 0 {
		t.Fatalf("异常派系不应生效")
	}
	errs := report.Errors()
	if len(errs) != 1 || !errors.Is(errs[0], ErrMalformedReputation) {
		t.Fatalf("errs=%v", errs)
	}
}

func TestDirtyTrickle_范围50到200(t *testing.T) {
	s := &subject{rep: map[string]int{FactionCartel: 10}}
	e := NewEngine(nil, nil)
	for i := 0; i < 200; i++ {
		before := s.dirty
		e.ApplyDailyPassives(ctx, s)
		got := s.dirty - before
		if got < DirtyMin || got > DirtyMax {
			t.Fatalf("脏钱增量越界: %d", got)
		}
	}
}
