package service

import (
	"math"

	"Underworld/internal/shared/types"
	"Underworld/modules/kit/errx"
)

const CodeInvalidAmount errx.Code = "INVALID_AMOUNT"

var ErrInvalidAmount = errx.NewValidation(CodeInvalidAmount, "金额不能为负")

// OwnerLookup 读取街区主人，领地表实现它（读时持街区锁，拿到的是完整快照）。
type OwnerLookup interface {
	Owner(id types.DistrictID) (types.PlayerID, bool)
}

// MultiplierLookup 读取街区经营倍率，街区目录实现它。
type MultiplierLookup interface {
	BusinessMultiplier(id types.DistrictID) float64
}

// ResidentIncome 一笔收入的拆分结果。
type ResidentIncome struct {
	Gross int64          `json:"gross"`
	Net   int64          `json:"net"`
	Tax   int64          `json:"tax"`
	Owner types.PlayerID `json:"owner,omitempty"`
}

// floorPermille 先除后乘，大额也不会溢出；amount、permille 均非负。
func floorPermille(amount int64, permille int64) int64 {
	return amount/1000*permille + amount%1000*permille/1000
}

// floorMul 浮点乘倍率后向下取整，超出 int64 时封顶。
func floorMul(base int64, mult float64) int64 {
	v := math.Floor(float64(base) * mult)
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func taxedBy(owners OwnerLookup, player types.PlayerID, district types.DistrictID) (types.PlayerID, bool) {
	owner, ok := owners.Owner(district)
	if !ok || owner == types.NoPlayer || owner == player {
		return types.NoPlayer, false
	}
	return owner, true
}

// ComputeResidentIncome 拆分任务/被动收入：街区有主且不是自己时抽 10%（向下取整）。
// 纯计算，不记账也不发钱。
func ComputeResidentIncome(owners OwnerLookup, player types.PlayerID, district types.DistrictID, base int64) (ResidentIncome, error) {
	if base < 0 {
		return ResidentIncome{}, ErrInvalidAmount.WithData("amount", base)
	}
	out := ResidentIncome{Gross: base, Net: base}
	if owner, ok := taxedBy(owners, player, district); ok {
		out.Owner = owner
		out.Tax = floorPermille(base, taxPermille)
		out.Net = base - out.Tax
	}
	return out, nil
}

// ComputeBusinessIncome 经营收入先乘街区经营倍率（向下取整），再按 BusinessTaxRate 抽税。
func ComputeBusinessIncome(owners OwnerLookup, mult MultiplierLookup, player types.PlayerID, district types.DistrictID, base int64) (ResidentIncome, error) {
	if base < 0 {
		return ResidentIncome{}, ErrInvalidAmount.WithData("amount", base)
	}
	gross := floorMul(base, mult.BusinessMultiplier(district))
	out := ResidentIncome{Gross: gross, Net: gross}
	if owner, ok := taxedBy(owners, player, district); ok {
		out.Owner = owner
		out.Tax = floorPermille(gross, businessTaxPermille)
		out.Net = gross - out.Tax
	}
	return out, nil
}
