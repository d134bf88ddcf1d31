package passive

// 派系 key，与玩家声望表的 key 一致。
const (
	FactionFinanciers  = "financiers"
	FactionArmsDealers = "armsDealers"
	FactionCartel      = "cartel"
	FactionCorruptCops = "corruptCops"
)

// PassiveThreshold 声望达到该值即获得派系被动。
const PassiveThreshold = 10

// 声望合法区间，超出视为数据损坏。
const (
	ReputationMin = -100
	ReputationMax = 100
)

const (
	InterestRate     = 0.05
	interestPermille = 50
	InterestCap      = 50_000

	AmmoChance   = 0.25
	AmmoMin      = 1
	AmmoMax      = 5
	DirtyMin     = 50
	DirtyMax     = 200
	WantedCutMin = 1
	WantedCutMax = 3
)

// 派系带来的常驻倍率。
const (
	WeaponPriceDiscount  = 0.85
	DrugIncomeBonus      = 1.2
	ViolenceHeatDiscount = 0.75
	Neutral              = 1.0
)

// Factions 所有派系，按结算顺序排列；各派系效果互不依赖，顺序不影响结果。
var Factions = []string{
	FactionFinanciers,
	FactionArmsDealers,
	FactionCartel,
	FactionCorruptCops,
}
