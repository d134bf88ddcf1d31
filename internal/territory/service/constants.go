package service

import "time"

// 与客户端、存档格式共用的常量，取值不可随意改动。
const (
	TaxRate         = 0.10
	BusinessTaxRate = 0.10

	MoveCooldownMS = 3_600_000
	MoveCooldown   = MoveCooldownMS * time.Millisecond

	MinClaimLevel  = 10
	MinWarGangSize = 5
	WarEnergyCost  = 40
)

// 税率的千分比形式，整数运算避免浮点截断误差。
const (
	taxPermille         = 100
	businessTaxPermille = 100
)
