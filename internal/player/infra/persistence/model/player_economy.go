package model

import "time"

// PlayerEconomy 玩家经济状态表，声望与技能以 JSON 列存储。
type PlayerEconomy struct {
	ID              int64          `gorm:"column:id;primaryKey;autoIncrement:false;comment:玩家id" json:"id"`
	Name            string         `gorm:"column:name;type:varchar(64);not null;default:''" json:"name"`
	Level           int            `gorm:"column:level;not null;default:1" json:"level"`
	Cash            int64          `gorm:"column:cash;not null;default:0" json:"cash"`
	DirtyCash       int64          `gorm:"column:dirty_cash;not null;default:0" json:"dirty_cash"`
	Ammo            int            `gorm:"column:ammo;not null;default:0" json:"ammo"`
	Wanted          int            `gorm:"column:wanted;not null;default:0" json:"wanted"`
	GangSize        int            `gorm:"column:gang_size;not null;default:1" json:"gang_size"`
	Energy          int            `gorm:"column:energy;not null;default:100" json:"energy"`
	Reputation      map[string]int `gorm:"column:reputation;type:json;serializer:json" json:"reputation"`
	Skills          map[string]int `gorm:"column:skills;type:json;serializer:json" json:"skills"`
	LastRelocation  int64          `gorm:"column:last_relocation;not null;default:0;comment:unix ms" json:"last_relocation"`
	LastEnergyRegen int64          `gorm:"column:last_energy_regen;not null;default:0;comment:unix ms" json:"last_energy_regen"`
	LastDailyTick   string         `gorm:"column:last_daily_tick;type:varchar(10);not null;default:''" json:"last_daily_tick"`
	Version         uint64         `gorm:"column:version;not null;default:0" json:"version"`
	UpdatedAt       time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (PlayerEconomy) TableName() string {
	return "player_economy"
}
