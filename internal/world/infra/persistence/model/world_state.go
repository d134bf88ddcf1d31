package model

import (
	"time"

	"Underworld/internal/world/entity"
)

// WorldStateRow 世界存档表，只有一行。
type WorldStateRow struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Version   uint64    `gorm:"column:version;not null;default:0" json:"version"`
	Payload   []byte    `gorm:"column:payload;type:longblob;not null" json:"payload"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (WorldStateRow) TableName() string {
	return "world_state"
}

const WorldRowID = "city"

func FromSnapshot(s *entity.WorldPersistSnapshot) *WorldStateRow {
	return &WorldStateRow{
		ID:        WorldRowID,
		Version:   s.Version,
		Payload:   s.Payload,
		UpdatedAt: s.SavedAt,
	}
}
