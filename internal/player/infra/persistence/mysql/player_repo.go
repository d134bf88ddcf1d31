package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"Underworld/internal/player/entity"
	"Underworld/internal/player/infra/persistence/model"
	"Underworld/modules/kit/errx"
)

type PlayerRepo struct {
	db *gorm.DB
}

func NewPlayerRepo(db *gorm.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// AutoMigrate 建表，启动时调用一次。
func (r *PlayerRepo) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&model.PlayerEconomy{})
}

func (r *PlayerRepo) WithTx(tx *gorm.DB) *PlayerRepo {
	return &PlayerRepo{db: tx}
}

const OpLoadPlayer = "repo.player.LoadPlayer"

func (r *PlayerRepo) LoadPlayer(ctx context.Context, id entity.PlayerID) (*entity.Player, error) {
	var m model.PlayerEconomy
	err := r.db.WithContext(ctx).Where("id = ?", int64(id)).First(&m).Error

	switch {
	case err == nil:
		return entity.NewPlayer(model.ToState(&m)), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, entity.ErrPlayerNotFound.WithData("player_id", int64(id))
	default:
		return nil, errx.ErrPersistence.WithCause(err).WithDataMap(map[string]any{"op": OpLoadPlayer, "player_id": int64(id)})
	}
}

const OpSnapshot = "repo.player.Snapshot"

// Snapshot 整行覆盖保存。写入由 PlayerDC 串行化，版本单调递增。
func (r *PlayerRepo) Snapshot(ctx context.Context, s *entity.PlayerPersistSnapshot) error {
	if s == nil {
		return nil
	}
	m := model.FromSnapshot(s)
	err := r.db.WithContext(ctx).Save(m).Error
	if err != nil {
		return errx.ErrPersistence.WithCause(err).WithDataMap(map[string]any{"op": OpSnapshot, "player_id": m.ID})
	}
	return nil
}
