package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"Underworld/internal/world/app/port"
	"Underworld/internal/world/entity"
	"Underworld/internal/world/infra/persistence/model"
	"Underworld/modules/kit/errx"
)

type WorldRepository struct {
	db *gorm.DB
}

func NewWorldRepository(db *gorm.DB) *WorldRepository {
	return &WorldRepository{db: db}
}

func (r *WorldRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&model.WorldStateRow{})
}

const OpLoadWorld = "repo.world.LoadWorld"

func (r *WorldRepository) LoadWorld(ctx context.Context) ([]byte, error) {
	var m model.WorldStateRow
	err := r.db.WithContext(ctx).Where("id = ?", model.WorldRowID).First(&m).Error
	switch {
	case err == nil:
		return m.Payload, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, port.ErrWorldNotFound
	default:
		return nil, errx.ErrPersistence.WithCause(err).WithData("op", OpLoadWorld)
	}
}

const OpSaveWorld = "repo.world.Save"

func (r *WorldRepository) Save(ctx context.Context, s *entity.WorldPersistSnapshot) error {
	if s == nil {
		return nil
	}
	if err := r.db.WithContext(ctx).Save(model.FromSnapshot(s)).Error; err != nil {
		return errx.ErrPersistence.WithCause(err).WithDataMap(map[string]any{"op": OpSaveWorld, "version": s.Version})
	}
	return nil
}
