package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"Underworld/internal/world/app/port"
	"Underworld/internal/world/entity"
	"Underworld/internal/world/infra/persistence/model"
	"Underworld/modules/kit/errx"
)

const schema = `CREATE TABLE IF NOT EXISTS world_state (
	id         TEXT PRIMARY KEY,
	version    INTEGER NOT NULL DEFAULT 0,
	payload    BLOB NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT 0
)`

const upsert = `INSERT INTO world_state (id, version, payload, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET version = excluded.version, payload = excluded.payload, updated_at = excluded.updated_at`

type WorldRepository struct {
	db *sql.DB
}

func NewWorldRepository(db *sql.DB) *WorldRepository {
	return &WorldRepository{db: db}
}

func (r *WorldRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return errx.ErrPersistence.WithMsg("创建 world_state 表失败").WithCause(err)
	}
	return nil
}

func (r *WorldRepository) LoadWorld(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM world_state WHERE id = ?`, model.WorldRowID).Scan(&payload)
	switch {
	case err == nil:
		return payload, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, port.ErrWorldNotFound
	default:
		return nil, errx.ErrPersistence.WithCause(err).WithData("op", "sqlite.world.LoadWorld")
	}
}

// Save 整行覆盖；写入顺序由上层的合并写保证。
func (r *WorldRepository) Save(ctx context.Context, s *entity.WorldPersistSnapshot) error {
	if s == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, upsert, model.WorldRowID, int64(s.Version), s.Payload, s.SavedAt.UnixMilli())
	if err != nil {
		return errx.ErrPersistence.WithCause(err).WithDataMap(map[string]any{"op": "sqlite.world.Save", "version": s.Version})
	}
	return nil
}
