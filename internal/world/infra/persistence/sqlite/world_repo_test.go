package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlitex "Underworld/internal/shared/infrastructure/sqlite"
	"Underworld/internal/world/app/port"
	"Underworld/internal/world/entity"
)

func newRepo(t *testing.T) *WorldRepository {
	t.Helper()
	db, err := sqlitex.Open(filepath.Join(t.TempDir(), "world.sqlite"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewWorldRepository(db)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func TestWorldRepository_空库(t *testing.T) {
	repo := newRepo(t)
	if _, err := repo.LoadWorld(context.Background()); !errors.Is(err, port.ErrWorldNotFound) {
		t.Fatalf("err = %v, want ErrWorldNotFound", err)
	}
}

func TestWorldRepository_覆盖写(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()
	for v := uint64(1); v <= 3; v++ {
		payload := []byte(fmt.Sprintf(`{"v":%d}`, v))
		if err := repo.Save(ctx, &entity.WorldPersistSnapshot{Version: v, SavedAt: now, Payload: payload}); err != nil {
			t.Fatalf("save v%d: %v", v, err)
		}
	}
	got, err := repo.LoadWorld(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"v":3}` {
		t.Fatalf("payload = %s, want v3", got)
	}
	var n int
	if err := repo.db.QueryRow(`SELECT COUNT(*) FROM world_state`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("rows = %d, %v, want 1", n, err)
	}
}
