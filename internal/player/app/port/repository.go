package port

import (
	"context"

	"Underworld/internal/player/entity"
)

// PlayerRepository 玩家经济状态的存取。LoadPlayer 找不到时返回 entity.ErrPlayerNotFound。
type PlayerRepository interface {
	LoadPlayer(ctx context.Context, id entity.PlayerID) (*entity.Player, error)
	Snapshot(ctx context.Context, s *entity.PlayerPersistSnapshot) error
}
