package actors

import (
	"time"

	"Underworld/internal/passive"
	"Underworld/internal/player/app/port"
	territoryentity "Underworld/internal/territory/entity"
	territory "Underworld/internal/territory/service"
	"Underworld/modules/kit/logx"
)

// Deps 所有玩家 actor 共享的只读依赖。
type Deps struct {
	Repo       port.PlayerRepository
	Store      *territoryentity.Store
	Resolver   *territory.Resolver
	Collector  *territory.Collector
	Passives   *passive.Engine
	Log        logx.Logger
	FlushEvery time.Duration
	Now        func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}
