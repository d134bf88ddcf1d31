package dc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Underworld/internal/player/app/port"
	"Underworld/internal/player/entity"
	"Underworld/internal/shared/persist"
	"Underworld/modules/kit/logx"
)

type PlayerID = entity.PlayerID

const retryWindow = 200 * time.Millisecond

// PlayerDC 持有单个玩家的内存实体，脏检查后把快照交给后台合并写。
// 只在所属 actor 内调用，自身不处理并发。
type PlayerDC struct {
	repo       port.PlayerRepository
	entity     *entity.Player
	flushEvery time.Duration
	version    uint64
	writer     *persist.Throttle[*entity.PlayerPersistSnapshot]
	now        func() time.Time
}

type Option func(*PlayerDC)

func WithFlushEvery(d time.Duration) Option {
	return func(dc *PlayerDC) {
		if d > 0 {
			dc.flushEvery = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(dc *PlayerDC) { dc.now = now }
}

func NewPlayerDC(repo port.PlayerRepository, log logx.Logger, opts ...Option) *PlayerDC {
	d := &PlayerDC{
		repo:       repo,
		flushEvery: 3 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.writer = persist.NewThrottle[*entity.PlayerPersistSnapshot](
		"player", retryWindow, d.save,
		persist.WithLogger[*entity.PlayerPersistSnapshot](log),
	)
	return d
}

func (d *PlayerDC) save(ctx context.Context, s *entity.PlayerPersistSnapshot) error {
	return d.repo.Snapshot(ctx, s)
}

// Load 全量加载到内存；玩家不存在时按默认值新建并标脏，下一次 Flush 落库。
func (d *PlayerDC) Load(ctx context.Context, id PlayerID, name string) (*entity.Player, error) {
	if d.repo == nil {
		return nil, errors.New("player repository is nil")
	}
	p, err := d.repo.LoadPlayer(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, entity.ErrPlayerNotFound):
		if name == "" {
			name = fmt.Sprintf("player-%d", id)
		}
		p = entity.NewPlayer(entity.NewState(id, name, d.now()))
		p.MarkCreated()
	default:
		return nil, err
	}
	d.entity = p
	return p, nil
}

// Flush 脏时生成快照交给后台写，不等待落库。
func (d *PlayerDC) Flush() {
	if s, ok := d.buildNextSnapshot(); ok {
		d.writer.Schedule(s)
	}
}

// FlushSync 生成快照并同步写出，下线与停服时使用。
func (d *PlayerDC) FlushSync(ctx context.Context) error {
	d.Flush()
	return d.writer.Flush(ctx)
}

func (d *PlayerDC) IsDirty() bool {
	return d.entity.Dirty()
}

func (d *PlayerDC) Entity() *entity.Player {
	return d.entity
}

func (d *PlayerDC) FlushEvery() time.Duration {
	return d.flushEvery
}

func (d *PlayerDC) Close(ctx context.Context) error {
	d.Flush()
	if err := d.writer.Close(ctx); err != nil {
		return fmt.Errorf("close player dc: %w", err)
	}
	return nil
}

func (d *PlayerDC) buildNextSnapshot() (*entity.PlayerPersistSnapshot, bool) {
	if d.entity == nil {
		return nil, false
	}
	d.version++
	s, ok := d.entity.BuildPersistSnapshot(d.version)
	if !ok {
		return nil, false
	}
	d.entity.ClearDirty()
	return s, true
}

// LogFields 排查用的上下文字段。
func (d *PlayerDC) LogFields() []zap.Field {
	if d.entity == nil {
		return nil
	}
	return []zap.Field{zap.Int64("player_id", int64(d.entity.ID())), zap.Uint64("version", d.version)}
}
