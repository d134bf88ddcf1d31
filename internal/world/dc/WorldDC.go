package dc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"Underworld/internal/shared/persist"
	"Underworld/internal/world/app/port"
	"Underworld/internal/world/entity"
	"Underworld/modules/kit/errx"
	"Underworld/modules/kit/logx"
)

// DefaultSaveWindow 两次物理写之间的最小间隔。
const DefaultSaveWindow = 5 * time.Second

var ErrEncodeWorld = errx.NewInternal("WORLD_ENCODE_FAILED", "世界存档编码失败")

// WorldDC 是世界存档的读写网关：读永不失败，写按窗口合并。
type WorldDC struct {
	repo   port.WorldRepository
	log    logx.Logger
	window time.Duration
	now    func() time.Time
	after  persist.AfterFunc

	mu      sync.Mutex
	version uint64

	writer *persist.Throttle[*entity.WorldPersistSnapshot]
}

type Option func(*WorldDC)

func WithSaveWindow(d time.Duration) Option {
	return func(dc *WorldDC) {
		if d > 0 {
			dc.window = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(dc *WorldDC) { dc.now = now }
}

// WithAfterFunc 替换窗口定时器，测试用。
func WithAfterFunc(f persist.AfterFunc) Option {
	return func(dc *WorldDC) { dc.after = f }
}

func NewWorldDC(repo port.WorldRepository, log logx.Logger, opts ...Option) *WorldDC {
	d := &WorldDC{
		repo:   repo,
		log:    logx.OrNop(log),
		window: DefaultSaveWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	wopts := []persist.Option[*entity.WorldPersistSnapshot]{
		persist.WithLogger[*entity.WorldPersistSnapshot](d.log),
	}
	if d.after != nil {
		wopts = append(wopts, persist.WithAfterFunc[*entity.WorldPersistSnapshot](d.after))
	}
	d.writer = persist.NewThrottle("world", d.window, d.save, wopts...)
	return d
}

func (d *WorldDC) save(ctx context.Context, s *entity.WorldPersistSnapshot) error {
	return d.repo.Save(ctx, s)
}

// LoadWorldState 读存档并与默认值逐 key 合并。
// 存档缺失、读失败或损坏时打日志并返回默认世界，不向调用方报错。
func (d *WorldDC) LoadWorldState(ctx context.Context) entity.WorldState {
	now := d.now()
	if d.repo == nil {
		d.log.Warn("world: repository is nil, using default world")
		return entity.DefaultWorldState(now)
	}

	raw, err := d.repo.LoadWorld(ctx)
	switch {
	case err == nil:
	case errors.Is(err, port.ErrWorldNotFound):
		d.log.Info("world: no saved document, using default world")
		return entity.DefaultWorldState(now)
	default:
		logx.ReportSysError(ctx, d.log, logx.NewSysLog("world.load", errx.ErrPersistence.WithMsg("读取世界存档失败，使用默认世界").WithCause(err)))
		return entity.DefaultWorldState(now)
	}

	state, err := entity.DecodeWorldState(raw, now)
	if err != nil {
		d.log.Warn("world: document partially defaulted", zap.Error(err), zap.Int("bytes", len(raw)))
	}

	d.mu.Lock()
	if state.Version > d.version {
		d.version = state.Version
	}
	d.mu.Unlock()
	return state
}

// SaveWorldState 登记最新状态，窗口到期后写出；窗口内的中间状态被丢弃。
func (d *WorldDC) SaveWorldState(state entity.WorldState) {
	s, err := d.buildSnapshot(state)
	if err != nil {
		logx.ReportSysError(context.Background(), d.log, logx.NewSysLog("world.save", err))
		return
	}
	d.writer.Schedule(s)
}

// FlushWorldState 取消窗口定时器，同步写出待写状态。停服时必须调用。
func (d *WorldDC) FlushWorldState(ctx context.Context) error {
	if err := d.writer.Flush(ctx); err != nil {
		return fmt.Errorf("flush world state: %w", err)
	}
	return nil
}

// Pending 是否有尚未落盘的状态。
func (d *WorldDC) Pending() bool {
	return d.writer.Pending()
}

func (d *WorldDC) Close(ctx context.Context) error {
	if err := d.writer.Close(ctx); err != nil {
		return fmt.Errorf("close world dc: %w", err)
	}
	return nil
}

func (d *WorldDC) buildSnapshot(state entity.WorldState) (*entity.WorldPersistSnapshot, error) {
	d.mu.Lock()
	d.version++
	version := d.version
	d.mu.Unlock()

	now := d.now()
	state.Version = version
	state.SavedAt = now.UnixMilli()
	payload, err := entity.EncodeWorldState(state)
	if err != nil {
		return nil, ErrEncodeWorld.WithCause(err)
	}
	return &entity.WorldPersistSnapshot{Version: version, SavedAt: now, Payload: payload}, nil
}
