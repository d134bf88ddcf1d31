package persist

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"Underworld/modules/kit/logx"
)

var ErrClosed = errors.New("persist: writer closed")

// Timer 是 time.Timer 的最小子集，测试里可替换成手动触发。
type Timer interface {
	Stop() bool
}

// AfterFunc 与 time.AfterFunc 同义。
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WriteFunc 把一份快照真正写到存储。
type WriteFunc[T any] func(ctx context.Context, payload T) error

type versioned[T any] struct {
	version uint64
	payload T
}

// Throttle 合并高频保存请求：一个窗口内至多一次物理写，写最新的那份；
// 写失败时保留该份等下个窗口重试（若期间没有更新的快照）。
type Throttle[T any] struct {
	name      string
	window    time.Duration
	write     WriteFunc[T]
	afterFunc AfterFunc
	timeout   time.Duration
	log       logx.Logger

	mu      sync.Mutex
	pending *versioned[T]
	seq     uint64
	timer   Timer
	gen     uint64
	closed  bool

	// 串行化物理写，保证先取出的快照先落盘
	writeMu sync.Mutex
	written uint64
}

type Option[T any] func(*Throttle[T])

func WithAfterFunc[T any](f AfterFunc) Option[T] {
	return func(t *Throttle[T]) { t.afterFunc = f }
}

func WithLogger[T any](l logx.Logger) Option[T] {
	return func(t *Throttle[T]) { t.log = logx.OrNop(l) }
}

// WithWriteTimeout 限制定时器触发的后台写耗时。
func WithWriteTimeout[T any](d time.Duration) Option[T] {
	return func(t *Throttle[T]) { t.timeout = d }
}

func NewThrottle[T any](name string, window time.Duration, write WriteFunc[T], opts ...Option[T]) *Throttle[T] {
	t := &Throttle[T]{
		name:      name,
		window:    window,
		write:     write,
		afterFunc: realAfterFunc,
		timeout:   10 * time.Second,
		log:       logx.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Schedule 登记最新快照；窗口内已有定时器时只替换内容，不新建定时器。
func (t *Throttle[T]) Schedule(payload T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		t.log.Warn("persist: schedule after close dropped", zap.String("writer", t.name))
		return
	}
	t.seq++
	t.pending = &versioned[T]{version: t.seq, payload: payload}
	t.armLocked()
}

// Pending 是否有尚未落盘的快照。
func (t *Throttle[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

// Written 已成功落盘的最大版本号。
func (t *Throttle[T]) Written() uint64 {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.written
}

// Flush 取消定时器，同步写出当前快照；返回时快照已落盘或返回写入错误。
func (t *Throttle[T]) Flush(ctx context.Context) error {
	t.mu.Lock()
	t.disarmLocked()
	t.mu.Unlock()
	return t.drain(ctx)
}

// Close 写出最后一份快照，此后的 Schedule 被丢弃。
func (t *Throttle[T]) Close(ctx context.Context) error {
	err := t.Flush(ctx)
	t.mu.Lock()
	t.closed = true
	t.disarmLocked()
	t.mu.Unlock()
	return err
}

func (t *Throttle[T]) armLocked() {
	if t.timer != nil || t.closed {
		return
	}
	t.gen++
	gen := t.gen
	t.timer = t.afterFunc(t.window, func() { t.fire(gen) })
}

func (t *Throttle[T]) disarmLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func (t *Throttle[T]) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		// 已被 Flush 取消或被新定时器替代
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	if err := t.drain(ctx); err != nil {
		t.log.Error("persist: throttled write failed, retry next window",
			zap.String("writer", t.name),
			zap.Error(err),
		)
	}
}

func (t *Throttle[T]) drain(ctx context.Context) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	s := t.pending
	t.pending = nil
	t.mu.Unlock()
	if s == nil {
		return nil
	}

	if err := t.write(ctx, s.payload); err != nil {
		t.requeue(s)
		return err
	}
	if s.version > t.written {
		t.written = s.version
	}
	return nil
}

// requeue 失败的快照放回槽位；槽位里已有更新版本时丢弃旧的。
func (t *Throttle[T]) requeue(s *versioned[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil || t.pending.version < s.version {
		t.pending = s
	}
	t.armLocked()
}
