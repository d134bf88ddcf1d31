package actor

import (
	"context"
	"errors"
	"sync"
	"time"

	protoactor "github.com/asynkron/protoactor-go/actor"

	"Underworld/internal/player/actors"
	"Underworld/internal/shared/actor/messages"
	"Underworld/internal/shared/transport"
	"Underworld/internal/shared/types"
	territory "Underworld/internal/territory/service"
)

const defaultAskTimeout = 3 * time.Second

type RuntimeError struct {
	Code    int
	Message string
	Cause   error
}

func (e *RuntimeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *RuntimeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Runtime 玩家 actor 的宿主，对外提供按玩家串行的同步调用。
// 同时实现 territory.Listener：税款通过 TaxCredit 转到街区主人的 actor。
type Runtime struct {
	territory.NopListener

	system  *protoactor.ActorSystem
	root    *protoactor.RootContext
	manager *protoactor.PID
	timeout time.Duration
	stop    sync.Once
}

func NewRuntime(deps *actors.Deps, askTimeout time.Duration) *Runtime {
	if askTimeout <= 0 {
		askTimeout = defaultAskTimeout
	}

	/**
	ActorSystem 相当于容器/运行时环境：管理 PID、调度、邮箱、系统消息。
	manager 只做路由，不干重活。
	*/
	system := protoactor.NewActorSystem()
	root := system.Root
	managerProps := protoactor.PropsFromProducer(func() protoactor.Actor {
		return actors.NewManagerActor(deps)
	})
	manager := root.Spawn(managerProps)

	return &Runtime{
		system:  system,
		root:    root,
		manager: manager,
		timeout: askTimeout,
	}
}

// Shutdown 停止 manager，子 actor 停止时各自把玩家状态写回。
func (r *Runtime) Shutdown() {
	if r == nil {
		return
	}
	r.stop.Do(func() {
		if r.root != nil && r.manager != nil {
			_ = r.root.StopFuture(r.manager).Wait()
		}
		if r.system != nil {
			r.system.Shutdown()
		}
	})
}

func (r *Runtime) Claim(ctx context.Context, pid types.PlayerID, district types.DistrictID) (messages.CommandReply, error) {
	return ask[messages.CommandReply](ctx, r, messages.ClaimCmd{PlayerBaseMessage: base(pid), District: district})
}

func (r *Runtime) War(ctx context.Context, pid types.PlayerID, district types.DistrictID) (messages.CommandReply, error) {
	return ask[messages.CommandReply](ctx, r, messages.WarCmd{PlayerBaseMessage: base(pid), District: district})
}

func (r *Runtime) Relocate(ctx context.Context, pid types.PlayerID, district types.DistrictID) (messages.CommandReply, error) {
	return ask[messages.CommandReply](ctx, r, messages.RelocateCmd{PlayerBaseMessage: base(pid), District: district})
}

func (r *Runtime) CollectIncome(ctx context.Context, pid types.PlayerID, amount int64, kind string) (messages.IncomeReply, error) {
	return ask[messages.IncomeReply](ctx, r, messages.CollectIncomeCmd{
		PlayerBaseMessage: base(pid),
		Amount:            amount,
		Kind:              kind,
	})
}

func (r *Runtime) Progress(ctx context.Context, cmd messages.ProgressCmd) (messages.StateReply, error) {
	return ask[messages.StateReply](ctx, r, cmd)
}

func (r *Runtime) DailyTick(ctx context.Context, pid types.PlayerID, now time.Time) (messages.DailyReply, error) {
	return ask[messages.DailyReply](ctx, r, messages.DailyTickCmd{PlayerBaseMessage: base(pid), Now: now})
}

func (r *Runtime) State(ctx context.Context, pid types.PlayerID) (messages.StateReply, error) {
	return ask[messages.StateReply](ctx, r, messages.StateQuery{PlayerBaseMessage: base(pid)})
}

// OnTaxCollected 在住户的 actor 内被调用，只能异步投递给主人。
func (r *Runtime) OnTaxCollected(district types.DistrictID, owner types.PlayerID, amount int64) {
	if r == nil || r.root == nil || !owner.Valid() || amount <= 0 {
		return
	}
	r.root.Send(r.manager, messages.TaxCredit{PlayerBaseMessage: base(owner), District: district, Amount: amount})
}

func base(pid types.PlayerID) messages.PlayerBaseMessage {
	return messages.PlayerBaseMessage{Player: pid}
}

func ask[T any](ctx context.Context, r *Runtime, msg messages.PlayerMessage) (T, error) {
	var zero T
	if !msg.PlayerID().Valid() {
		return zero, &RuntimeError{Code: transport.InvalidParam, Message: "player_id 非法"}
	}
	res, err := r.request(r.manager, msg, r.timeoutFromContext(ctx))
	if err != nil {
		return zero, err
	}
	if out, ok := res.(T); ok {
		return out, nil
	}
	// actor 拒绝请求时只回 Result
	if rej, ok := res.(messages.Result); ok {
		return zero, &RuntimeError{Code: transport.SystemError, Message: rej.Reason + ": " + rej.Message}
	}
	return zero, &RuntimeError{Code: transport.SystemError, Message: "actor 返回类型非法"}
}

func (r *Runtime) request(pid *protoactor.PID, msg any, timeout time.Duration) (any, error) {
	if r == nil || r.root == nil {
		return nil, &RuntimeError{Code: transport.SystemError, Message: "actor runtime 未初始化"}
	}
	if pid == nil {
		return nil, &RuntimeError{Code: transport.SystemError, Message: "actor pid 为空"}
	}

	// 注册一个 future 作为 Sender，阻塞到对方 Respond 或超时
	future := r.root.RequestFuture(pid, msg, timeout)
	res, err := future.Result()
	if err != nil {
		code := transport.SystemError
		if errors.Is(err, protoactor.ErrTimeout) {
			code = transport.UpstreamTimeout
		}
		return nil, &RuntimeError{
			Code:    code,
			Message: "actor 请求失败",
			Cause:   err,
		}
	}
	return res, nil
}

func (r *Runtime) timeoutFromContext(ctx context.Context) time.Duration {
	if r == nil || r.timeout <= 0 {
		return defaultAskTimeout
	}
	if ctx == nil {
		return r.timeout
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return r.timeout
	}
	remain := time.Until(deadline)
	if remain <= 0 {
		return time.Millisecond
	}
	if remain < r.timeout {
		return remain
	}
	return r.timeout
}

func CodeFromError(err error) int {
	if err == nil {
		return transport.OK
	}
	var re *RuntimeError
	if errors.As(err, &re) && re != nil && re.Code != 0 {
		return re.Code
	}
	return transport.SystemError
}

var _ territory.Listener = (*Runtime)(nil)
