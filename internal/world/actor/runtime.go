package actor

import (
	"context"
	"errors"
	"sync"
	"time"

	protoactor "github.com/asynkron/protoactor-go/actor"

	"Underworld/internal/shared/actor/messages"
	"Underworld/internal/shared/transport"
	"Underworld/internal/shared/types"
	territory "Underworld/internal/territory/service"
	"Underworld/internal/world/actors"
	"Underworld/internal/world/entity"
	"Underworld/internal/world/service"
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

// Runtime 世界 actor 的宿主。实现 territory.Listener，把领地变更异步投递给世界 actor。
type Runtime struct {
	system  *protoactor.ActorSystem
	root    *protoactor.RootContext
	world   *protoactor.PID
	timeout time.Duration
	stop    sync.Once
}

func NewRuntime(svc *service.WorldService, tickEvery, askTimeout time.Duration) *Runtime {
	if askTimeout <= 0 {
		askTimeout = defaultAskTimeout
	}

	system := protoactor.NewActorSystem()
	root := system.Root
	props := protoactor.PropsFromProducer(func() protoactor.Actor {
		return actors.NewWorldActor(svc, tickEvery)
	})
	world, err := root.SpawnNamed(props, "world")
	if err != nil {
		world = root.Spawn(props)
	}

	return &Runtime{
		system:  system,
		root:    root,
		world:   world,
		timeout: askTimeout,
	}
}

// Shutdown 停止世界 actor；actor 停止前会同步落盘。
func (r *Runtime) Shutdown() error {
	if r == nil || r.root == nil {
		return nil
	}
	var err error
	r.stop.Do(func() {
		if r.world != nil {
			err = r.root.StopFuture(r.world).Wait()
		}
		r.system.Shutdown()
	})
	if err != nil {
		return &RuntimeError{Code: transport.SystemError, Message: "世界 actor 停止失败", Cause: err}
	}
	return nil
}

func (r *Runtime) OnClaimed(district types.DistrictID, owner territory.Player) {
	r.send(messages.TerritoryClaimed{District: district, Owner: standingOf(owner)})
}

func (r *Runtime) OnWar(district types.DistrictID, attacker territory.Player, defender types.PlayerID, result territory.WarResult) {
	r.send(messages.WarWaged{
		District:       district,
		Attacker:       standingOf(attacker),
		Defender:       defender,
		AttackerWon:    result.AttackerWon,
		DefensePenalty: result.DefensePenalty,
	})
}

func (r *Runtime) OnRelocated(district types.DistrictID, p territory.Player) {
	r.send(messages.ResidentMoved{District: district, Resident: standingOf(p)})
}

func (r *Runtime) OnTaxCollected(district types.DistrictID, owner types.PlayerID, amount int64) {
	r.send(messages.TaxRecorded{District: district, Owner: owner, Amount: amount})
}

// Tick 手动推进一次世界 tick，运维与测试使用。
func (r *Runtime) Tick(now time.Time) {
	r.send(messages.WorldTick{Now: now})
}

// State 读取世界文档副本。
func (r *Runtime) State(ctx context.Context) (entity.WorldState, error) {
	res, err := r.request(messages.WorldQuery{}, r.timeoutFromContext(ctx))
	if err != nil {
		return entity.WorldState{}, err
	}
	state, ok := res.(entity.WorldState)
	if !ok {
		return entity.WorldState{}, &RuntimeError{Code: transport.SystemError, Message: "世界 actor 应答类型错误"}
	}
	return state, nil
}

// Flush 要求世界 actor 立即落盘并等待结果。
func (r *Runtime) Flush(ctx context.Context) error {
	res, err := r.request(messages.WorldFlush{}, r.timeoutFromContext(ctx))
	if err != nil {
		return err
	}
	reply, ok := res.(messages.FlushReply)
	if !ok {
		return &RuntimeError{Code: transport.SystemError, Message: "世界 actor 应答类型错误"}
	}
	return reply.Err
}

func (r *Runtime) send(msg any) {
	if r == nil || r.root == nil || r.world == nil {
		return
	}
	r.root.Send(r.world, msg)
}

func (r *Runtime) request(msg any, timeout time.Duration) (any, error) {
	if r == nil || r.root == nil {
		return nil, &RuntimeError{Code: transport.SystemError, Message: "actor runtime 未初始化"}
	}
	if r.world == nil {
		return nil, &RuntimeError{Code: transport.SystemError, Message: "actor pid 为空"}
	}

	future := r.root.RequestFuture(r.world, msg, timeout)
	res, err := future.Result()
	if err != nil {
		return nil, &RuntimeError{
			Code:    transport.UpstreamTimeout,
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

// standingOf 在玩家 actor 内调用，只拷贝值。
func standingOf(p territory.Player) messages.Standing {
	return messages.Standing{Player: p.ID(), Name: p.Name(), Reputation: p.TotalReputation()}
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
