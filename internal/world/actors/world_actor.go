package actors

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"Underworld/internal/world/service"
)

type State int

const (
	None State = iota
	Online
	Stopping
	Offline
)

// WorldActor 串行处理所有世界事件，世界文档只在这里修改。
type WorldActor struct {
	state      State
	svc        *service.WorldService
	dispatcher *Dispatcher
	tickEvery  time.Duration
	tickStop   chan struct{}
}

type tickSignal struct{}

func (tickSignal) NotInfluenceReceiveTimeout() {}

func NewWorldActor(svc *service.WorldService, tickEvery time.Duration) *WorldActor {
	return &WorldActor{
		state:      None,
		svc:        svc,
		dispatcher: NewDispatcher(),
		tickEvery:  tickEvery,
	}
}

func (w *WorldActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		w.state = Online
		w.startTickLoop(ctx)
		return
	case *actor.Stopping:
		w.stopTickLoop()
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.svc.Flush(closeCtx); err != nil {
			ctx.Logger().Error("world flush on stop failed", "err", err)
		}
		w.state = Stopping
		return
	case *actor.Stopped:
		w.stopTickLoop()
		w.state = Offline
		return
	case *actor.Restarting:
		w.stopTickLoop()
		return
	case tickSignal:
		if w.state != Online {
			return
		}
		w.svc.Tick(time.Now())
		return
	default:
		if w.state != Online || !w.dispatcher.Handles(msg) {
			return
		}
		w.dispatcher.Dispatch(ctx, w, msg)
	}
}

func (w *WorldActor) Service() *service.WorldService {
	return w.svc
}

func (w *WorldActor) startTickLoop(ctx actor.Context) {
	if w.tickStop != nil || w.tickEvery <= 0 {
		return
	}
	w.tickStop = make(chan struct{})
	self := ctx.Self()
	root := ctx.ActorSystem().Root

	go func(stop <-chan struct{}, every time.Duration) {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				root.Send(self, tickSignal{})
			case <-stop:
				return
			}
		}
	}(w.tickStop, w.tickEvery)
}

func (w *WorldActor) stopTickLoop() {
	if w.tickStop == nil {
		return
	}
	close(w.tickStop)
	w.tickStop = nil
}
