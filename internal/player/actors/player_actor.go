package actors

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"Underworld/internal/player/dc"
	"Underworld/internal/player/entity"
	"Underworld/internal/shared/actor/messages"
	"Underworld/modules/kit/logx"
)

type State int

const (
	None State = iota
	Init
	Online
	Offline
	Stopping
)

// PlayerActor 串行处理单个玩家的所有命令，玩家实体只在这里修改。
type PlayerActor struct {
	state      State
	playerID   PlayerID
	deps       *Deps
	dc         *dc.PlayerDC
	entity     *entity.Player
	dispatcher *Dispatcher
	flushStop  chan struct{}
}

type flushTick struct{}

func (flushTick) NotInfluenceReceiveTimeout() {}

func NewPlayerActor(playerID PlayerID, deps *Deps) *PlayerActor {
	opts := []dc.Option{dc.WithClock(deps.now)}
	if deps.FlushEvery > 0 {
		opts = append(opts, dc.WithFlushEvery(deps.FlushEvery))
	}
	return &PlayerActor{
		state:      None,
		playerID:   playerID,
		deps:       deps,
		dc:         dc.NewPlayerDC(deps.Repo, deps.Log, opts...),
		dispatcher: NewDispatcher(),
	}
}

func (p *PlayerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		p.state = Init
		p.init(ctx)
		return
	case *actor.Stopping:
		p.stopFlushLoop()
		if p.entity != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := p.dc.Close(closeCtx); err != nil {
				logx.ReportSysError(closeCtx, p.deps.Log, logx.NewSysLog("player.close", err), p.dc.LogFields()...)
			}
		}
		p.state = Stopping
		return
	case *actor.Stopped:
		p.stopFlushLoop()
		p.state = Offline
		return
	case *actor.Restarting:
		p.stopFlushLoop()
		p.state = Init
		return
	case flushTick:
		if p.state != Online {
			return
		}
		p.dc.Flush()
		return
	case messages.PlayerMessage:
		if msg == nil {
			ctx.Respond(fail("nil request"))
			return
		}
		if p.state != Online {
			ctx.Respond(messages.Fail(reasonNotOnline, "player not online"))
			return
		}
		// 每条命令前先结算离线期间的体力恢复
		p.entity.RegenerateEnergy(p.deps.now())
		p.dispatcher.Dispatch(ctx, p, msg)
	default:
		return
	}
}

func (p *PlayerActor) init(ctx actor.Context) {
	loadCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	e, err := p.dc.Load(loadCtx, p.playerID, "")
	if err != nil {
		logx.ReportSysError(loadCtx, p.deps.Log, logx.NewSysLog("player.load", err), zap.Int64("player_id", int64(p.playerID)))
		p.state = Stopping
		ctx.Stop(ctx.Self())
		return
	}
	p.state = Online
	p.entity = e
	p.startFlushLoop(ctx)
}

func (p *PlayerActor) PlayerID() PlayerID {
	return p.playerID
}

func (p *PlayerActor) Entity() *entity.Player {
	return p.entity
}

func (p *PlayerActor) DC() *dc.PlayerDC {
	return p.dc
}

func (p *PlayerActor) startFlushLoop(ctx actor.Context) {
	if p.flushStop != nil {
		return
	}
	interval := p.dc.FlushEvery()
	if interval <= 0 {
		return
	}
	p.flushStop = make(chan struct{})
	self := ctx.Self()
	root := ctx.ActorSystem().Root

	go func(stop <-chan struct{}, every time.Duration) {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				root.Send(self, flushTick{})
			case <-stop:
				return
			}
		}
	}(p.flushStop, interval)
}

func (p *PlayerActor) stopFlushLoop() {
	if p.flushStop == nil {
		return
	}
	close(p.flushStop)
	p.flushStop = nil
}
