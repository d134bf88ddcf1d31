package actors

import (
	"github.com/asynkron/protoactor-go/actor"

	"Underworld/internal/player/entity"
	"Underworld/internal/shared/actor/messages"
)

type PlayerID = entity.PlayerID

// ManagerActor 按玩家 id 路由消息，玩家 actor 按需创建。
type ManagerActor struct {
	deps         *Deps
	playerActors map[PlayerID]*actor.PID // pid -> actor.pid
}

func NewManagerActor(deps *Deps) *ManagerActor {
	return &ManagerActor{
		playerActors: make(map[PlayerID]*actor.PID),
		deps:         deps,
	}
}

func (m *ManagerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Terminated:
		m.forget(msg.Who)
		return
	case messages.PlayerMessage:
		if msg == nil {
			ctx.Respond(fail("nil request"))
			return
		}
		if !msg.PlayerID().Valid() {
			ctx.Respond(fail("invalid player_id"))
			return
		}
		ctx.Forward(m.getOrSpawn(ctx, msg.PlayerID()))
	}
}

func (m *ManagerActor) getOrSpawn(ctx actor.Context, playerID PlayerID) *actor.PID {
	if pid, ok := m.playerActors[playerID]; ok && pid != nil {
		return pid
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewPlayerActor(playerID, m.deps)
	})
	pid := ctx.Spawn(props)
	ctx.Watch(pid)
	m.playerActors[playerID] = pid
	return pid
}

// forget 玩家 actor 退出（加载失败或被停掉）后移除，下一条消息重新创建。
func (m *ManagerActor) forget(who *actor.PID) {
	if who == nil {
		return
	}
	for id, pid := range m.playerActors {
		if pid.Equal(who) {
			delete(m.playerActors, id)
			return
		}
	}
}
