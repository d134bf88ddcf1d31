package actors

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"Underworld/internal/shared/actor/messages"
)

type WorldHandler struct{}

var WH = &WorldHandler{}

func (h *WorldHandler) HandleTerritoryClaimed(_ actor.Context, w *WorldActor, m messages.TerritoryClaimed) {
	w.svc.OnClaimed(m)
}

func (h *WorldHandler) HandleWarWaged(_ actor.Context, w *WorldActor, m messages.WarWaged) {
	w.svc.OnWar(m)
}

func (h *WorldHandler) HandleResidentMoved(_ actor.Context, w *WorldActor, m messages.ResidentMoved) {
	w.svc.OnRelocated(m)
}

func (h *WorldHandler) HandleTaxRecorded(_ actor.Context, w *WorldActor, m messages.TaxRecorded) {
	w.svc.OnTaxRecorded(m)
}

func (h *WorldHandler) HandleWorldTick(_ actor.Context, w *WorldActor, m messages.WorldTick) {
	w.svc.Tick(m.Now)
}

func (h *WorldHandler) HandleWorldQuery(ctx actor.Context, w *WorldActor, _ messages.WorldQuery) {
	ctx.Respond(w.svc.State())
}

func (h *WorldHandler) HandleWorldFlush(ctx actor.Context, w *WorldActor, _ messages.WorldFlush) {
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx.Respond(messages.FlushReply{Err: w.svc.Flush(flushCtx)})
}
