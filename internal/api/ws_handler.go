package api

import (
	"context"

	"Underworld/internal/shared/transport"
	"Underworld/internal/shared/transport/ws"
	"Underworld/internal/shared/types"
	"Underworld/internal/world/entity"
)

// EventNameWorld 推给订阅者的世界事件消息名。
const EventNameWorld = "world.event"

// EventPublisher 把世界事件广播到 websocket 订阅者。
type EventPublisher struct {
	hub *ws.Hub
}

func NewEventPublisher(hub *ws.Hub) *EventPublisher {
	return &EventPublisher{hub: hub}
}

func (p *EventPublisher) Publish(e entity.WorldEvent) {
	if p == nil || p.hub == nil {
		return
	}
	p.hub.Broadcast(EventNameWorld, e)
}

type WsHandler struct {
	world WorldReader
}

func NewWsHandler(world WorldReader) *WsHandler {
	return &WsHandler{world: world}
}

func (h *WsHandler) RegisterRoutes(r *ws.Router) {
	worldGroup := r.Group("world")
	worldGroup.Handle("state", h.State)
	worldGroup.Handle("events", h.Events)
}

// State 订阅者刚连上时拉一次全量世界状态。
func (h *WsHandler) State(ctx context.Context, req *ws.WsMsgReq, resp *ws.WsMsgResp) {
	state, err := h.world.State(ctx)
	if err != nil {
		h.error(ctx, resp, err)
		return
	}
	h.ok(resp, state)
}

type eventsReq struct {
	District types.DistrictID `json:"district"`
	Limit    int              `json:"limit"`
}

// Events 拉取当前有效的世界事件，可按街区过滤，limit>0 时只取最新的若干条。
func (h *WsHandler) Events(ctx context.Context, req *ws.WsMsgReq, resp *ws.WsMsgResp) {
	var in eventsReq
	if err := ws.Bind(req, &in); err != nil {
		h.error(ctx, resp, err)
		return
	}
	if in.Limit < 0 {
		h.error(ctx, resp, ws.ErrBadMsg.WithMsg("limit 不能为负").WithData("limit", in.Limit))
		return
	}
	state, err := h.world.State(ctx)
	if err != nil {
		h.error(ctx, resp, err)
		return
	}
	events := make([]entity.WorldEvent, 0, len(state.CityEvents))
	for _, e := range state.CityEvents {
		if in.District == "" || e.District == in.District {
			events = append(events, e)
		}
	}
	if in.Limit > 0 && len(events) > in.Limit {
		events = events[len(events)-in.Limit:]
	}
	h.ok(resp, events)
}

func (h *WsHandler) ok(resp *ws.WsMsgResp, data any) {
	resp.Body.Code = transport.OK
	resp.Body.Msg = data
}

func (h *WsHandler) error(ctx context.Context, resp *ws.WsMsgResp, err error) {
	code, msg := HandleError(ctx, err)
	resp.Body.Code = code
	resp.Body.Msg = msg
}
