package actors

import (
	"reflect"

	"github.com/asynkron/protoactor-go/actor"
)

type Dispatcher struct {
	handlers map[reflect.Type]Handler
}

type Handler struct {
	fn      reflect.Value
	reqType reflect.Type
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[reflect.Type]Handler),
	}
	d.registerAll()
	return d
}

func (d *Dispatcher) registerAll() {
	register(d, WH.HandleTerritoryClaimed)
	register(d, WH.HandleWarWaged)
	register(d, WH.HandleResidentMoved)
	register(d, WH.HandleTaxRecorded)
	register(d, WH.HandleWorldTick)
	register(d, WH.HandleWorldQuery)
	register(d, WH.HandleWorldFlush)
}

func register[Req any](
	d *Dispatcher,
	fn func(ctx actor.Context, w *WorldActor, req Req),
) {
	reqType := reflect.TypeOf((*Req)(nil)).Elem()
	if reqType == nil {
		panic("dispatcher req type cannot be nil")
	}

	d.handlers[reqType] = Handler{
		fn:      reflect.ValueOf(fn),
		reqType: reqType,
	}
}

// Handles 是否注册了该消息类型。
func (d *Dispatcher) Handles(msg any) bool {
	if msg == nil {
		return false
	}
	_, ok := d.handlers[reflect.TypeOf(msg)]
	return ok
}

func (d *Dispatcher) Dispatch(ctx actor.Context, w *WorldActor, req any) {
	if req == nil {
		return
	}

	bodyType := reflect.TypeOf(req)
	handler, ok := d.handlers[bodyType]
	if !ok {
		return
	}

	handler.fn.Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(w),
		reflect.ValueOf(req),
	})
}
