package actors

import (
	"reflect"

	"github.com/asynkron/protoactor-go/actor"

	"Underworld/internal/shared/actor/messages"
)

type Dispatcher struct {
	handlers map[reflect.Type]Handler
}

type Handler struct {
	fn      reflect.Value // handler 函数
	reqType reflect.Type  // 请求类型
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[reflect.Type]Handler),
	}
	d.registerAll()
	return d
}

func (d *Dispatcher) registerAll() {
	register(d, PH.HandleClaim)
	register(d, PH.HandleWar)
	register(d, PH.HandleRelocate)
	register(d, PH.HandleCollectIncome)
	register(d, PH.HandleTaxCredit)
	register(d, PH.HandleProgress)
	register(d, PH.HandleDailyTick)
	register(d, PH.HandleStateQuery)
}

// register 注册统一分发函数，按请求的动态类型路由。
func register[Req messages.PlayerMessage](
	d *Dispatcher,
	fn func(ctx actor.Context, p *PlayerActor, req Req),
) {
	reqType := reflect.TypeOf((*Req)(nil)).Elem()
	if reqType.Kind() == reflect.Interface {
		panic("dispatcher req type must be concrete message")
	}

	d.handlers[reqType] = Handler{
		fn:      reflect.ValueOf(fn),
		reqType: reqType,
	}
}

func (d *Dispatcher) Dispatch(ctx actor.Context, p *PlayerActor, req messages.PlayerMessage) {
	if req == nil {
		ctx.Respond(fail("nil req"))
		return
	}

	handler, ok := d.handlers[reflect.TypeOf(req)]
	if !ok {
		ctx.Respond(fail("no handler for request body"))
		return
	}

	handler.fn.Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(p),
		reflect.ValueOf(req),
	})
}
