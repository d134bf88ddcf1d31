package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"Underworld/internal/shared/actor/messages"
	"Underworld/internal/shared/gameconfig/district"
	"Underworld/internal/shared/security"
	"Underworld/internal/shared/transport"
	"Underworld/internal/shared/transport/http/dto"
	"Underworld/internal/shared/transport/http/middleware"
	"Underworld/internal/shared/types"
	territoryentity "Underworld/internal/territory/entity"
	territory "Underworld/internal/territory/service"
	"Underworld/internal/world/entity"
	"Underworld/modules/kit/logx"
)

// WorldReader 读取世界状态，世界 actor runtime 实现。
type WorldReader interface {
	State(ctx context.Context) (entity.WorldState, error)
}

// PlayerGateway 按玩家串行执行的操作，玩家 actor runtime 实现。
type PlayerGateway interface {
	Claim(ctx context.Context, pid types.PlayerID, id types.DistrictID) (messages.CommandReply, error)
	War(ctx context.Context, pid types.PlayerID, id types.DistrictID) (messages.CommandReply, error)
	Relocate(ctx context.Context, pid types.PlayerID, id types.DistrictID) (messages.CommandReply, error)
	CollectIncome(ctx context.Context, pid types.PlayerID, amount int64, kind string) (messages.IncomeReply, error)
	Progress(ctx context.Context, cmd messages.ProgressCmd) (messages.StateReply, error)
	DailyTick(ctx context.Context, pid types.PlayerID, now time.Time) (messages.DailyReply, error)
	State(ctx context.Context, pid types.PlayerID) (messages.StateReply, error)
}

type Deps struct {
	Registry *district.Registry
	Store    *territoryentity.Store
	World    WorldReader
	Players  PlayerGateway
	Tokens   middleware.TokenParser
	Limiter  *middleware.RateLimiter
	Log      logx.Logger
	Now      func() time.Time
}

type HttpHandler struct {
	deps Deps
}

func NewHttpHandler(deps Deps) *HttpHandler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Log = logx.OrNop(deps.Log)
	return &HttpHandler{deps: deps}
}

func (h *HttpHandler) RegisterRoutes(group *gin.RouterGroup) {
	apiGroup := group.Group("/api")
	apiGroup.GET("/districts", h.ListDistricts)
	apiGroup.GET("/districts/:id", h.GetDistrict)
	apiGroup.GET("/territories", h.ListTerritories)
	apiGroup.GET("/world", h.World)
	apiGroup.POST("/income/resident", h.ResidentIncome)
	apiGroup.POST("/income/business", h.BusinessIncome)

	playerMW := []gin.HandlerFunc{middleware.Auth(h.deps.Tokens, security.RolePlayer)}
	if h.deps.Limiter != nil {
		playerMW = append(playerMW, h.deps.Limiter.Middleware())
	}
	player := apiGroup.Group("", playerMW...)
	player.POST("/territories/:id/claim", h.Claim)
	player.POST("/territories/:id/war", h.War)
	player.POST("/territories/:id/relocate", h.Relocate)
	player.GET("/players/me", h.Me)

	scheduler := apiGroup.Group("", middleware.Auth(h.deps.Tokens, security.RoleScheduler))
	scheduler.POST("/players/:id/daily", h.Daily)
	scheduler.POST("/players/:id/income", h.CollectIncome)
	scheduler.POST("/players/:id/progress", h.Progress)
}

type districtView struct {
	district.District
	Owner types.PlayerID `json:"owner,omitempty"`
}

func (h *HttpHandler) ListDistricts(c *gin.Context) {
	list := h.deps.Registry.List()
	out := make([]districtView, 0, len(list))
	for _, d := range list {
		owner, _ := h.deps.Store.Owner(d.ID)
		out = append(out, districtView{District: d, Owner: owner})
	}
	h.ok(c, out)
}

func (h *HttpHandler) GetDistrict(c *gin.Context) {
	id := types.DistrictID(c.Param("id"))
	d, ok := h.deps.Registry.Get(id)
	if !ok {
		h.fail(c, transport.DistrictNotFound, territory.ReasonDistrictNotFound.Message())
		return
	}
	owner, _ := h.deps.Store.Owner(id)
	h.ok(c, districtView{District: d, Owner: owner})
}

func (h *HttpHandler) ListTerritories(c *gin.Context) {
	h.ok(c, h.deps.Store.SnapshotAll())
}

func (h *HttpHandler) World(c *gin.Context) {
	ctx := c.Request.Context()
	state, err := h.deps.World.State(ctx)
	if err != nil {
		h.error(ctx, c, err)
		return
	}
	h.ok(c, state)
}

func (h *HttpHandler) Claim(c *gin.Context) {
	h.command(c, h.deps.Players.Claim)
}

func (h *HttpHandler) War(c *gin.Context) {
	h.command(c, h.deps.Players.War)
}

func (h *HttpHandler) Relocate(c *gin.Context) {
	h.command(c, h.deps.Players.Relocate)
}

type commandFunc func(ctx context.Context, pid types.PlayerID, id types.DistrictID) (messages.CommandReply, error)

func (h *HttpHandler) command(c *gin.Context, run commandFunc) {
	ctx := c.Request.Context()
	pid, _ := middleware.PlayerIDFrom(c)
	reply, err := run(ctx, pid, types.DistrictID(c.Param("id")))
	if err != nil {
		h.error(ctx, c, err)
		return
	}
	if !reply.OK {
		h.reject(ctx, c, reply.Result, reply)
		return
	}
	h.ok(c, reply)
}

type incomeReq struct {
	PlayerID types.PlayerID   `json:"playerId" binding:"required"`
	District types.DistrictID `json:"district" binding:"required"`
	Amount   int64            `json:"amount"`
}

func (h *HttpHandler) ResidentIncome(c *gin.Context) {
	h.income(c, func(req incomeReq) (territory.ResidentIncome, error) {
		return territory.ComputeResidentIncome(h.deps.Store, req.PlayerID, req.District, req.Amount)
	})
}

func (h *HttpHandler) BusinessIncome(c *gin.Context) {
	h.income(c, func(req incomeReq) (territory.ResidentIncome, error) {
		return territory.ComputeBusinessIncome(h.deps.Store, h.deps.Registry, req.PlayerID, req.District, req.Amount)
	})
}

func (h *HttpHandler) income(c *gin.Context, compute func(incomeReq) (territory.ResidentIncome, error)) {
	ctx := c.Request.Context()
	var req incomeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, transport.InvalidParam, "参数有误")
		return
	}
	if !h.deps.Registry.Has(req.District) {
		h.fail(c, transport.DistrictNotFound, territory.ReasonDistrictNotFound.Message())
		return
	}
	out, err := compute(req)
	if err != nil {
		h.error(ctx, c, err)
		return
	}
	h.ok(c, out)
}

type collectReq struct {
	Amount int64  `json:"amount"`
	Kind   string `json:"kind" binding:"required,oneof=resident business"`
}

// CollectIncome 任务/生意结算入账，街区取玩家当前住处。
func (h *HttpHandler) CollectIncome(c *gin.Context) {
	ctx := c.Request.Context()
	pid, ok := h.pathPlayer(c)
	if !ok {
		return
	}
	var req collectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, transport.InvalidParam, "参数有误")
		return
	}
	reply, err := h.deps.Players.CollectIncome(ctx, pid, req.Amount, req.Kind)
	if err != nil {
		h.error(ctx, c, err)
		return
	}
	if !reply.OK {
		h.reject(ctx, c, reply.Result, nil)
		return
	}
	h.ok(c, reply)
}

type progressReq struct {
	Level      int            `json:"level" binding:"min=0"`
	GangSize   *int           `json:"gangSize" binding:"omitempty,min=0"`
	Wanted     int            `json:"wanted"`
	Reputation map[string]int `json:"reputation"`
	Skills     map[string]int `json:"skills"`
}

func (h *HttpHandler) Progress(c *gin.Context) {
	ctx := c.Request.Context()
	pid, ok := h.pathPlayer(c)
	if !ok {
		return
	}
	var req progressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, transport.InvalidParam, "参数有误")
		return
	}
	reply, err := h.deps.Players.Progress(ctx, messages.ProgressCmd{
		PlayerBaseMessage: messages.PlayerBaseMessage{Player: pid},
		Level:             req.Level,
		GangSize:          req.GangSize,
		Wanted:            req.Wanted,
		Reputation:        req.Reputation,
		Skills:            req.Skills,
	})
	if err != nil {
		h.error(ctx, c, err)
		return
	}
	if !reply.OK {
		h.reject(ctx, c, reply.Result, nil)
		return
	}
	h.ok(c, reply.State)
}

func (h *HttpHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	pid, _ := middleware.PlayerIDFrom(c)
	reply, err := h.deps.Players.State(ctx, pid)
	if err != nil {
		h.error(ctx, c, err)
		return
	}
	if !reply.OK {
		h.reject(ctx, c, reply.Result, nil)
		return
	}
	h.ok(c, reply.State)
}

func (h *HttpHandler) pathPlayer(c *gin.Context) (types.PlayerID, bool) {
	raw, err := strconv.ParseInt(c.Param("id"), 10, 64)
	pid := types.PlayerID(raw)
	if err != nil || !pid.Valid() {
		h.fail(c, transport.InvalidParam, "player_id 非法")
		return types.NoPlayer, false
	}
	return pid, true
}

func (h *HttpHandler) Daily(c *gin.Context) {
	ctx := c.Request.Context()
	pid, ok := h.pathPlayer(c)
	if !ok {
		return
	}
	reply, err := h.deps.Players.DailyTick(ctx, pid, h.deps.Now())
	if err != nil {
		h.error(ctx, c, err)
		return
	}
	if !reply.OK {
		h.reject(ctx, c, reply.Result, nil)
		return
	}
	h.ok(c, reply)
}

func (h *HttpHandler) ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.Success(transport.OK, data))
}

func (h *HttpHandler) fail(c *gin.Context, code int, msg string) {
	c.JSON(dto.StatusOf(code), dto.Error(code, msg))
}

// reject 规则拒绝：reason 原样放进 data，客户端按它做提示。
func (h *HttpHandler) reject(ctx context.Context, c *gin.Context, res messages.Result, detail any) {
	transport.SetErrorReason(ctx, res.Reason)
	code := mapReasonToClientCode(res.Reason)
	data := gin.H{"reason": res.Reason}
	if detail != nil {
		data["detail"] = detail
	}
	c.JSON(dto.StatusOf(code), dto.ErrorWithData(code, res.Message, data))
}

func (h *HttpHandler) error(ctx context.Context, c *gin.Context, err error) {
	code, msg := HandleError(ctx, err)
	if code >= transport.SystemError {
		logx.ReportError(ctx, h.deps.Log, c.FullPath(), err)
	}
	h.fail(c, code, msg)
}
