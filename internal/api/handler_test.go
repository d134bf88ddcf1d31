package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"Underworld/internal/passive"
	playeractor "Underworld/internal/player/actor"
	"Underworld/internal/player/actors"
	playerentity "Underworld/internal/player/entity"
	"Underworld/internal/player/infra/persistence/memory"
	"Underworld/internal/shared/gameconfig/district"
	"Underworld/internal/shared/security"
	"Underworld/internal/shared/transport"
	transporthttp "Underworld/internal/shared/transport/http"
	"Underworld/internal/shared/types"
	"Underworld/internal/shared/utils"
	territoryentity "Underworld/internal/territory/entity"
	territory "Underworld/internal/territory/service"
	"Underworld/internal/world/entity"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeWorld struct{}

func (fakeWorld) State(context.Context) (entity.WorldState, error) {
	return entity.DefaultWorldState(now), nil
}

type apiHarness struct {
	engine *gin.Engine
	store  *territoryentity.Store
	tokens *security.Issuer
}

func boss(id types.PlayerID) playerentity.State {
	s := playerentity.NewState(id, "boss"+id.String(), now)
	s.Level = 20
	s.Cash = 2_000_000
	s.GangSize = 10
	return s
}

func newAPI(t *testing.T, states ...playerentity.State) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := district.Default()
	store := territoryentity.NewStore(reg.IDs())
	clock := func() time.Time { return now }
	resolver := territory.NewResolver(reg, store, territory.WithClock(clock))
	collector := territory.NewCollector(reg, store, nil)
	repo := memory.NewPlayerRepo()
	repo.Seed(states...)
	players := playeractor.NewRuntime(&actors.Deps{
		Repo:       repo,
		Store:      store,
		Resolver:   resolver,
		Collector:  collector,
		Passives:   passive.NewEngine(utils.NewLockedRand(1), nil),
		FlushEvery: time.Hour,
		Now:        clock,
	}, 2*time.Second)
	t.Cleanup(players.Shutdown)

	tokens, err := security.NewIssuer("api-test", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	srv := transporthttp.NewHttpServer(":0", nil)
	h := NewHttpHandler(Deps{
		Registry: reg,
		Store:    store,
		World:    fakeWorld{},
		Players:  players,
		Tokens:   tokens,
		Now:      clock,
	})
	Mount(srv.Group(), h, nil)
	return &apiHarness{engine: srv.Engine(), store: store, tokens: tokens}
}

func (a *apiHarness) token(t *testing.T, pid types.PlayerID, role string) string {
	t.Helper()
	tok, err := a.tokens.Award(pid, "p"+pid.String(), role)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	return tok
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (a *apiHarness) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad body %q", method, path, w.Body.String())
	}
	return w.Code, env
}

func TestAPI_街区目录(t *testing.T) {
	a := newAPI(t)

	status, env := a.do(t, http.MethodGet, "/api/districts", "", nil)
	if status != http.StatusOK || env.Code != transport.OK {
		t.Fatalf("list: %d %+v", status, env)
	}
	var list []map[string]any
	_ = json.Unmarshal(env.Data, &list)
	if len(list) != 5 {
		t.Fatalf("districts=%d", len(list))
	}

	status, env = a.do(t, http.MethodGet, "/api/districts/eastside", "", nil)
	if status != http.StatusOK || env.Code != transport.OK {
		t.Fatalf("get: %d %+v", status, env)
	}

	status, env = a.do(t, http.MethodGet, "/api/districts/atlantis", "", nil)
	if status != http.StatusNotFound || env.Code != transport.DistrictNotFound {
		t.Fatalf("unknown: %d %+v", status, env)
	}
}

func TestAPI_占领返回原因码(t *testing.T) {
	a := newAPI(t, boss(1), boss(2))

	status, env := a.do(t, http.MethodPost, "/api/territories/eastside/claim", "", nil)
	if status != http.StatusUnauthorized || env.Code != transport.Unauthorized {
		t.Fatalf("no token: %d %+v", status, env)
	}

	status, env = a.do(t, http.MethodPost, "/api/territories/eastside/claim", a.token(t, 1, security.RolePlayer), nil)
	if status != http.StatusOK || env.Code != transport.OK {
		t.Fatalf("claim: %d %+v", status, env)
	}
	var reply struct {
		Cost int64 `json:"cost"`
	}
	_ = json.Unmarshal(env.Data, &reply)
	if reply.Cost != 250_000 {
		t.Fatalf("cost=%d", reply.Cost)
	}
	if owner, _ := a.store.Owner("eastside"); owner != 1 {
		t.Fatalf("owner=%d", owner)
	}

	status, env = a.do(t, http.MethodPost, "/api/territories/eastside/claim", a.token(t, 2, security.RolePlayer), nil)
	if status != http.StatusConflict || env.Code != transport.AlreadyClaimed {
		t.Fatalf("second claim: %d %+v", status, env)
	}
	var data struct {
		Reason string `json:"reason"`
	}
	_ = json.Unmarshal(env.Data, &data)
	if data.Reason != territory.ReasonAlreadyClaimed.ReasonCode() {
		t.Fatalf("reason=%q", data.Reason)
	}

	// 新玩家等级 1
	status, env = a.do(t, http.MethodPost, "/api/territories/industrial/claim", a.token(t, 3, security.RolePlayer), nil)
	if status != http.StatusUnprocessableEntity || env.Code != transport.InsufficientLevel {
		t.Fatalf("low level: %d %+v", status, env)
	}

	status, env = a.do(t, http.MethodPost, "/api/territories/atlantis/claim", a.token(t, 1, security.RolePlayer), nil)
	if status != http.StatusNotFound || env.Code != transport.DistrictNotFound {
		t.Fatalf("unknown district: %d %+v", status, env)
	}
}

func TestAPI_住户收入抽税(t *testing.T) {
	a := newAPI(t)
	if err := a.store.SetOwner("eastside", 1); err != nil {
		t.Fatalf("set owner: %v", err)
	}

	status, env := a.do(t, http.MethodPost, "/api/income/resident", "", gin.H{"playerId": 2, "district": "eastside", "amount": 1005})
	if status != http.StatusOK || env.Code != transport.OK {
		t.Fatalf("income: %d %+v", status, env)
	}
	var out territory.ResidentIncome
	_ = json.Unmarshal(env.Data, &out)
	if out.Gross != 1005 || out.Tax != 100 || out.Net != 905 || out.Owner != 1 {
		t.Fatalf("income=%+v", out)
	}

	_, env = a.do(t, http.MethodPost, "/api/income/resident", "", gin.H{"playerId": 1, "district": "eastside", "amount": 1000})
	_ = json.Unmarshal(env.Data, &out)
	if out.Tax != 0 || out.Net != 1000 {
		t.Fatalf("owner pays no tax: %+v", out)
	}

	status, env = a.do(t, http.MethodPost, "/api/income/resident", "", gin.H{"playerId": 2, "district": "eastside", "amount": -1})
	if status != http.StatusBadRequest || env.Code != transport.InvalidParam {
		t.Fatalf("negative: %d %+v", status, env)
	}
}

func TestAPI_每日结算只允许调度角色(t *testing.T) {
	a := newAPI(t, boss(1))

	status, env := a.do(t, http.MethodPost, "/api/players/1/daily", a.token(t, 1, security.RolePlayer), nil)
	if status != http.StatusForbidden || env.Code != transport.Forbidden {
		t.Fatalf("player token: %d %+v", status, env)
	}

	cron := a.token(t, types.NoPlayer, security.RoleScheduler)
	status, env = a.do(t, http.MethodPost, "/api/players/1/daily", cron, nil)
	if status != http.StatusOK || env.Code != transport.OK {
		t.Fatalf("daily: %d %+v", status, env)
	}
	var reply struct {
		Day     string `json:"day"`
		Skipped bool   `json:"skipped"`
	}
	_ = json.Unmarshal(env.Data, &reply)
	if reply.Day != "2026-03-01" || reply.Skipped {
		t.Fatalf("first daily=%+v", reply)
	}

	_, env = a.do(t, http.MethodPost, "/api/players/1/daily", cron, nil)
	_ = json.Unmarshal(env.Data, &reply)
	if !reply.Skipped {
		t.Fatalf("second daily should be skipped")
	}

	status, env = a.do(t, http.MethodPost, "/api/players/abc/daily", cron, nil)
	if status != http.StatusBadRequest || env.Code != transport.InvalidParam {
		t.Fatalf("bad id: %d %+v", status, env)
	}
}

func TestAPI_收入入账只允许调度角色且按住处抽税(t *testing.T) {
	a := newAPI(t, boss(1), boss(2))
	tenant := a.token(t, 2, security.RolePlayer)

	status, env := a.do(t, http.MethodPost, "/api/players/2/income", tenant,
		map[string]any{"amount": 1_000_000_000, "kind": "resident"})
	if status != http.StatusForbidden || env.Code != transport.Forbidden {
		t.Fatalf("player token: %d %+v", status, env)
	}

	if status, env := a.do(t, http.MethodPost, "/api/territories/eastside/claim", a.token(t, 1, security.RolePlayer), nil); status != http.StatusOK {
		t.Fatalf("claim: %d %+v", status, env)
	}
	if status, env := a.do(t, http.MethodPost, "/api/territories/eastside/relocate", tenant, nil); status != http.StatusOK {
		t.Fatalf("relocate: %d %+v", status, env)
	}

	cron := a.token(t, types.NoPlayer, security.RoleScheduler)
	// 请求里带的街区不参与结算
	status, env = a.do(t, http.MethodPost, "/api/players/2/income", cron,
		map[string]any{"amount": 1000, "kind": "resident", "district": "downtown"})
	if status != http.StatusOK || env.Code != transport.OK {
		t.Fatalf("collect: %d %+v", status, env)
	}
	var inc struct {
		Net   int64 `json:"net"`
		Tax   int64 `json:"tax"`
		Owner int64 `json:"owner"`
	}
	_ = json.Unmarshal(env.Data, &inc)
	if inc.Net != 900 || inc.Tax != 100 || inc.Owner != 1 {
		t.Fatalf("income=%+v", inc)
	}

	status, env = a.do(t, http.MethodPost, "/api/players/2/income", cron, map[string]any{"amount": 10, "kind": "lottery"})
	if status != http.StatusBadRequest || env.Code != transport.InvalidParam {
		t.Fatalf("bad kind: %d %+v", status, env)
	}
}

func TestAPI_成长接口(t *testing.T) {
	a := newAPI(t)
	cron := a.token(t, types.NoPlayer, security.RoleScheduler)

	status, env := a.do(t, http.MethodPost, "/api/players/5/progress", a.token(t, 5, security.RolePlayer), map[string]any{"level": 99})
	if status != http.StatusForbidden {
		t.Fatalf("player token: %d %+v", status, env)
	}

	status, env = a.do(t, http.MethodPost, "/api/players/5/progress", cron,
		map[string]any{"level": 12, "gangSize": 6, "reputation": map[string]int{"cartel": 20}})
	if status != http.StatusOK || env.Code != transport.OK {
		t.Fatalf("progress: %d %+v", status, env)
	}
	var st struct {
		Level      int            `json:"level"`
		GangSize   int            `json:"gangSize"`
		Reputation map[string]int `json:"reputation"`
	}
	_ = json.Unmarshal(env.Data, &st)
	if st.Level != 12 || st.GangSize != 6 || st.Reputation["cartel"] != 20 {
		t.Fatalf("state=%+v", st)
	}

	status, env = a.do(t, http.MethodPost, "/api/players/5/progress", cron, map[string]any{"skills": map[string]int{"cooking": 1}})
	if status != http.StatusBadRequest || env.Code != transport.InvalidParam {
		t.Fatalf("bad skill: %d %+v", status, env)
	}
}

func TestAPI_我的状态与世界(t *testing.T) {
	a := newAPI(t, boss(7))

	_, env := a.do(t, http.MethodGet, "/api/players/me", a.token(t, 7, security.RolePlayer), nil)
	var st struct {
		ID   int64 `json:"id"`
		Cash int64 `json:"cash"`
	}
	_ = json.Unmarshal(env.Data, &st)
	if env.Code != transport.OK || st.ID != 7 || st.Cash != 2_000_000 {
		t.Fatalf("me: %+v %+v", env, st)
	}

	_, env = a.do(t, http.MethodGet, "/api/world", "", nil)
	var w entity.WorldState
	_ = json.Unmarshal(env.Data, &w)
	if env.Code != transport.OK || len(w.CityDistricts) != 5 || len(w.CityEvents) != 3 {
		t.Fatalf("world: %+v", env)
	}
}
