package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"Underworld/internal/api"
	"Underworld/internal/passive"
	playeractor "Underworld/internal/player/actor"
	"Underworld/internal/player/actors"
	playerport "Underworld/internal/player/app/port"
	playermemory "Underworld/internal/player/infra/persistence/memory"
	playermysql "Underworld/internal/player/infra/persistence/mysql"
	"Underworld/internal/shared/gameconfig/district"
	shareddb "Underworld/internal/shared/infrastructure/db"
	sharedmongo "Underworld/internal/shared/infrastructure/mongo"
	sharedsqlite "Underworld/internal/shared/infrastructure/sqlite"
	"Underworld/internal/shared/logs"
	"Underworld/internal/shared/security"
	"Underworld/internal/shared/serverconfig"
	transportgrpc "Underworld/internal/shared/transport/grpc"
	transporthttp "Underworld/internal/shared/transport/http"
	"Underworld/internal/shared/transport/http/middleware"
	"Underworld/internal/shared/transport/ws"
	"Underworld/internal/shared/utils"
	territoryentity "Underworld/internal/territory/entity"
	territory "Underworld/internal/territory/service"
	worldactor "Underworld/internal/world/actor"
	"Underworld/internal/world/app/port"
	"Underworld/internal/world/dc"
	"Underworld/internal/world/infra/persistence/file"
	worldmemory "Underworld/internal/world/infra/persistence/memory"
	worldmongo "Underworld/internal/world/infra/persistence/mongodb"
	worldmysql "Underworld/internal/world/infra/persistence/mysql"
	worldsqlite "Underworld/internal/world/infra/persistence/sqlite"
	"Underworld/internal/world/service"
	"Underworld/modules/kit/logx"
)

const shutdownTimeout = 10 * time.Second

// closers 逆序释放外部连接。
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

// addGorm 退出时关闭 gorm 底层连接池。
func (c *closers) addGorm(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		c.add(func() { _ = sqlDB.Close() })
	}
}

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func main() {
	cfgName := pflag.StringP("config", "c", "", "config file, defaults to configs/conf.yml found upward")
	pflag.Parse()

	serverconfig.MustLoad(*cfgName)
	conf := serverconfig.Conf
	if err := logs.Init("world", conf.Log); err != nil {
		panic(err)
	}
	defer logs.Sync()
	logs.Info("conf", zap.Any("world", conf.World), zap.Any("player", conf.Player), zap.Any("http", conf.HTTPServer))
	if !conf.Log.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	kit := logs.Kit()

	var cleanup closers
	defer cleanup.run()

	reg := loadDistricts(conf.Logic.DistrictData)

	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	worldRepo, err := openWorldRepo(bootCtx, conf, &cleanup)
	if err != nil {
		cancel()
		logs.Fatal("open world store failed", zap.String("store", conf.World.Store), zap.Error(err))
	}
	playerRepo, err := openPlayerRepo(bootCtx, conf, &cleanup)
	if err != nil {
		cancel()
		logs.Fatal("open player store failed", zap.String("store", conf.Player.Store), zap.Error(err))
	}

	worldDC := dc.NewWorldDC(worldRepo, kit, dc.WithSaveWindow(conf.World.SaveThrottle))
	state := worldDC.LoadWorldState(bootCtx)
	cancel()
	store := territoryentity.Hydrate(reg.IDs(), state.Territories)

	hub := ws.NewHub(kit)
	svc := service.NewWorldService(store, state, worldDC, utils.MustSnowflake(conf.Logic.ServerID),
		service.WithPublisher(api.NewEventPublisher(hub)),
		service.WithLogger(kit),
	)
	worldRT := worldactor.NewRuntime(svc, conf.World.TickEvery, conf.Player.AskTimeout)

	seed := conf.Logic.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := utils.NewLockedRand(seed)
	resolver := territory.NewResolver(reg, store,
		territory.WithCombat(territory.StrengthCombat{Rand: rng}),
		territory.WithLogger(kit),
	)
	collector := territory.NewCollector(reg, store, kit)
	playerRT := playeractor.NewRuntime(&actors.Deps{
		Repo:       playerRepo,
		Store:      store,
		Resolver:   resolver,
		Collector:  collector,
		Passives:   passive.NewEngine(rng, kit),
		Log:        kit,
		FlushEvery: conf.Player.FlushEvery,
	}, conf.Player.AskTimeout)

	// 世界 actor 记事件与排行榜，玩家 actor 给街区主人入账
	listeners := territory.Listeners{worldRT, playerRT}
	resolver.SetListener(listeners)
	collector.SetListener(listeners)

	tokens, err := security.NewIssuer(conf.JWTSecret, 0)
	if err != nil {
		logs.Fatal("jwt issuer", zap.Error(err))
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	httpSrv := transporthttp.NewHttpServer(conf.HTTPServer.Addr(), engine, kit)
	wsRouter := ws.NewRouter(kit)
	api.NewWsHandler(worldRT).RegisterRoutes(wsRouter)
	api.Mount(httpSrv.Group(), api.NewHttpHandler(api.Deps{
		Registry: reg,
		Store:    store,
		World:    worldRT,
		Players:  playerRT,
		Tokens:   tokens,
		Limiter:  middleware.NewRateLimiter(conf.HTTPServer.RateLimit, conf.HTTPServer.RateBurst),
		Log:      kit,
	}), ws.NewServer(hub, wsRouter, kit))

	grpcSrv := transportgrpc.NewServer(conf.GRPCServer.Addr(), kit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logs.Info("http server started", zap.String("addr", conf.HTTPServer.Addr()))
		if err := httpSrv.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve failed: %w", err)
		}
	}()
	go func() {
		logs.Info("grpc server started", zap.String("addr", conf.GRPCServer.Addr()))
		if err := grpcSrv.Start(); err != nil {
			errCh <- fmt.Errorf("grpc serve failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logs.Info("收到退出信号，准备优雅退出")
	case err := <-errCh:
		logs.Error("服务异常退出", zap.Error(err))
	}

	shutdown(kit, httpSrv, grpcSrv, hub, playerRT, worldRT, worldDC)
}

// shutdown 先停入口，再停玩家（落玩家档），最后停世界并把存档刷盘。
func shutdown(kit logx.Logger, httpSrv *transporthttp.Server, grpcSrv *transportgrpc.Server, hub *ws.Hub,
	playerRT *playeractor.Runtime, worldRT *worldactor.Runtime, worldDC *dc.WorldDC) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logs.Warn("http shutdown", zap.Error(err))
	}
	grpcSrv.Shutdown(ctx)
	hub.Close()
	playerRT.Shutdown()
	if err := worldRT.Shutdown(); err != nil {
		logx.ReportSysError(ctx, kit, logx.NewSysLog("world.shutdown", err))
	}
	if err := worldDC.Close(ctx); err != nil {
		logx.ReportSysError(ctx, kit, logx.NewSysLog("world.flush", err))
	}
	logs.Info("world server stopped")
}

func loadDistricts(path string) *district.Registry {
	if path == "" {
		return district.Default()
	}
	reg, err := district.Load(path)
	if err != nil {
		logs.Fatal("load district catalog failed", zap.String("path", path), zap.Error(err))
	}
	logs.Info("district catalog loaded", zap.String("path", path), zap.Int("districts", reg.Len()))
	return reg
}

func openWorldRepo(ctx context.Context, conf serverconfig.Config, cleanup *closers) (port.WorldRepository, error) {
	switch conf.World.Store {
	case "", "file":
		codec, err := file.ParseCodec(conf.World.Codec)
		if err != nil {
			return nil, err
		}
		return file.NewWorldRepository(conf.World.FilePath, file.WithCodec(codec), file.WithSecret(conf.World.Secret)), nil
	case "mongodb":
		client, err := sharedmongo.Open(conf.MongoDB, logs.Logger())
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { _ = client.Disconnect(context.Background()) })
		return worldmongo.NewWorldRepository(client.Database(conf.MongoDB.Database)), nil
	case "mysql":
		db, err := shareddb.Open(conf.MySQL)
		if err != nil {
			return nil, err
		}
		cleanup.addGorm(db)
		repo := worldmysql.NewWorldRepository(db)
		return repo, repo.AutoMigrate(ctx)
	case "sqlite":
		db, err := sharedsqlite.Open(conf.SQLite.Path, logs.Logger())
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { _ = db.Close() })
		repo := worldsqlite.NewWorldRepository(db)
		return repo, repo.Migrate(ctx)
	case "memory":
		return worldmemory.NewWorldRepository(), nil
	default:
		return nil, fmt.Errorf("unknown world store %q", conf.World.Store)
	}
}

func openPlayerRepo(ctx context.Context, conf serverconfig.Config, cleanup *closers) (playerport.PlayerRepository, error) {
	switch conf.Player.Store {
	case "", "memory":
		return playermemory.NewPlayerRepo(), nil
	case "mysql":
		db, err := shareddb.Open(conf.MySQL)
		if err != nil {
			return nil, err
		}
		cleanup.addGorm(db)
		repo := playermysql.NewPlayerRepo(db)
		return repo, repo.AutoMigrate(ctx)
	default:
		return nil, fmt.Errorf("unknown player store %q", conf.Player.Store)
	}
}
