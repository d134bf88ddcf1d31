package serverconfig

import (
	"net"
	"os"
	"strconv"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"Underworld/internal/shared/config"
	"Underworld/internal/shared/logs"
)

const envPrefix = "UNDERWORLD"

var Conf Config

func defaults() map[string]any {
	return map[string]any{
		"httpserver.host":         "0.0.0.0",
		"httpserver.port":         8080,
		"httpserver.rate_limit":   10,
		"httpserver.rate_burst":   20,
		"grpcserver.host":         "0.0.0.0",
		"grpcserver.port":         9090,
		"world.store":             "file",
		"world.file_path":         "data/world.state",
		"world.codec":             "zstd",
		"world.save_throttle":     "5s",
		"world.tick_every":        "1m",
		"player.store":            "memory",
		"player.flush_every":      "3s",
		"player.ask_timeout":      "3s",
		"mongodb.database":        "underworld",
		"mongodb.connect_timeout": "5s",
		"sqlite.path":             "data/underworld.db",
		"log.level":               "info",
		"logic.server_id":         1,
	}
}

// Load 解析配置文件到 Conf；文件变化时只热更日志级别，其余配置需要重启生效。
func Load(cfgName string) error {
	path, err := config.Resolve(cfgName)
	if err != nil {
		return err
	}
	_, err = config.Load(path, &Conf, config.Options{
		EnvPrefix: envPrefix,
		Defaults:  defaults(),
		OnChange: func(v *viper.Viper) {
			level := v.GetString("log.level")
			if err := logs.SetLevel(level); err != nil {
				logs.Warn("config reload: bad log level", zap.String("level", level), zap.Error(err))
				return
			}
			logs.Info("config reload: log level updated", zap.String("level", level))
		},
	})
	if err != nil {
		return err
	}
	// 环境变量优先；未设置时回填配置里的 jwt_secret，兼容本地开发。
	if os.Getenv("JWT_SECRET") == "" && Conf.JWTSecret != "" {
		_ = os.Setenv("JWT_SECRET", Conf.JWTSecret)
	}
	return nil
}

// MustLoad 启动阶段使用，失败直接 panic。
func MustLoad(cfgName string) {
	if err := Load(cfgName); err != nil {
		panic(err)
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
