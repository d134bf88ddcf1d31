package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Options 控制一次加载的行为。
type Options struct {
	// EnvPrefix 非空时启用环境变量覆盖，例如 UNDERWORLD_HTTPSERVER_PORT。
	EnvPrefix string
	// Defaults 在读取文件前写入 viper。
	Defaults map[string]any
	// OnChange 非空时监听文件变化，重新解码成功后回调。
	OnChange func(v *viper.Viper)
}

// DecodeHook 把 "5s" 之类的字符串解成 time.Duration，把逗号分隔串解成切片。
func DecodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// Load 读取 path 并解码到 out。返回的 viper 实例可以继续取值。
func Load(path string, out any, opts Options) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range opts.Defaults {
		v.SetDefault(k, val)
	}
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(out, DecodeHook()); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if opts.OnChange != nil {
		v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			opts.OnChange(v)
		})
		v.WatchConfig()
	}
	return v, nil
}
