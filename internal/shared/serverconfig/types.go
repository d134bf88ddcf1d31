package serverconfig

import (
	"time"

	"Underworld/internal/shared/config"
)

type Config struct {
	Log        config.LogConfig `yaml:"log" mapstructure:"log"`
	HTTPServer HTTPServerConfig `yaml:"httpserver" mapstructure:"httpserver"`
	GRPCServer GRPCServerConfig `yaml:"grpcserver" mapstructure:"grpcserver"`
	MySQL      MySQLConfig      `yaml:"mysql" mapstructure:"mysql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb" mapstructure:"mongodb"`
	SQLite     SQLiteConfig     `yaml:"sqlite" mapstructure:"sqlite"`
	World      WorldConfig      `yaml:"world" mapstructure:"world"`
	Player     PlayerConfig     `yaml:"player" mapstructure:"player"`
	Logic      LogicConfig      `yaml:"logic" mapstructure:"logic"`
	JWTSecret  string           `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

type HTTPServerConfig struct {
	Host      string  `yaml:"host" mapstructure:"host"`
	Port      int     `yaml:"port" mapstructure:"port"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // 每个玩家每秒请求数
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

type GRPCServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type MySQLConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"dbname" mapstructure:"dbname"`
	Charset  string `yaml:"charset" mapstructure:"charset"`
	MaxIdle  int    `yaml:"max_idle" mapstructure:"max_idle"`
	MaxConn  int    `yaml:"max_conn" mapstructure:"max_conn"`
	ShowSQL  bool   `yaml:"show_sql" mapstructure:"show_sql"`
}

type MongoDBConfig struct {
	URI            string        `yaml:"uri" mapstructure:"uri"`
	Database       string        `yaml:"database" mapstructure:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// WorldConfig 控制世界状态文档存到哪里、多久落一次盘。
type WorldConfig struct {
	Store        string        `yaml:"store" mapstructure:"store"` // file/mongodb/mysql/sqlite/memory
	FilePath     string        `yaml:"file_path" mapstructure:"file_path"`
	Codec        string        `yaml:"codec" mapstructure:"codec"` // none/zstd/lz4
	Secret       string        `yaml:"secret" mapstructure:"secret"`
	SaveThrottle time.Duration `yaml:"save_throttle" mapstructure:"save_throttle"`
	TickEvery    time.Duration `yaml:"tick_every" mapstructure:"tick_every"`
}

type PlayerConfig struct {
	Store      string        `yaml:"store" mapstructure:"store"` // mysql/memory
	FlushEvery time.Duration `yaml:"flush_every" mapstructure:"flush_every"`
	AskTimeout time.Duration `yaml:"ask_timeout" mapstructure:"ask_timeout"`
}

type LogicConfig struct {
	DistrictData string `yaml:"district_data" mapstructure:"district_data"`
	ServerID     int64  `yaml:"server_id" mapstructure:"server_id"`
	RandSeed     int64  `yaml:"rand_seed" mapstructure:"rand_seed"`
}

func (c HTTPServerConfig) Addr() string {
	return joinHostPort(c.Host, c.Port)
}

func (c GRPCServerConfig) Addr() string {
	return joinHostPort(c.Host, c.Port)
}
