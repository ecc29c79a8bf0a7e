package application

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/land-relay-go/internal/game/room"
	"github.com/lk2023060901/land-relay-go/internal/network/bus"
	"github.com/lk2023060901/land-relay-go/internal/network/serializer"
	"github.com/lk2023060901/land-relay-go/pkg/log"
	zviper "github.com/lk2023060901/land-relay-go/pkg/util/viper"
)

const (
	// EnvPrefix 为配置项对应环境变量的前缀，例如 RELAY_SERVER_ADDR。
	EnvPrefix = "RELAY"
	// EnvConfigFilePath 指定配置文件路径的环境变量。
	EnvConfigFilePath = "RELAY_CONFIG_FILE_PATH"
	// DefaultConfigFilePath 为默认配置文件路径，文件不存在时忽略。
	DefaultConfigFilePath = "./configs/relay.yaml"
)

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Path            string        `mapstructure:"path"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	MaxMessageSize  int64         `mapstructure:"maxMessageSize"`
	MaxConnections  int           `mapstructure:"maxConnections"`
}

type BusConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type GameConfig struct {
	Rooms int `mapstructure:"rooms"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config 为进程级配置。
type Config struct {
	Server     ServerConfig  `mapstructure:"server"`
	Bus        BusConfig     `mapstructure:"bus"`
	Game       GameConfig    `mapstructure:"game"`
	Serializer string        `mapstructure:"serializer"`
	Log        log.Config    `mapstructure:"log"`
	Metrics    MetricsConfig `mapstructure:"metrics"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.addr":            "0.0.0.0:7878",
		"server.path":            "/ws",
		"server.readTimeout":     time.Duration(0),
		"server.writeTimeout":    10 * time.Second,
		"server.shutdownTimeout": defaultShutdownTimeout,
		"server.maxMessageSize":  64 << 10,
		"server.maxConnections":  10000,
		"bus.capacity":           bus.DefaultCapacity,
		"game.rooms":             room.DefaultSize,
		"serializer":             serializer.NameSonic,
		"log.level":              "info",
		"log.format":             log.FormatText,
		"log.stdout":             true,
		"log.file.rootpath":      "",
		"log.file.filename":      "",
		"log.file.max-size":      0,
		"log.file.max-days":      0,
		"log.file.max-backups":   0,
		"metrics.enabled":        true,
	}
}

// LoadConfig 按以下优先级确定配置文件并加载：
//  1. 默认：./configs/relay.yaml（不存在时忽略）
//  2. 环境变量：RELAY_CONFIG_FILE_PATH
//  3. 参数：explicit，通常来自命令行 --config
//
// 显式指定的文件不存在时返回错误。环境变量 RELAY_* 总是覆盖文件中的值。
func LoadConfig(explicit string) (Config, error) {
	v := zviper.New(EnvPrefix)
	v.SetDefaults(defaults())

	path, required := resolveConfigPath(explicit)
	if path != "" {
		if _, err := os.Stat(path); err != nil && !required {
			path = ""
		}
	}
	if err := v.LoadOptionalFile(path); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

func resolveConfigPath(explicit string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	if env := os.Getenv(EnvConfigFilePath); env != "" {
		return env, true
	}
	return DefaultConfigFilePath, false
}
