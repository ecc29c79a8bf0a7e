package viper

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	spfviper "github.com/spf13/viper"
)

// Config 封装 spf13/viper 实例，对外提供精简的 YAML/JSON 配置加载接口。
// 取值优先级：环境变量 > 配置文件 > 默认值。
type Config struct {
	v *spfviper.Viper
}

// New 创建一个空的 Config。
// envPrefix 非空时会自动绑定形如 PREFIX_SERVER_ADDR 的环境变量。
func New(envPrefix string) *Config {
	v := spfviper.New()
	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()
	}
	return &Config{v: v}
}

// SetDefault 设置 key 的默认值。
// 只有设置过默认值（或出现在配置文件中）的 key 才能被 Unmarshal 从环境变量读取。
func (c *Config) SetDefault(key string, value any) {
	c.v.SetDefault(key, value)
}

// SetDefaults 批量设置默认值。
func (c *Config) SetDefaults(defaults map[string]any) {
	for k, val := range defaults {
		c.v.SetDefault(k, val)
	}
}

// Set 覆盖 key 的值，优先级高于其它来源。
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// LoadFile 将 YAML 或 JSON 配置文件加载到 Config 中。
// 文件类型通过扩展名（.yaml/.yml/.json）推断。
func (c *Config) LoadFile(path string) error {
	c.v.SetConfigFile(path)

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		c.v.SetConfigType("yaml")
	case ".json":
		c.v.SetConfigType("json")
	default:
		// 让 viper 自行推断类型，或在读取时返回清晰的错误信息。
	}

	if err := c.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "load config file %s", path)
	}
	return nil
}

// LoadOptionalFile 与 LoadFile 相同，但 path 为空时直接返回。
func (c *Config) LoadOptionalFile(path string) error {
	if path == "" {
		return nil
	}
	return c.LoadFile(path)
}

// Unmarshal 将完整配置反序列化到 dst。
// dst 应为结构体或 map 的指针。
func (c *Config) Unmarshal(dst any) error {
	return c.v.Unmarshal(dst)
}

// UnmarshalKey 将指定 key 对应的子配置反序列化到 dst。
// dst 应为结构体或 map 的指针。
func (c *Config) UnmarshalKey(key string, dst any) error {
	return c.v.UnmarshalKey(key, dst)
}

func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

// IsSet 判断 key 是否在任一来源中出现过。
func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}
