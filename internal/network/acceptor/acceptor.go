package acceptor

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lk2023060901/land-relay-go/internal/network/bus"
	"github.com/lk2023060901/land-relay-go/internal/network/event"
	"github.com/lk2023060901/land-relay-go/internal/network/serializer"
)

// Handler 处理一条已解码的入站事件，返回非 nil 时该事件会被发布到广播总线。
//
// 连接断开时 Handler 还会收到一次合成的 Close 事件，用于释放业务状态。
// 同一连接上的调用是串行的，不同连接之间并发。
type Handler func(ctx context.Context, ev event.Event) *event.Event

// Config 描述 Acceptor 的配置。
//
// 说明：
//   - ReadTimeout 为 0 时不检测空闲连接，大于 0 时按其 9/10 周期发送 ping；
//   - MaxConnections 限制同时在线的连接数，超出时以 1013 关闭码拒绝；
//   - BusCapacity 为每个连接在广播总线上的缓冲容量。
type Config struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
	MaxConnections int
	BusCapacity    int

	// Upgrader 允许调用方自定义 gorilla/websocket 的升级行为。
	// 若为 nil，则使用内部默认的 Upgrader。
	Upgrader *websocket.Upgrader

	// Serializer 为事件信封使用的序列化实现，为 nil 时使用 sonic。
	Serializer serializer.Serializer
}

const (
	defaultWriteTimeout   = 10 * time.Second
	defaultMaxMessageSize = 64 << 10
	defaultMaxConnections = 10000
)

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   defaultWriteTimeout,
		MaxMessageSize: defaultMaxMessageSize,
		MaxConnections: defaultMaxConnections,
		BusCapacity:    bus.DefaultCapacity,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = defaultMaxConnections
	}
	if c.BusCapacity <= 0 {
		c.BusCapacity = bus.DefaultCapacity
	}
	return c
}

// keepaliveInterval 返回 ping 周期，0 表示不发送 ping。
func (c Config) keepaliveInterval() time.Duration {
	return c.ReadTimeout * 9 / 10
}
