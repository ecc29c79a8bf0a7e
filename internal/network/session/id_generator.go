package session

import (
	"go.uber.org/atomic"

	"github.com/lk2023060901/land-relay-go/internal/network/event"
)

// IDGenerator 分配会话 ID。
//
// 第一个 ID 为 1；0 为广播地址，永远不会被分配。
type IDGenerator struct {
	last atomic.Uint64
}

// NewIDGenerator 创建一个从 1 开始分配的 IDGenerator。
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next 返回下一个 ID，可并发调用，任意两次调用的返回值都不相同。
func (g *IDGenerator) Next() event.ConnID {
	for {
		if id := event.ConnID(g.last.Inc()); id != event.Broadcast {
			return id
		}
	}
}

// Last 返回最近一次分配的 ID，尚未分配时为 0。
func (g *IDGenerator) Last() event.ConnID {
	return event.ConnID(g.last.Load())
}
