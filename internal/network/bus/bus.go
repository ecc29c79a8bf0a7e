// Package bus 实现了进程内的广播总线。
//
// 每个连接的发送协程持有一个订阅；发布的事件会复制到发布时刻的所有订阅，
// 由订阅方按接收方 ID 自行过滤。总线不回放历史，订阅之前发布的事件不可见。
package bus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/lk2023060901/land-relay-go/internal/network/event"
	"github.com/lk2023060901/land-relay-go/pkg/log"
	"github.com/lk2023060901/land-relay-go/pkg/metrics"
	"github.com/lk2023060901/land-relay-go/pkg/util/typeutil"
)

// DefaultCapacity 为每个订阅的默认缓冲容量。
const DefaultCapacity = 20

// Bus 为多生产者多消费者的广播总线。
//
// Publish 从不阻塞：订阅缓冲区已满时该订阅本次投递被丢弃。
type Bus struct {
	mu       sync.RWMutex
	capacity int
	subs     typeutil.Set[*Subscription]
	closed   bool

	logger *log.MLogger
}

// New 创建一个总线，capacity 为每个订阅的缓冲容量，非正数时使用 DefaultCapacity。
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		subs:     typeutil.NewSet[*Subscription](),
		logger:   log.With(log.FieldComponent("bus")).WithRateGroup("bus.drop", 1, 60),
	}
}

// Subscription 表示总线上的一个订阅。
type Subscription struct {
	bus  *Bus
	ch   chan event.Event
	once sync.Once
}

// Subscribe 创建一个新订阅，只能收到此后发布的事件。
// 总线已关闭时返回的订阅通道立即关闭。
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		bus: b,
		ch:  make(chan event.Event, b.capacity),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	b.subs.Insert(sub)
	metrics.BusSubscribers.Set(float64(b.subs.Len()))
	return sub
}

// C 返回订阅的接收通道，订阅取消或总线关闭后通道被关闭。
func (s *Subscription) C() <-chan event.Event {
	return s.ch
}

// Unsubscribe 取消订阅，可重复调用。
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	s.once.Do(func() {
		s.bus.subs.Remove(s)
		metrics.BusSubscribers.Set(float64(s.bus.subs.Len()))
		close(s.ch)
	})
}

// Publish 将事件投递到当前所有订阅，返回成功入队的订阅数。
// 同一发布方的事件在每个订阅上保持发布顺序。
func (b *Bus) Publish(ev event.Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}

	delivered, dropped := 0, 0
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			dropped++
		}
	}
	if dropped > 0 {
		metrics.BusDropped.Add(float64(dropped))
		b.logger.RatedWarn(1, "bus subscriber full, event dropped",
			log.FieldEvent(ev.Name.String()),
			zap.Uint64("to", uint64(ev.ID)),
			zap.Int("dropped", dropped))
	}
	return delivered
}

// Len 返回当前订阅数。
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subs.Len()
}

// Close 关闭总线及所有订阅，之后的 Publish 不再投递。
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.closeLocked()
	}
}
