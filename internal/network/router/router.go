package router

import (
	"context"
	"sync"

	"github.com/lk2023060901/land-relay-go/internal/network/event"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

// Handler 是按事件名分发的处理函数签名。
//
// 返回：
//   - resp：可选的回复事件，为 nil 时表示无需回复；
//   - err ：处理失败时的错误，由上层决定如何记录或转换为回复。
type Handler func(ctx context.Context, ev event.Event) (resp *event.Event, err error)

// Router 维护事件名到 Handler 的映射。
//
// 未注册的事件名交给 fallback；未设置 fallback 时被忽略，
// 以便客户端发送的玩法层事件在核心不认识时也不会报错。
type Router interface {
	// Register 为事件名注册 Handler，同一事件名不允许重复注册。
	Register(name event.Name, h Handler) error

	// SetFallback 设置未注册事件名的处理函数，传 nil 表示忽略。
	SetFallback(h Handler)

	// Handle 分发一条事件。
	Handle(ctx context.Context, ev event.Event) (*event.Event, error)

	// Routes 返回已注册的事件名。
	Routes() []event.Name
}

// defaultRouter 是 Router 接口的基础实现。
type defaultRouter struct {
	mu       sync.RWMutex
	routes   map[event.Name]Handler
	fallback Handler
}

var _ Router = (*defaultRouter)(nil)

// New 创建一个空的 Router。
func New() Router {
	return &defaultRouter{
		routes: make(map[event.Name]Handler),
	}
}

// Register 实现 Router.Register。
func (r *defaultRouter) Register(name event.Name, h Handler) error {
	if name == "" {
		return merr.WrapErrParameterMissing("name", "router: event name is empty")
	}
	if h == nil {
		return merr.WrapErrParameterMissing("handler", "router: handler is nil for "+string(name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[name]; exists {
		return merr.WrapErrRouteDuplicated(string(name))
	}
	r.routes[name] = h
	return nil
}

// SetFallback 实现 Router.SetFallback。
func (r *defaultRouter) SetFallback(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// Handle 实现 Router.Handle。
func (r *defaultRouter) Handle(ctx context.Context, ev event.Event) (*event.Event, error) {
	r.mu.RLock()
	h, ok := r.routes[ev.Name]
	if !ok {
		h = r.fallback
	}
	r.mu.RUnlock()

	if h == nil {
		return nil, nil
	}
	return h(ctx, ev)
}

// Routes 实现 Router.Routes。
func (r *defaultRouter) Routes() []event.Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]event.Name, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	return names
}
