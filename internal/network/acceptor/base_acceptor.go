package acceptor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/land-relay-go/internal/network"
	"github.com/lk2023060901/land-relay-go/internal/network/bus"
	"github.com/lk2023060901/land-relay-go/internal/network/event"
	"github.com/lk2023060901/land-relay-go/internal/network/session"
	"github.com/lk2023060901/land-relay-go/pkg/log"
	"github.com/lk2023060901/land-relay-go/pkg/metrics"
	"github.com/lk2023060901/land-relay-go/pkg/util/conc"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

// Acceptor 是服务器侧的 WebSocket 接入层，实现了 http.Handler。
//
// 职责：
//   - 处理 WebSocket 升级并为每个连接分配 ID；
//   - 每个连接一个入站协程（即 ServeHTTP 所在协程）与一个出站协程（运行在协程池中）；
//   - 入站事件交给 Handler，Handler 的回复发布到广播总线；
//   - 出站协程订阅广播总线，只写出 ID 为 0 或本连接 ID 的事件。
type Acceptor struct {
	log.Binder

	cfg      Config
	upgrader websocket.Upgrader
	codec    *event.Codec

	ids      *session.IDGenerator
	sessions *session.Manager
	bus      *bus.Bus
	pumps    *conc.Pool[struct{}]

	handler atomic.Pointer[Handler]

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ http.Handler = (*Acceptor)(nil)

// New 创建一个 Acceptor。
func New(cfg Config) *Acceptor {
	cfg = cfg.withDefaults()

	upgrader := websocket.Upgrader{}
	if cfg.Upgrader != nil {
		upgrader = *cfg.Upgrader
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Acceptor{
		cfg:      cfg,
		upgrader: upgrader,
		codec:    event.NewCodec(cfg.Serializer),
		ids:      session.NewIDGenerator(),
		sessions: session.NewManager(),
		bus:      bus.New(cfg.BusCapacity),
		pumps: conc.NewPool[struct{}](cfg.MaxConnections,
			conc.WithNonBlocking(true),
			conc.WithConcealPanic(true),
			conc.WithPanicHandler(func(any) {
				metrics.EventErrors.WithLabelValues(string(network.StageSend)).Inc()
			}),
		),
		ctx:    ctx,
		cancel: cancel,
	}
	a.BindComponent("acceptor")
	return a
}

// OnEvent 注册事件处理函数，后注册的覆盖先注册的。
func (a *Acceptor) OnEvent(h Handler) {
	if h == nil {
		a.handler.Store(nil)
		return
	}
	a.handler.Store(&h)
}

// Publish 将服务器主动推送的事件发布到广播总线，返回接收该事件的订阅数。
func (a *Acceptor) Publish(ev event.Event) int {
	return a.bus.Publish(ev)
}

// Sessions 返回在线会话索引。
func (a *Acceptor) Sessions() *session.Manager {
	return a.sessions
}

// Bus 返回广播总线。
func (a *Acceptor) Bus() *bus.Bus {
	return a.bus
}

// ServeHTTP 完成升级并在当前协程中运行该连接的入站循环，连接断开后返回。
func (a *Acceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !a.enter() {
		metrics.RejectedConnections.WithLabelValues("shutdown").Inc()
		http.Error(w, merr.WrapErrServiceNotReady("acceptor", "stopping").Error(), http.StatusServiceUnavailable)
		return
	}
	defer a.wg.Done()

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrader 已经写回了 HTTP 错误。
		metrics.RejectedConnections.WithLabelValues("upgrade").Inc()
		metrics.EventErrors.WithLabelValues(string(network.StageUpgrade)).Inc()
		a.Logger().RatedWarn(1, "websocket upgrade failed",
			zap.String("remote", r.RemoteAddr),
			zap.Error(errors.Mark(err, network.ErrUpgradeFailed)))
		return
	}

	id := a.ids.Next()
	sess := session.NewBaseSession(a.ctx, id, conn, a.codec, session.Options{
		ReadTimeout:    a.cfg.ReadTimeout,
		WriteTimeout:   a.cfg.WriteTimeout,
		MaxMessageSize: a.cfg.MaxMessageSize,
	})

	// 先订阅再启动出站协程，保证连接建立后发布的事件都能被看到。
	sub := a.bus.Subscribe()
	outbound := a.pumps.Submit(func() (struct{}, error) {
		return struct{}{}, a.outboundLoop(sess, sub)
	})
	if outbound.Done() && conc.IsOverload(outbound.Err()) {
		sub.Unsubscribe()
		metrics.RejectedConnections.WithLabelValues("limit").Inc()
		limitErr := merr.WrapErrTooManyConnections(a.cfg.MaxConnections)
		sess.Logger().RatedWarn(1, "connection rejected", zap.Error(limitErr))
		_ = sess.CloseWithCode(websocket.CloseTryAgainLater, "too many connections")
		return
	}

	if err := a.sessions.Register(sess); err != nil {
		sess.Logger().Error("register session failed", zap.Error(err))
	}
	metrics.AcceptedConnections.Inc()
	sess.Logger().Debug("connection accepted")

	ctx := log.WithConnID(sess.Context(), uint64(id))
	cause := a.inboundLoop(ctx, sess)

	// 入站结束：关闭连接与订阅，等待出站协程退出，再触发一次合成的 Close。
	_ = sess.Close()
	sub.Unsubscribe()
	if err := outbound.Err(); err != nil && network.StageOf(err) != network.StageSend {
		sess.Logger().Warn("outbound pump stopped", zap.Error(err))
	}
	_ = a.sessions.Unregister(id)
	a.dispatch(context.WithoutCancel(ctx), event.Disconnected(id))

	sess.Logger().Debug("connection closed", zap.Error(cause))
}

// enter 在未关停时登记一个连接，返回 false 表示已关停。
func (a *Acceptor) enter() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.wg.Add(1)
	return true
}

// inboundLoop 循环读取入站帧直到连接断开，返回断开原因。
// 格式错误的帧不会断开连接，而是向发送方回复一个 Error 事件。
func (a *Acceptor) inboundLoop(ctx context.Context, sess session.Session) error {
	for {
		ev, err := sess.Recv()
		if err != nil {
			stage := network.StageOf(err)
			if stage == network.StageDecode {
				metrics.EventErrors.WithLabelValues(string(stage)).Inc()
				sess.Logger().RatedInfo(1, "malformed frame", zap.Error(err))
				a.bus.Publish(event.Malformed(sess.ID()))
				continue
			}
			return err
		}

		metrics.Events.WithLabelValues(string(ev.Name), metrics.DirectionInbound).Inc()
		a.dispatch(ctx, ev)
	}
}

// outboundLoop 将订阅到的事件中属于本连接的部分写出，直到连接关闭或订阅结束。
func (a *Acceptor) outboundLoop(sess session.Session, sub *bus.Subscription) error {
	var keepalive <-chan time.Time
	if interval := a.cfg.keepaliveInterval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		keepalive = ticker.C
	}

	// 出站协程退出时关闭连接，从而结束入站循环。
	defer sess.Close()

	for {
		select {
		case <-sess.Context().Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if !ev.DeliverTo(sess.ID()) {
				continue
			}
			if err := sess.Send(ev); err != nil {
				metrics.EventErrors.WithLabelValues(string(network.StageOf(err))).Inc()
				if network.StageOf(err) == network.StageEncode {
					sess.Logger().Error("drop unencodable event", log.FieldMessage(ev), zap.Error(err))
					continue
				}
				return err
			}
			metrics.Events.WithLabelValues(string(ev.Name), metrics.DirectionOutbound).Inc()
		case <-keepalive:
			if err := sess.Ping(); err != nil {
				return err
			}
		}
	}
}

// dispatch 调用 Handler，并把回复发布到广播总线。
func (a *Acceptor) dispatch(ctx context.Context, ev event.Event) {
	h := a.handler.Load()
	if h == nil {
		return
	}
	if resp := (*h)(ctx, ev); resp != nil {
		a.bus.Publish(*resp)
	}
}

// Shutdown 拒绝新连接，关闭所有会话与广播总线，并等待所有连接的 Close 处理完成。
func (a *Acceptor) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.sessions.Range(func(sess session.Session) bool {
		_ = sess.CloseWithCode(websocket.CloseGoingAway, "server shutdown")
		return true
	})
	a.bus.Close()
	a.cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	defer a.pumps.Release()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "acceptor shutdown")
	}
}
