package session

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/land-relay-go/internal/network"
	"github.com/lk2023060901/land-relay-go/internal/network/event"
	"github.com/lk2023060901/land-relay-go/pkg/log"
	"github.com/lk2023060901/land-relay-go/pkg/metrics"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

// closeGracePeriod 为发送关闭帧的最长等待时间。
const closeGracePeriod = time.Second

// Options 为会话的读写参数。
type Options struct {
	// WriteTimeout 为单次写出的超时时间，0 表示不设置。
	WriteTimeout time.Duration
	// ReadTimeout 为两帧之间允许的最长间隔，0 表示不设置。
	// 开启后对端的 pong 会延长读超时。
	ReadTimeout time.Duration
	// MaxMessageSize 为单帧最大字节数，0 表示不限制。
	MaxMessageSize int64
}

// BaseSession 提供了基于 gorilla/websocket 的 Session 实现。
//
// 读取只允许一个协程（入站协程），写出通过 writeMu 串行化；
// 控制帧（ping/close）可以与读写并发。
type BaseSession struct {
	id event.ConnID

	ctx    context.Context
	cancel context.CancelFunc

	conn  *websocket.Conn
	codec *event.Codec
	opts  Options

	remoteAddr net.Addr
	localAddr  net.Addr

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once

	logger *log.MLogger
}

var _ Session = (*BaseSession)(nil)

// NewBaseSession 创建一个基于 websocket.Conn 的会话。
//
// 参数：
//   - parent：会话所属的上层上下文；若为 nil，则使用 context.Background()；
//   - id    ：由 IDGenerator 分配的会话 ID；
//   - conn  ：已完成握手的连接；
//   - c     ：用于该连接的事件编解码器。
func NewBaseSession(parent context.Context, id event.ConnID, conn *websocket.Conn, c *event.Codec, opts Options) *BaseSession {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	s := &BaseSession{
		id:         id,
		ctx:        ctx,
		cancel:     cancel,
		conn:       conn,
		codec:      c,
		opts:       opts,
		remoteAddr: conn.RemoteAddr(),
		localAddr:  conn.LocalAddr(),
	}
	s.logger = log.With(
		log.FieldConnID(uint64(id)),
		zap.Stringer("remote", s.remoteAddr),
	)

	if opts.MaxMessageSize > 0 {
		conn.SetReadLimit(opts.MaxMessageSize)
	}
	if opts.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(opts.ReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(opts.ReadTimeout))
		})
	}
	return s
}

func (s *BaseSession) ID() event.ConnID {
	return s.id
}

func (s *BaseSession) Context() context.Context {
	return s.ctx
}

func (s *BaseSession) RemoteAddr() net.Addr {
	return s.remoteAddr
}

func (s *BaseSession) LocalAddr() net.Addr {
	return s.localAddr
}

func (s *BaseSession) Logger() *log.MLogger {
	return s.logger
}

// Recv 实现 Session.Recv。
func (s *BaseSession) Recv() (event.Event, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return event.Event{}, errors.Mark(merr.WrapErrTransportClosed(uint64(s.id), err), network.ErrRecvFailed)
	}
	if s.opts.ReadTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	}
	metrics.FrameBytes.WithLabelValues(metrics.DirectionInbound).Observe(float64(len(data)))
	return s.codec.Decode(data, s.id)
}

// Send 实现 Session.Send。
func (s *BaseSession) Send(ev event.Event) error {
	data, err := s.codec.Encode(ev)
	if err != nil {
		return err
	}
	if s.closed.Load() {
		return errors.Mark(merr.WrapErrTransportClosed(uint64(s.id), nil), network.ErrSendFailed)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.opts.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Mark(merr.WrapErrTransportClosed(uint64(s.id), err), network.ErrSendFailed)
	}
	metrics.FrameBytes.WithLabelValues(metrics.DirectionOutbound).Observe(float64(len(data)))
	return nil
}

// Ping 实现 Session.Ping。
func (s *BaseSession) Ping() error {
	deadline := time.Now().Add(closeGracePeriod)
	if s.opts.WriteTimeout > 0 {
		deadline = time.Now().Add(s.opts.WriteTimeout)
	}
	if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return errors.Mark(merr.WrapErrTransportClosed(uint64(s.id), err), network.ErrSendFailed)
	}
	return nil
}

// Close 实现 Session.Close。
func (s *BaseSession) Close() error {
	return s.CloseWithCode(websocket.CloseNormalClosure, "")
}

// CloseWithCode 实现 Session.CloseWithCode。
func (s *BaseSession) CloseWithCode(code int, reason string) error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		// 先取消上下文，再关闭连接。
		s.cancel()
		msg := websocket.FormatCloseMessage(code, reason)
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		err = s.conn.Close()
	})
	return err
}

// Closed 实现 Session.Closed。
func (s *BaseSession) Closed() bool {
	return s.closed.Load()
}
