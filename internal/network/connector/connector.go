package connector

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lk2023060901/land-relay-go/internal/json"
	"github.com/lk2023060901/land-relay-go/internal/network"
	"github.com/lk2023060901/land-relay-go/internal/network/event"
	"github.com/lk2023060901/land-relay-go/internal/network/serializer"
	"github.com/lk2023060901/land-relay-go/pkg/log"
	"github.com/lk2023060901/land-relay-go/pkg/util/conc"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

// Config 描述客户端连接的基础配置。
type Config struct {
	RecvQueueSize int

	WriteTimeout     time.Duration
	HandshakeTimeout time.Duration

	// MaxElapsedTime 为拨号重试的总时长上限，0 表示只尝试一次。
	MaxElapsedTime time.Duration

	// Serializer 为事件信封使用的序列化实现，为 nil 时使用 sonic。
	Serializer serializer.Serializer
}

func defaultConfig() Config {
	return Config{
		RecvQueueSize:    1024,
		WriteTimeout:     10 * time.Second,
		HandshakeTimeout: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := defaultConfig()
	if c.RecvQueueSize <= 0 {
		c.RecvQueueSize = def.RecvQueueSize
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.Serializer == nil {
		c.Serializer = serializer.JSONSerializer{}
	}
	return c
}

// outbound 为客户端发出的帧，不携带接收方字段。
type outbound struct {
	Name event.Name      `json:"name"`
	Dat  json.RawMessage `json:"dat"`
}

// Client 是中继协议的 WebSocket 客户端。
//
// 读取在独立协程中进行，收到的事件通过 Recv 返回的通道交付；
// 连接断开后通道被关闭，Err 返回断开原因。
type Client struct {
	conn *websocket.Conn
	cfg  Config
	ser  serializer.Serializer

	ctx    context.Context
	cancel context.CancelFunc

	recv chan event.Event

	writeMu   sync.Mutex
	closeOnce sync.Once
	reader    *conc.Future[struct{}]

	logger *log.MLogger
}

// Dial 连接到 url，按指数退避重试直到成功、ctx 结束或超过 MaxElapsedTime。
// 服务端返回 4xx 时不再重试。
func Dial(ctx context.Context, url string, cfg Config, header http.Header) (*Client, error) {
	cfg = cfg.withDefaults()
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	logger := log.With(log.FieldComponent("connector"), zap.String("url", url))

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.MaxElapsedTime
	var b backoff.BackOff = policy
	if cfg.MaxElapsedTime <= 0 {
		b = &backoff.StopBackOff{}
	}

	conn, err := backoff.RetryNotifyWithData(func() (*websocket.Conn, error) {
		conn, resp, err := dialer.DialContext(ctx, url, header)
		if err != nil {
			if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, backoff.Permanent(errors.Wrapf(err, "handshake rejected with status %d", resp.StatusCode))
			}
			return nil, err
		}
		return conn, nil
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warn("dial failed, retrying", zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "connector: dial"), network.ErrUpgradeFailed)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:   conn,
		cfg:    cfg,
		ser:    cfg.Serializer,
		ctx:    connCtx,
		cancel: cancel,
		recv:   make(chan event.Event, cfg.RecvQueueSize),
		logger: logger,
	}
	c.reader = conc.Go(func() (struct{}, error) {
		return struct{}{}, c.readLoop()
	})
	return c, nil
}

// Send 发送一个事件，dat 为 nil 时载荷为 null。
func (c *Client) Send(name event.Name, dat any) error {
	ev, err := event.New(event.Broadcast, name, dat)
	if err != nil {
		return errors.Mark(merr.WrapErrSerializationFailed(string(name), err), network.ErrEncodeFailed)
	}
	return c.SendRaw(ev.Name, ev.Dat)
}

// SendRaw 发送一个已编码载荷的事件。
func (c *Client) SendRaw(name event.Name, dat json.RawMessage) error {
	if len(dat) == 0 {
		dat = json.RawMessage("null")
	}
	data, err := c.ser.Marshal(outbound{Name: name, Dat: dat})
	if err != nil {
		return errors.Mark(merr.WrapErrSerializationFailed(string(name), err), network.ErrEncodeFailed)
	}
	return c.WriteText(data)
}

// WriteText 原样写出一个文本帧。
func (c *Client) WriteText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Mark(errors.Wrap(err, "connector: write"), network.ErrSendFailed)
	}
	return nil
}

// Recv 返回收到的事件，连接断开后通道被关闭。
func (c *Client) Recv() <-chan event.Event {
	return c.recv
}

// Done 在连接断开后关闭。
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Err 阻塞直到读取协程退出，返回断开原因；对端正常关闭时为 nil。
func (c *Client) Err() error {
	return c.reader.Err()
}

// Close 通知对端并关闭连接，可重复调用。
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() error {
	defer close(c.recv)
	defer c.cancel()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || c.ctx.Err() != nil {
				return nil
			}
			return errors.Mark(errors.Wrap(err, "connector: read"), network.ErrRecvFailed)
		}

		var ev event.Event
		if err := c.ser.Unmarshal(data, &ev); err != nil {
			c.logger.RatedWarn(1, "drop undecodable frame", zap.ByteString("frame", data), zap.Error(err))
			continue
		}
		select {
		case c.recv <- ev:
		case <-c.ctx.Done():
			return nil
		}
	}
}
