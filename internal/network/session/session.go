package session

import (
	"context"
	"net"

	"github.com/lk2023060901/land-relay-go/internal/network/event"
	"github.com/lk2023060901/land-relay-go/pkg/log"
)

// Session 抽象了一条 WebSocket 会话。
//
// 约定：
//   - 每个 Session 对应一条底层连接；
//   - Session ID 由 IDGenerator 分配，进程内唯一且从不为 0；
//   - 框架层只关心会话本身，不关心“玩家”等具体业务概念。
type Session interface {
	// ID 返回该会话在进程内的唯一标识。
	//
	// 业务层可以通过该 ID 建立 “Session <-> 玩家” 的映射关系。
	ID() event.ConnID

	// Context 返回与该会话关联的上下文，会话关闭时 Done 被触发。
	Context() context.Context

	// RemoteAddr 返回远端地址，主要用于日志记录。
	RemoteAddr() net.Addr

	// LocalAddr 返回本端地址。
	LocalAddr() net.Addr

	// Recv 阻塞读取并解码下一帧。
	//
	// 返回的错误可以用 network.StageOf 区分：
	//   - StageDecode：帧格式错误，连接仍然可用；
	//   - StageRecv  ：底层连接已断开，调用方应停止读取。
	Recv() (event.Event, error)

	// Send 编码事件并写出一帧。同一时刻只允许一个写者，内部已加锁。
	Send(ev event.Event) error

	// Ping 发送一个 ping 控制帧。
	Ping() error

	// Close 关闭会话，可重复调用。
	Close() error

	// CloseWithCode 以指定关闭码通知对端后关闭会话。
	CloseWithCode(code int, reason string) error

	// Closed 判断会话是否已关闭。
	Closed() bool

	// Logger 返回携带 connID 与 remote 字段的 Logger。
	Logger() *log.MLogger
}
