package session

import "github.com/lk2023060901/land-relay-go/internal/network/event"

// SessionManager 按连接 ID 索引在线会话。
// 它不拥有会话：关闭连接由 acceptor 负责，Unregister 也不会调用 Close。
type SessionManager interface {
	// Register 登记会话，ID 已存在时返回错误。
	Register(sess Session) error
	Get(id event.ConnID) (sess Session, ok bool)
	Unregister(id event.ConnID) error
	// Range 在会话快照上遍历，fn 返回 false 时停止。
	Range(fn func(sess Session) bool)
	// IDs 返回在线连接的 ID，顺序不固定。
	IDs() []event.ConnID
	Count() int
}
