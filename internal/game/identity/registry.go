// Package identity 保存身份令牌与连接绑定关系。
//
// IdentityRecord 为 username -> token，由登录流程写入，重连时按 token 一次性兑换；
// PlayerSession 为 connID -> username，一个 username 同时至多绑定一个连接。
package identity

import (
	"sync"

	"github.com/lk2023060901/land-relay-go/internal/network/event"
	"github.com/lk2023060901/land-relay-go/pkg/metrics"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

// Reattachment 描述一次成功的重连绑定。
type Reattachment struct {
	// Username 为令牌对应的玩家。
	Username string
	// Evicted 为该玩家此前绑定的连接，没有时为 0。
	Evicted event.ConnID
	// Replaced 为当前连接此前绑定的另一个玩家，没有时为空。
	Replaced string
}

// Release 在玩家与连接解绑且没有更新的令牌等待兑换时调用，
// 调用时持有 Registry 的锁，不能回调 Registry。
type Release func(username string)

// record 为一条 IdentityRecord，seq 为写入时的序号。
type record struct {
	token string
	seq   uint64
}

// binding 为玩家当前绑定的连接，since 为绑定时的序号。
type binding struct {
	conn  event.ConnID
	since uint64
}

// Registry 在同一把锁下维护 IdentityRecord 与 PlayerSession，
// 兑换令牌与绑定连接因此是一个原子操作。
type Registry struct {
	mu      sync.Mutex
	seq     uint64
	tokens  map[string]record
	players map[event.ConnID]string
	conns   map[string]binding
	// closed 记录客户端主动 Close 过的连接，连接断开时移除。
	closed map[event.ConnID]struct{}
}

// NewRegistry 创建一个空的 Registry。
func NewRegistry() *Registry {
	return &Registry{
		tokens:  make(map[string]record),
		players: make(map[event.ConnID]string),
		conns:   make(map[string]binding),
		closed:  make(map[event.ConnID]struct{}),
	}
}

// Issue 为 username 写入令牌，覆盖其旧令牌。
//
// seat 不为 nil 时先在锁内执行，返回错误则不写入令牌，
// 登录流程用它为玩家分配房间，与连接断开的清理互斥。
func (r *Registry) Issue(username, token string, seat func() error) error {
	if username == "" {
		return merr.WrapErrParameterMissing("username")
	}
	if token == "" {
		return merr.WrapErrParameterMissing("identity")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if seat != nil {
		if err := seat(); err != nil {
			return err
		}
	}
	r.seq++
	r.tokens[username] = record{token: token, seq: r.seq}
	return nil
}

func (r *Registry) redeemLocked(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	for username, rec := range r.tokens {
		if rec.token == token {
			delete(r.tokens, username)
			return username, true
		}
	}
	return "", false
}

// Reattach 用令牌把连接 conn 绑定到令牌所属的玩家。
//
// 令牌只按值匹配，客户端自报的用户名不参与查找。成功时令牌被删除，
// 该玩家原先绑定的连接被解绑；并发使用同一令牌时只有一个调用成功。
// 已 Close 的连接不能再次绑定，令牌保持不变。
// 若 conn 原先绑定了另一个玩家，该玩家按 Unbind 的规则释放。
func (r *Registry) Reattach(conn event.ConnID, token string, release Release) (Reattachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.closed[conn]; ok {
		return Reattachment{}, merr.WrapErrAuthenticationFailed(uint64(conn), "connection closed")
	}
	username, ok := r.redeemLocked(token)
	if !ok {
		return Reattachment{}, merr.WrapErrAuthenticationFailed(uint64(conn))
	}

	result := Reattachment{Username: username}
	if prev, ok := r.conns[username]; ok && prev.conn != conn {
		delete(r.players, prev.conn)
		result.Evicted = prev.conn
	}
	if prev, ok := r.players[conn]; ok && prev != username {
		b := r.conns[prev]
		delete(r.conns, prev)
		r.detachLocked(prev, b.since, release)
		result.Replaced = prev
	}
	r.seq++
	r.players[conn] = username
	r.conns[username] = binding{conn: conn, since: r.seq}
	metrics.BoundIdentities.Set(float64(len(r.players)))
	return result, nil
}

// Username 返回连接绑定的玩家。
func (r *Registry) Username(conn event.ConnID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	username, ok := r.players[conn]
	return username, ok
}

// Closed 判断连接是否已被客户端 Close。
func (r *Registry) Closed(conn event.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.closed[conn]
	return ok
}

// Unbind 处理客户端的 Close：连接进入终态，之后不能再绑定；
// 返回原先绑定的玩家，重复调用为空操作。
//
// 绑定之前写入的残留令牌被删除；绑定之后重新登录写入的令牌被保留，
// 此时玩家仍在等待重连，release 不会被调用。
func (r *Registry) Unbind(conn event.ConnID, release Release) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed[conn] = struct{}{}
	return r.unbindLocked(conn, release)
}

// Disconnect 处理连接断开，与 Unbind 相同地释放玩家，并移除该连接的终态记录。
func (r *Registry) Disconnect(conn event.ConnID, release Release) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.closed, conn)
	return r.unbindLocked(conn, release)
}

func (r *Registry) unbindLocked(conn event.ConnID, release Release) (string, bool) {
	username, ok := r.players[conn]
	if !ok {
		return "", false
	}
	delete(r.players, conn)
	if b, ok := r.conns[username]; ok && b.conn == conn {
		delete(r.conns, username)
		r.detachLocked(username, b.since, release)
	}
	metrics.BoundIdentities.Set(float64(len(r.players)))
	return username, true
}

func (r *Registry) detachLocked(username string, since uint64, release Release) {
	if rec, ok := r.tokens[username]; ok {
		if rec.seq > since {
			return
		}
		delete(r.tokens, username)
	}
	if release != nil {
		release(username)
	}
}

// Len 返回当前已绑定的连接数。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Pending 返回尚未兑换的令牌数。
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
