package session

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/lk2023060901/land-relay-go/internal/network/event"
	"github.com/lk2023060901/land-relay-go/pkg/metrics"
)

// Manager 提供了基于内存 map 的 SessionManager 实现。
//
// 特性：
//   - 使用读写锁保证并发安全；
//   - Register 在遇到重复 ID 时返回错误，避免覆盖旧会话；
//   - Range 在遍历前复制一份会话切片，避免在持锁情况下执行用户回调。
type Manager struct {
	mu       sync.RWMutex
	sessions map[event.ConnID]Session
}

var _ SessionManager = (*Manager)(nil)

// NewManager 创建一个空的 Manager。
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[event.ConnID]Session),
	}
}

// Register 实现 SessionManager.Register。
func (m *Manager) Register(sess Session) error {
	if sess == nil {
		return nil
	}
	id := sess.ID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return errors.Newf("session: id %d already registered", id)
	}
	m.sessions[id] = sess
	metrics.ActiveConnections.Set(float64(len(m.sessions)))
	return nil
}

// Get 实现 SessionManager.Get。
func (m *Manager) Get(id event.ConnID) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	return sess, ok
}

// Unregister 实现 SessionManager.Unregister。
func (m *Manager) Unregister(id event.ConnID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return errors.Newf("session: id %d not found", id)
	}
	delete(m.sessions, id)
	metrics.ActiveConnections.Set(float64(len(m.sessions)))
	return nil
}

// Range 实现 SessionManager.Range。
func (m *Manager) Range(fn func(sess Session) bool) {
	if fn == nil {
		return
	}

	m.mu.RLock()
	snapshot := lo.Values(m.sessions)
	m.mu.RUnlock()

	for _, sess := range snapshot {
		if !fn(sess) {
			return
		}
	}
}

// Count 实现 SessionManager.Count。
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs 返回当前所有会话 ID，顺序不固定。
func (m *Manager) IDs() []event.ConnID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Keys(m.sessions)
}
