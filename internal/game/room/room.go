// Package room 维护固定大小的房间池及其中的玩家。
//
// 一个玩家在整个房间池中至多属于一个房间。
package room

import (
	"strconv"
	"sync"

	"github.com/samber/lo"

	"github.com/lk2023060901/land-relay-go/pkg/metrics"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
	"github.com/lk2023060901/land-relay-go/pkg/util/typeutil"
)

// DefaultSize 为默认房间数。
const DefaultSize = 2

// Snapshot 为某一时刻房间内玩家的只读副本。
type Snapshot struct {
	Index   int      `json:"index"`
	Players []string `json:"players"`
}

// Pool 是启动时分配好的房间池。
type Pool struct {
	mu    sync.RWMutex
	rooms []typeutil.Set[string]
}

// NewPool 创建 size 个空房间，size 非正数时使用 DefaultSize。
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	rooms := make([]typeutil.Set[string], size)
	for i := range rooms {
		rooms[i] = typeutil.NewSet[string]()
		metrics.RoomPlayers.WithLabelValues(strconv.Itoa(i)).Set(0)
	}
	return &Pool{rooms: rooms}
}

// Size 返回房间数。
func (p *Pool) Size() int {
	return len(p.rooms)
}

// Join 将玩家加入指定房间。
func (p *Pool) Join(index int, username string) error {
	if username == "" {
		return merr.WrapErrParameterMissing("username")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.rooms) {
		return merr.WrapErrRoomNotFound(index)
	}
	if current, ok := p.locateLocked(username); ok {
		return merr.WrapErrPlayerAlreadyInRoom(username, current)
	}
	p.insertLocked(index, username)
	return nil
}

// JoinLeastPopulated 将玩家加入人数最少的房间，人数相同时取下标最小者。
func (p *Pool) JoinLeastPopulated(username string) (int, error) {
	if username == "" {
		return -1, merr.WrapErrParameterMissing("username")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if current, ok := p.locateLocked(username); ok {
		return current, merr.WrapErrPlayerAlreadyInRoom(username, current)
	}
	index := 0
	for i := range p.rooms {
		if p.rooms[i].Len() < p.rooms[index].Len() {
			index = i
		}
	}
	p.insertLocked(index, username)
	return index, nil
}

// Remove 从所在房间中移除玩家，返回原房间下标。
// 房间不按玩家建索引，这里逐个房间扫描。
func (p *Pool) Remove(username string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, players := range p.rooms {
		if players.TryRemove(username) {
			metrics.RoomPlayers.WithLabelValues(strconv.Itoa(i)).Set(float64(players.Len()))
			return i, true
		}
	}
	return -1, false
}

// Locate 返回玩家所在的房间下标。
func (p *Pool) Locate(username string) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.locateLocked(username)
}

// Players 返回指定房间的玩家，按名字排序。
func (p *Pool) Players(index int) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if index < 0 || index >= len(p.rooms) {
		return nil, merr.WrapErrRoomNotFound(index)
	}
	return typeutil.SortedCollect(p.rooms[index]), nil
}

// Snapshot 返回所有房间的玩家副本。
func (p *Pool) Snapshot() []Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return lo.Map(p.rooms, func(players typeutil.Set[string], i int) Snapshot {
		return Snapshot{Index: i, Players: typeutil.SortedCollect(players)}
	})
}

func (p *Pool) locateLocked(username string) (int, bool) {
	_, index, ok := lo.FindIndexOf(p.rooms, func(players typeutil.Set[string]) bool {
		return players.Contain(username)
	})
	return index, ok
}

func (p *Pool) insertLocked(index int, username string) {
	p.rooms[index].Insert(username)
	metrics.RoomPlayers.WithLabelValues(strconv.Itoa(index)).Set(float64(p.rooms[index].Len()))
}
