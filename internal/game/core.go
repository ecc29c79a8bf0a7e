// Package game 实现了连接上的身份状态机：
//
//	Unauthenticated --Identify 成功--> Authenticated --Close--> Closed
//
// 未认证连接只接受 Identify，其余事件回复 Abort；认证后的事件按事件名分发。
// Closed 为终态，之后的 Identify 与其余事件都回复 Abort，直到连接断开。
package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lk2023060901/land-relay-go/internal/game/identity"
	"github.com/lk2023060901/land-relay-go/internal/game/room"
	"github.com/lk2023060901/land-relay-go/internal/network/event"
	"github.com/lk2023060901/land-relay-go/internal/network/router"
	"github.com/lk2023060901/land-relay-go/pkg/log"
	"github.com/lk2023060901/land-relay-go/pkg/metrics"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

// IdentifiedMessage 为身份验证成功后回复的消息。
const IdentifiedMessage = "身份验证成功"

// Identification 为 Identify 事件的载荷。
// Username 仅作参考，查找只使用 Identity。
type Identification struct {
	Username string `json:"username"`
	Identity string `json:"identity"`
}

// identifyPayload 用于解码 Identify 载荷，两个字段都必须出现。
type identifyPayload struct {
	Username *string `json:"username"`
	Identity *string `json:"identity"`
}

// Publisher 向广播总线发布服务器主动推送的事件。
type Publisher func(ev event.Event) int

// Core 持有身份与房间状态，并作为 acceptor 的事件处理函数。
type Core struct {
	log.Binder

	identities *identity.Registry
	rooms      *room.Pool
	routes     router.Router
	publish    Publisher
}

// NewCore 创建 Core，并注册 Message 与 Close 的处理函数。
func NewCore(identities *identity.Registry, rooms *room.Pool) *Core {
	c := &Core{
		identities: identities,
		rooms:      rooms,
		routes:     router.New(),
	}
	c.BindComponent("game")
	_ = c.routes.Register(event.Message, c.greet)
	_ = c.routes.Register(event.Close, c.leave)
	return c
}

// SetPublisher 设置发布函数，用于通知被顶替的旧连接。
func (c *Core) SetPublisher(p Publisher) {
	c.publish = p
}

// Handle 为已认证连接上的玩法事件注册处理函数。
func (c *Core) Handle(name event.Name, h router.Handler) error {
	return c.routes.Register(name, h)
}

// Identities 返回身份注册表。
func (c *Core) Identities() *identity.Registry {
	return c.identities
}

// Rooms 返回房间池。
func (c *Core) Rooms() *room.Pool {
	return c.rooms
}

// OnEvent 处理一条入站事件，签名与 acceptor.Handler 一致。
func (c *Core) OnEvent(ctx context.Context, ev event.Event) *event.Event {
	if ev.IsDisconnect() {
		c.disconnect(ctx, ev.ID)
		return nil
	}
	if ev.Name == event.Identify {
		return c.identify(ctx, ev)
	}

	username, ok := c.identities.Username(ev.ID)
	if !ok {
		// 未认证连接的 Close 同样进入终态，已关闭的连接再次 Close 时不回复。
		if ev.Name == event.Close {
			c.identities.Unbind(ev.ID, c.vacate)
			return nil
		}
		log.Ctx(ctx).Debug("event before identify",
			zap.Bool("closed", c.identities.Closed(ev.ID)),
			zap.Error(merr.WrapErrNotAuthenticated(uint64(ev.ID), ev.Name.String())))
		return abort(ev.ID)
	}

	ctx = log.WithFields(ctx, zap.String("username", username))
	resp, err := c.routes.Handle(ctx, ev)
	if err != nil {
		metrics.EventErrors.WithLabelValues("dispatch").Inc()
		log.Ctx(ctx).Warn("handle event failed", log.FieldEvent(ev.Name.String()), zap.Error(err))
		return nil
	}
	return resp
}

func (c *Core) identify(ctx context.Context, ev event.Event) *event.Event {
	var payload identifyPayload
	if err := ev.Decode(&payload); err != nil {
		log.Ctx(ctx).Info("bad identify payload", zap.Error(err))
		return abort(ev.ID)
	}
	if payload.Username == nil || payload.Identity == nil {
		log.Ctx(ctx).Info("bad identify payload",
			zap.Error(merr.WrapErrParameterMissing("username/identity")))
		return abort(ev.ID)
	}

	res, err := c.identities.Reattach(ev.ID, *payload.Identity, c.vacate)
	if err != nil {
		log.Ctx(ctx).Info("identify rejected", zap.String("claimed", *payload.Username), zap.Error(err))
		return abort(ev.ID)
	}

	if res.Evicted != event.Broadcast && c.publish != nil {
		c.publish(*abort(res.Evicted))
	}
	log.Ctx(log.WithFields(ctx, zap.String("username", res.Username))).Info("identify succeeded",
		zap.String("replaced", res.Replaced),
		zap.Uint64("evicted", uint64(res.Evicted)))

	resp := event.Must(ev.ID, event.Message, IdentifiedMessage)
	return &resp
}

// greet 为 Message 的占位玩法：回复一条由连接 ID 生成的问候。
func (c *Core) greet(_ context.Context, ev event.Event) (*event.Event, error) {
	resp, err := event.New(ev.ID, event.Message, fmt.Sprintf("hello, %d!", ev.ID))
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// leave 处理客户端的 Close：连接进入终态，解绑玩家并让出房间座位。
func (c *Core) leave(ctx context.Context, ev event.Event) (*event.Event, error) {
	if _, ok := c.identities.Unbind(ev.ID, c.vacate); ok {
		log.Ctx(ctx).Info("player left")
	}
	return nil, nil
}

// disconnect 处理连接断开时合成的 Close。
func (c *Core) disconnect(ctx context.Context, id event.ConnID) {
	if username, ok := c.identities.Disconnect(id, c.vacate); ok {
		log.Ctx(ctx).Info("player disconnected", zap.String("username", username))
	}
}

// vacate 在 Registry 的锁内调用，把玩家移出房间。
func (c *Core) vacate(username string) {
	c.rooms.Remove(username)
}

func abort(id event.ConnID) *event.Event {
	ev := event.Must(id, event.Abort, nil)
	return &ev
}
