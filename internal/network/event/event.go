// Package event 定义了中继协议的事件信封及其编解码。
//
// 入站帧格式为 {"name": string, "dat": any}，出站帧格式为 {"id": int, "name": string, "dat": any}。
package event

import (
	"go.uber.org/zap/zapcore"

	"github.com/lk2023060901/land-relay-go/internal/json"
)

// ConnID 为连接在进程内的唯一标识，0 保留为广播地址。
type ConnID uint64

// Broadcast 表示投递给所有连接的接收方。
const Broadcast ConnID = 0

// Name 为事件名。
//
// 线上格式中事件名是开放集合，未知名字会原样透传；
// 核心状态机只解释下列几种。
type Name string

const (
	Identify Name = "Identify"
	Message  Name = "Message"
	Abort    Name = "Abort"
	Close    Name = "Close"
	Error    Name = "Error"
)

// Known 判断事件名是否属于核心状态机解释的集合。
func (n Name) Known() bool {
	switch n {
	case Identify, Message, Abort, Close, Error:
		return true
	default:
		return false
	}
}

func (n Name) String() string {
	return string(n)
}

// MalformedMessage 为解码失败时回复给发送方的 Error 事件载荷。
const MalformedMessage = "malformed message"

var null = json.RawMessage("null")

// Event 是在连接与广播总线之间流转的事件。
type Event struct {
	ID   ConnID          `json:"id"`
	Name Name            `json:"name"`
	Dat  json.RawMessage `json:"dat"`
}

// New 将 dat 序列化后构造一个事件，dat 为 nil 时载荷为 null。
func New(id ConnID, name Name, dat any) (Event, error) {
	if dat == nil {
		return Event{ID: id, Name: name, Dat: null}, nil
	}
	raw, err := json.Marshal(dat)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: id, Name: name, Dat: raw}, nil
}

// Must 与 New 相同，序列化失败时 panic，仅用于载荷类型固定的场景。
func Must(id ConnID, name Name, dat any) Event {
	ev, err := New(id, name, dat)
	if err != nil {
		panic(err)
	}
	return ev
}

// Malformed 构造发回给 id 的 Error 事件。
func Malformed(id ConnID) Event {
	return Must(id, Error, MalformedMessage)
}

// Disconnected 构造连接断开时合成的 Close 事件。
// 载荷为空，解码得到的 Close 载荷至少为 null，两者因此可以区分。
func Disconnected(id ConnID) Event {
	return Event{ID: id, Name: Close}
}

// IsDisconnect 判断事件是否为连接断开时合成的 Close。
func (e Event) IsDisconnect() bool {
	return e.Name == Close && e.Dat == nil
}

// Decode 将载荷解码到 v。
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.payload(), v)
}

// IsBroadcast 判断事件是否投递给所有连接。
func (e Event) IsBroadcast() bool {
	return e.ID == Broadcast
}

// DeliverTo 判断事件是否应投递到连接 id。
func (e Event) DeliverTo(id ConnID) bool {
	return e.ID == Broadcast || e.ID == id
}

func (e Event) payload() json.RawMessage {
	if len(e.Dat) == 0 {
		return null
	}
	return e.Dat
}

// MarshalLogObject 实现 zapcore.ObjectMarshaler。
func (e Event) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("id", uint64(e.ID))
	enc.AddString("name", string(e.Name))
	enc.AddByteString("dat", e.payload())
	return nil
}
