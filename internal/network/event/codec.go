package event

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/land-relay-go/internal/json"
	"github.com/lk2023060901/land-relay-go/internal/network"
	"github.com/lk2023060901/land-relay-go/internal/network/serializer"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

// inbound 为客户端帧的线上结构，接收方字段从不读取。
type inbound struct {
	Name *string         `json:"name"`
	Dat  json.RawMessage `json:"dat"`
}

// Codec 负责 Event 与文本帧之间的转换。
type Codec struct {
	s serializer.Serializer
}

// NewCodec 使用指定的 Serializer 创建 Codec，s 为 nil 时使用 sonic。
func NewCodec(s serializer.Serializer) *Codec {
	if s == nil {
		s = serializer.JSONSerializer{}
	}
	return &Codec{s: s}
}

// Decode 将连接 id 收到的文本帧解码为 Event。
//
// name 缺失或不是字符串时返回 merr.ErrProtocolMalformed；dat 缺失时视为 null。
func (c *Codec) Decode(data []byte, id ConnID) (Event, error) {
	var in inbound
	if err := c.s.Unmarshal(data, &in); err != nil {
		return Event{}, errors.Mark(merr.WrapErrProtocolMalformed(uint64(id), err), network.ErrDecodeFailed)
	}
	if in.Name == nil {
		return Event{}, errors.Mark(merr.WrapErrProtocolMalformed(uint64(id), nil, "missing name"), network.ErrDecodeFailed)
	}
	dat := in.Dat
	if len(dat) == 0 {
		dat = null
	}
	return Event{ID: id, Name: Name(*in.Name), Dat: dat}, nil
}

// Encode 将 Event 编码为出站文本帧，总是携带 id 字段。
func (c *Codec) Encode(ev Event) ([]byte, error) {
	ev.Dat = ev.payload()
	data, err := c.s.Marshal(ev)
	if err != nil {
		return nil, errors.Mark(merr.WrapErrSerializationFailed(string(ev.Name), err), network.ErrEncodeFailed)
	}
	return data, nil
}
