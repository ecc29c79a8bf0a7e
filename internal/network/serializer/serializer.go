package serializer

import "github.com/cockroachdb/errors"

// Serializer 抽象了网络层“对象 <-> 字节流”的序列化能力。
//
// 事件信封与载荷均为 JSON，调用方通过接口注入具体实现，
// 便于在 sonic 与 jsoniter 之间切换。
type Serializer interface {
	// Marshal 将任意对象编码为字节序列。
	Marshal(v any) ([]byte, error)

	// Unmarshal 将字节序列解码到目标对象。
	//
	// v 通常为指针类型，用于接收解码结果。
	Unmarshal(data []byte, v any) error
}

const (
	NameSonic    = "sonic"
	NameJSONIter = "jsoniter"
)

// ByName 根据配置中的名字返回对应的 Serializer，空字符串视为 sonic。
func ByName(name string) (Serializer, error) {
	switch name {
	case "", NameSonic:
		return JSONSerializer{}, nil
	case NameJSONIter:
		return JSONIterSerializer{}, nil
	default:
		return nil, errors.Newf("serializer: unknown serializer %q", name)
	}
}
