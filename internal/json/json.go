// Package json 是项目内统一的 JSON 入口，底层基于 bytedance/sonic。
//
// 业务代码不直接引用 encoding/json 或 sonic，便于后续整体替换实现。
package json

import (
	stdjson "encoding/json"
	"io"

	"github.com/bytedance/sonic"
)

// RawMessage 为尚未解析的 JSON 片段，与 encoding/json.RawMessage 类型一致，
// sonic 会原样保留其字节内容。
type RawMessage = stdjson.RawMessage

// api 使用与标准库行为一致的配置（转义 HTML、map key 排序等），
// 保证同一对象多次序列化结果稳定。
var api = sonic.ConfigStd

// Marshal 将 v 编码为 JSON 字节。
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalToString 将 v 编码为 JSON 字符串。
func MarshalToString(v any) (string, error) {
	return api.MarshalToString(v)
}

// Unmarshal 将 data 解码到 v。
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// UnmarshalFromString 将字符串 data 解码到 v。
func UnmarshalFromString(data string, v any) error {
	return api.UnmarshalFromString(data, v)
}

// Valid 判断 data 是否为合法 JSON。
func Valid(data []byte) bool {
	return api.Valid(data)
}

// NewDecoder 返回从 r 读取的流式解码器。
func NewDecoder(r io.Reader) sonic.Decoder {
	return api.NewDecoder(r)
}

// NewEncoder 返回写入 w 的流式编码器。
func NewEncoder(w io.Writer) sonic.Encoder {
	return api.NewEncoder(w)
}
