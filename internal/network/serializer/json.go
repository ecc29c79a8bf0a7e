package serializer

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/land-relay-go/internal/json"
)

// JSONSerializer 使用 internal/json（基于 bytedance/sonic）实现 JSON 编解码。
type JSONSerializer struct{}

// 编译期断言：确保 JSONSerializer 实现了 Serializer 接口。
var _ Serializer = (*JSONSerializer)(nil)

func (JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// JSONIterSerializer 使用 json-iterator 的标准兼容配置。
//
// 适用于 sonic 不支持的平台（sonic 依赖 amd64/arm64 的 JIT）。
type JSONIterSerializer struct{}

var _ Serializer = (*JSONIterSerializer)(nil)

var jsoniterAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func (JSONIterSerializer) Marshal(v any) ([]byte, error) {
	return jsoniterAPI.Marshal(v)
}

func (JSONIterSerializer) Unmarshal(data []byte, v any) error {
	return jsoniterAPI.Unmarshal(data, v)
}
