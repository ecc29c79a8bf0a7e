package network

import "github.com/cockroachdb/errors"

// Stage 表示网络收发链路中的处理阶段。
//
// 主要用于在日志与监控中标记错误发生的位置。
type Stage string

const (
	StageUpgrade  Stage = "upgrade"  // HTTP -> WebSocket 升级
	StageRecv     Stage = "recv"     // 读取底层文本帧
	StageDecode   Stage = "decode"   // 文本帧 -> Event
	StageDispatch Stage = "dispatch" // Event -> 业务处理
	StageEncode   Stage = "encode"   // Event -> 文本帧
	StageSend     Stage = "send"     // 写出到底层连接
)

// 统一的错误码常量，作为日志/监控中的稳定字符串。
const (
	ErrCodeUpgradeFailed  = "network:upgrade_failed"
	ErrCodeRecvFailed     = "network:recv_failed"
	ErrCodeDecodeFailed   = "network:decode_failed"
	ErrCodeDispatchFailed = "network:dispatch_failed"
	ErrCodeEncodeFailed   = "network:encode_failed"
	ErrCodeSendFailed     = "network:send_failed"
)

var (
	// ErrUpgradeFailed 表示 WebSocket 升级失败。
	ErrUpgradeFailed = errors.New(ErrCodeUpgradeFailed)

	// ErrRecvFailed 表示读取底层连接数据时发生错误。
	ErrRecvFailed = errors.New(ErrCodeRecvFailed)

	// ErrDecodeFailed 表示文本帧无法解码为 Event。
	ErrDecodeFailed = errors.New(ErrCodeDecodeFailed)

	// ErrDispatchFailed 表示业务处理阶段失败。
	ErrDispatchFailed = errors.New(ErrCodeDispatchFailed)

	// ErrEncodeFailed 表示 Event 无法编码为文本帧。
	ErrEncodeFailed = errors.New(ErrCodeEncodeFailed)

	// ErrSendFailed 表示写出到对端时发生错误。
	ErrSendFailed = errors.New(ErrCodeSendFailed)
)

// StageOf 返回 err 所属的处理阶段；无法识别时返回空字符串。
func StageOf(err error) Stage {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUpgradeFailed):
		return StageUpgrade
	case errors.Is(err, ErrRecvFailed):
		return StageRecv
	case errors.Is(err, ErrDecodeFailed):
		return StageDecode
	case errors.Is(err, ErrDispatchFailed):
		return StageDispatch
	case errors.Is(err, ErrEncodeFailed):
		return StageEncode
	case errors.Is(err, ErrSendFailed):
		return StageSend
	default:
		return ""
	}
}
