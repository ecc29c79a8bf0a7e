package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameConnID    = "connID"
	FieldNameEvent     = "event"
	FieldNameStage     = "stage"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldConnID 返回一个包含连接 ID 的 zap 字段。
func FieldConnID(id uint64) zap.Field {
	return zap.Uint64(FieldNameConnID, id)
}

// FieldEvent 返回一个包含事件名的 zap 字段。
func FieldEvent(name string) zap.Field {
	return zap.String(FieldNameEvent, name)
}

// FieldStage 返回一个包含收发阶段的 zap 字段。
func FieldStage(stage string) zap.Field {
	return zap.String(FieldNameStage, stage)
}

// FieldMessage 返回一个包含消息对象的 zap 字段。
func FieldMessage(msg zapcore.ObjectMarshaler) zap.Field {
	return zap.Object("message", msg)
}
