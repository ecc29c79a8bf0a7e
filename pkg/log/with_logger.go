package log

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Binder 嵌入到长生命周期的组件中，持有该组件专用的 Logger。
type Binder struct {
	logger atomic.Pointer[MLogger]
}

// SetLogger 替换组件的 Logger。
func (b *Binder) SetLogger(logger *MLogger) {
	b.logger.Store(logger)
}

// BindComponent 以组件名与 fields 派生出组件 Logger。
func (b *Binder) BindComponent(component string, fields ...zap.Field) {
	b.SetLogger(With(append([]zap.Field{FieldComponent(component)}, fields...)...))
}

// Logger 返回组件的 Logger，尚未绑定时退回全局 Logger。
func (b *Binder) Logger() *MLogger {
	if l := b.logger.Load(); l != nil {
		return l
	}
	return With()
}
