// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxLogKeyType struct{}

// CtxLogKey 为 context 中保存 *MLogger 的键。
var CtxLogKey = ctxLogKeyType{}

// WithModule 为 ctx 中的 Logger 添加模块名字段。
func WithModule(ctx context.Context, module string) context.Context {
	return WithFields(ctx, FieldModule(module))
}

// WithConnID 为 ctx 中的 Logger 添加连接 ID 字段。
func WithConnID(ctx context.Context, connID uint64) context.Context {
	return WithFields(ctx, FieldConnID(connID))
}

// WithFields 返回一个 Logger 附加了 fields 的新 ctx。
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, CtxLogKey, Ctx(ctx).With(fields...))
}

// NewIntentContext 为一次长期任务创建根 ctx，Logger 带有 role、intent 与 traceID 字段。
func NewIntentContext(name string, intent string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(name).Start(context.Background(), intent)
	ctx = WithFields(ctx,
		zap.String("role", name),
		zap.String("intent", intent),
		zap.String("traceID", span.SpanContext().TraceID().String()))
	return ctx, span
}

// Ctx 返回 ctx 中携带的 Logger，没有时返回当前级别的全局 Logger。
func Ctx(ctx context.Context) *MLogger {
	if ctx != nil {
		if l, ok := ctx.Value(CtxLogKey).(*MLogger); ok {
			return l
		}
	}
	return &MLogger{Logger: ctxL()}
}
