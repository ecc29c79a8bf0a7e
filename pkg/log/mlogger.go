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
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MLogger 在 zap.Logger 的基础上增加了限流日志。
type MLogger struct {
	*zap.Logger
	rl atomic.Value // rateLimiterHolder
}

// With 返回携带额外字段的子 Logger，限流分组随之继承。
func (l *MLogger) With(fields ...zap.Field) *MLogger {
	nl := &MLogger{Logger: l.Logger.WithLazy(fields...)}
	if h, ok := l.rl.Load().(rateLimiterHolder); ok {
		nl.rl.Store(h)
	}
	return nl
}

// WithRateGroup 为 Logger 绑定一个命名限流器，同名分组共享额度。
func (l *MLogger) WithRateGroup(group string, creditPerSecond, maxBalance float64) *MLogger {
	l.rl.Store(rateLimiterHolder{namedRateLimiter(group, creditPerSecond, maxBalance)})
	return l
}

func (l *MLogger) limiter() RateLimiter {
	if h, ok := l.rl.Load().(rateLimiterHolder); ok {
		return h.RateLimiter
	}
	return R()
}

// rated 在额度足够时以 lvl 级别输出日志，返回是否输出。
func (l *MLogger) rated(lvl zapcore.Level, cost float64, msg string, fields []zap.Field) bool {
	if !l.limiter().CheckCredit(cost) {
		return false
	}
	if ce := l.WithOptions(zap.AddCallerSkip(2)).Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
	return true
}

func (l *MLogger) RatedDebug(cost float64, msg string, fields ...zap.Field) bool {
	return l.rated(zapcore.DebugLevel, cost, msg, fields)
}

func (l *MLogger) RatedInfo(cost float64, msg string, fields ...zap.Field) bool {
	return l.rated(zapcore.InfoLevel, cost, msg, fields)
}

func (l *MLogger) RatedWarn(cost float64, msg string, fields ...zap.Field) bool {
	return l.rated(zapcore.WarnLevel, cost, msg, fields)
}

func (l *MLogger) RatedError(cost float64, msg string, fields ...zap.Field) bool {
	return l.rated(zapcore.ErrorLevel, cost, msg, fields)
}
