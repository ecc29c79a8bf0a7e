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

package conc

import (
	ants "github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/lk2023060901/land-relay-go/pkg/log"
)

type poolOption struct {
	// nonBlocking 为 true 时，池满后 Submit 立即失败而不是等待空闲 worker。
	nonBlocking bool
	// concealPanic 为 true 时，任务 panic 只记录日志，不会终止进程。
	concealPanic bool
	// panicHandler 在任务 panic 后、是否重新抛出之前调用。
	panicHandler func(any)
}

func (opt *poolOption) antsOptions() []ants.Option {
	return []ants.Option{
		ants.WithNonblocking(opt.nonBlocking),
		ants.WithPanicHandler(opt.handlePanic),
	}
}

// handlePanic 接收 worker 中 recover 到的 panic。
func (opt *poolOption) handlePanic(v any) {
	log.With(log.FieldComponent("conc")).RatedError(1, "pool task panicked", zap.Any("panic", v))
	if opt.panicHandler != nil {
		opt.panicHandler(v)
	}
	if !opt.concealPanic {
		panic(v)
	}
}

// PoolOption 用于配置协程池。
type PoolOption func(opt *poolOption)

func defaultPoolOption() *poolOption {
	return &poolOption{}
}

func WithNonBlocking(v bool) PoolOption {
	return func(opt *poolOption) {
		opt.nonBlocking = v
	}
}

func WithConcealPanic(v bool) PoolOption {
	return func(opt *poolOption) {
		opt.concealPanic = v
	}
}

// WithPanicHandler 设置任务 panic 时的回调，通常用于计数。
func WithPanicHandler(fn func(any)) PoolOption {
	return func(opt *poolOption) {
		opt.panicHandler = fn
	}
}
