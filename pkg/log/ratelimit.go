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
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/uber/jaeger-client-go/utils"
)

// RateLimiter 为限流日志使用的令牌桶。
type RateLimiter interface {
	CheckCredit(cost float64) bool
}

type nopRateLimiter struct{}

func (nopRateLimiter) CheckCredit(float64) bool { return true }

// rateLimiterHolder 让 atomic.Value 中保存的具体类型保持一致。
type rateLimiterHolder struct {
	RateLimiter
}

var (
	_globalR           atomic.Value // rateLimiterHolder
	_namedRateLimiters sync.Map     // string -> *utils.ReconfigurableRateLimiter
)

// R 返回全局限流器，未开启限流时从不丢弃日志。
func R() RateLimiter {
	if h, ok := _globalR.Load().(rateLimiterHolder); ok && h.RateLimiter != nil {
		return h.RateLimiter
	}
	return nopRateLimiter{}
}

// namedRateLimiter 返回名为 group 的共享限流器，已存在时更新其参数。
func namedRateLimiter(group string, creditPerSecond, maxBalance float64) RateLimiter {
	rl := utils.NewRateLimiter(creditPerSecond, maxBalance)
	if actual, loaded := _namedRateLimiters.LoadOrStore(group, rl); loaded {
		rl = actual.(*utils.ReconfigurableRateLimiter)
		rl.Update(creditPerSecond, maxBalance)
	}
	return rl
}

// configureRateLimiterFromEnv 根据环境变量配置全局限流：
//
//	RELAY_LOG_RATE_ENABLE             开启限流，默认关闭
//	RELAY_LOG_RATE_CREDIT_PER_SECOND  每秒补充的额度，默认 1
//	RELAY_LOG_RATE_MAX_BALANCE        最大额度，默认 60
func configureRateLimiterFromEnv() {
	if !getenvBool("RELAY_LOG_RATE_ENABLE", false) {
		_globalR.Store(rateLimiterHolder{nopRateLimiter{}})
		return
	}
	credit := getenvFloat("RELAY_LOG_RATE_CREDIT_PER_SECOND", 1)
	maxBalance := getenvFloat("RELAY_LOG_RATE_MAX_BALANCE", 60)
	_globalR.Store(rateLimiterHolder{utils.NewRateLimiter(credit, maxBalance)})
}

func getenvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getenvFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return f
}
