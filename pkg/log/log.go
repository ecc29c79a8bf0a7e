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

// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log 是基于 zap 的全局日志封装。
//
// 进程启动时通过 InitLogger + ReplaceGlobals 安装全局 Logger；
// 业务代码优先使用 Ctx(ctx) 获取携带连接、模块等字段的 Logger。
package log

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	_globalL atomic.Value // *zap.Logger
	_globalP atomic.Value // *ZapProperties

	// _globalLevelLogger 缓存各级别的 Logger，Ctx 按当前全局级别取用。
	_globalLevelLogger sync.Map
)

func init() {
	l, p := newStdLogger()
	ReplaceGlobals(l, p)
	configureRateLimiterFromEnv()
}

// InitLogger 按配置创建 Logger。
// 文件与标准输出都未开启时，日志被丢弃。
func InitLogger(cfg *Config, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	outputs, err := openOutputs(cfg)
	if err != nil {
		return nil, nil, err
	}
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	// 底层 Logger 总是以 debug 级别构建，实际级别由 ZapProperties.Level 控制。
	debugCfg := *cfg
	debugCfg.Level = zapcore.DebugLevel.String()
	debugL, props, err := InitLoggerWithWriteSyncer(&debugCfg, zap.CombineWriteSyncers(outputs...), opts...)
	if err != nil {
		return nil, nil, err
	}
	replaceLeveledLoggers(debugL)
	props.Level.SetLevel(level)
	return debugL.WithOptions(zap.AddCallerSkip(1)), props, nil
}

// InitLoggerWithWriteSyncer 创建输出到 output 的 Logger。
func InitLoggerWithWriteSyncer(cfg *Config, output zapcore.WriteSyncer, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	lv, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	level := zap.NewAtomicLevelAt(lv)
	core := zapcore.NewCore(newZapEncoder(cfg), output, level)
	lg := zap.New(core, append(cfg.buildOptions(output), opts...)...)
	return lg, &ZapProperties{Core: core, Syncer: output, Level: level}, nil
}

func openOutputs(cfg *Config) ([]zapcore.WriteSyncer, error) {
	var outputs []zapcore.WriteSyncer
	if cfg.File.Filename != "" {
		lg, err := initFileLog(&cfg.File)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, zapcore.AddSync(lg))
	}
	if cfg.Stdout {
		stdout, _, err := zap.Open("stdout")
		if err != nil {
			return nil, errors.Wrap(err, "open stdout")
		}
		outputs = append(outputs, stdout)
	}
	return outputs, nil
}

// parseLevel 解析日志级别，空串视为 info，trace 视为 debug。
func parseLevel(text string) (zapcore.Level, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	switch text {
	case "":
		return zapcore.InfoLevel, nil
	case "trace":
		return zapcore.DebugLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(text)); err != nil {
		return level, errors.Wrapf(err, "parse log level %q", text)
	}
	return level, nil
}

// initFileLog 创建按大小滚动的日志文件。
func initFileLog(cfg *FileLogConfig) (*lumberjack.Logger, error) {
	logPath := filepath.Join(cfg.RootPath, cfg.Filename)
	if st, err := os.Stat(logPath); err == nil && st.IsDir() {
		return nil, errors.Newf("log file %s is a directory", logPath)
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = defaultLogMaxSize
	}
	return &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxDays,
		LocalTime:  true,
	}, nil
}

func newStdLogger() (*zap.Logger, *ZapProperties) {
	conf := &Config{Level: "info", Stdout: true, DisableErrorVerbose: true}
	lg, r, _ := InitLogger(conf, zap.OnFatal(zapcore.WriteThenPanic))
	return lg, r
}

// L 返回全局 Logger，可通过 ReplaceGlobals 替换，并发安全。
func L() *zap.Logger {
	return _globalL.Load().(*zap.Logger)
}

// ctxL 返回与当前全局级别对应的分级 Logger。
func ctxL() *zap.Logger {
	l, ok := _globalLevelLogger.Load(GetLevel())
	if !ok {
		return L()
	}
	return l.(*zap.Logger)
}

// ReplaceGlobals 替换全局 Logger 及其属性，并发安全。
func ReplaceGlobals(logger *zap.Logger, props *ZapProperties) {
	_globalL.Store(logger)
	_globalP.Store(props)
}

func replaceLeveledLoggers(debugLogger *zap.Logger) {
	for level := zapcore.DebugLevel; level <= zapcore.FatalLevel; level++ {
		_globalLevelLogger.Store(level, debugLogger.WithOptions(zap.IncreaseLevel(level)))
	}
}

// Sync 刷新缓冲中的日志。
func Sync() error {
	return L().Sync()
}
