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

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// relayNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	relayNamespace = "relay"

	connectionSubsystem = "connection"
	eventSubsystem      = "event"
	busSubsystem        = "bus"
	gameSubsystem       = "game"

	// 以下为当前使用的通用标签名。
	eventNameLabelName = "event_name"
	directionLabelName = "direction"
	stageLabelName     = "stage"
	reasonLabelName    = "reason"

	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

var (
	// sizeBuckets 为帧大小的桶划分，单位为字节。
	sizeBuckets = prometheus.ExponentialBuckets(16, 4, 8)

	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: relayNamespace,
		Subsystem: connectionSubsystem,
		Name:      "active",
		Help:      "当前处于打开状态的 websocket 连接数",
	})

	AcceptedConnections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: relayNamespace,
		Subsystem: connectionSubsystem,
		Name:      "accepted_total",
		Help:      "成功完成握手并分配 ID 的连接总数",
	})

	RejectedConnections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: relayNamespace,
		Subsystem: connectionSubsystem,
		Name:      "rejected_total",
		Help:      "握手失败或超出连接上限而被拒绝的连接总数",
	}, []string{reasonLabelName})

	Events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: relayNamespace,
		Subsystem: eventSubsystem,
		Name:      "total",
		Help:      "按事件名与方向统计的事件数",
	}, []string{eventNameLabelName, directionLabelName})

	EventErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: relayNamespace,
		Subsystem: eventSubsystem,
		Name:      "errors_total",
		Help:      "按阶段统计的收发错误数",
	}, []string{stageLabelName})

	FrameBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: relayNamespace,
		Subsystem: eventSubsystem,
		Name:      "frame_bytes",
		Help:      "单个文本帧的字节数",
		Buckets:   sizeBuckets,
	}, []string{directionLabelName})

	BusSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: relayNamespace,
		Subsystem: busSubsystem,
		Name:      "subscribers",
		Help:      "当前广播总线的订阅者数量",
	})

	BusDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: relayNamespace,
		Subsystem: busSubsystem,
		Name:      "dropped_total",
		Help:      "因订阅者缓冲区已满而被丢弃的投递次数",
	})

	BoundIdentities = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: relayNamespace,
		Subsystem: gameSubsystem,
		Name:      "bound_identities",
		Help:      "当前已绑定到连接的身份数量",
	})

	RoomPlayers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: relayNamespace,
		Subsystem: gameSubsystem,
		Name:      "room_players",
		Help:      "每个房间中的玩家数量",
	}, []string{"room"})

	registerOnce     sync.Once
	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标，多次调用只生效一次。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(ActiveConnections)
		r.MustRegister(AcceptedConnections)
		r.MustRegister(RejectedConnections)
		r.MustRegister(Events)
		r.MustRegister(EventErrors)
		r.MustRegister(FrameBytes)
		r.MustRegister(BusSubscribers)
		r.MustRegister(BusDropped)
		r.MustRegister(BoundIdentities)
		r.MustRegister(RoomPlayers)
		metricRegisterer = r
	})
}
