// Package application 是 relay 进程的运行容器，负责加载配置、初始化日志、
// 组装各组件并管理 HTTP 服务的启动与退出。
package application

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/land-relay-go/internal/api"
	"github.com/lk2023060901/land-relay-go/internal/game"
	"github.com/lk2023060901/land-relay-go/internal/game/identity"
	"github.com/lk2023060901/land-relay-go/internal/game/room"
	"github.com/lk2023060901/land-relay-go/internal/network/acceptor"
	"github.com/lk2023060901/land-relay-go/internal/network/serializer"
	"github.com/lk2023060901/land-relay-go/pkg/log"
	"github.com/lk2023060901/land-relay-go/pkg/metrics"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

const (
	readHeaderTimeout      = 5 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Application 持有已组装好的 relay 组件。
type Application struct {
	cfg      Config
	acceptor *acceptor.Acceptor
	core     *game.Core
	handler  http.Handler
	addr     atomic.String
}

// New 根据配置初始化日志并组装组件，不监听端口。
func New(cfg Config) (*Application, error) {
	if err := initLogging(cfg.Log); err != nil {
		return nil, err
	}

	ser, err := serializer.ByName(cfg.Serializer)
	if err != nil {
		return nil, err
	}

	acc := acceptor.New(acceptor.Config{
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxMessageSize: cfg.Server.MaxMessageSize,
		MaxConnections: cfg.Server.MaxConnections,
		BusCapacity:    cfg.Bus.Capacity,
		Serializer:     ser,
	})
	core := game.NewCore(identity.NewRegistry(), room.NewPool(cfg.Game.Rooms))
	core.SetPublisher(acc.Publish)
	acc.OnEvent(core.OnEvent)

	a := &Application{
		cfg:      cfg,
		acceptor: acc,
		core:     core,
	}
	a.handler = a.routes()
	return a, nil
}

func initLogging(cfg log.Config) error {
	logger, props, err := log.InitLogger(&cfg)
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	log.ReplaceGlobals(logger, props)
	return nil
}

func (a *Application) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Handle(a.cfg.Server.Path, a.acceptor)
	r.Mount("/api", api.New(a.core).Routes())
	r.Get("/healthz", api.Healthz)
	if a.cfg.Metrics.Enabled {
		metrics.Register(prometheus.DefaultRegisterer)
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// Handler 返回挂载了全部路由的 http.Handler。
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Core 返回游戏状态，供测试与嵌入方使用。
func (a *Application) Core() *game.Core {
	return a.core
}

// Addr 返回实际监听的地址，Run 开始监听前为空。
func (a *Application) Addr() string {
	return a.addr.Load()
}

// Run 监听配置的地址并阻塞，直到 ctx 被取消或服务出错。
// 退出时先关闭所有 websocket 会话，再关闭 HTTP 服务。
func (a *Application) Run(ctx context.Context) error {
	intent, span := log.NewIntentContext("relay", "serve")
	defer span.End()

	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", a.cfg.Server.Addr)
	}
	a.addr.Store(ln.Addr().String())

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger := log.Ctx(intent)
	logger.Info("relay listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("path", a.cfg.Server.Path))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("relay shutting down")

		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), timeout)
		defer cancel()
		return merr.Combine(a.acceptor.Shutdown(sctx), srv.Shutdown(sctx))
	})
	return g.Wait()
}
