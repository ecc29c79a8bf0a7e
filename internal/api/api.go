// Package api 提供登录与查询用的 HTTP 接口。
//
// 登录流程是 IdentityRecord 的写入方：为玩家签发一次性令牌并分配房间，
// 客户端随后在 websocket 上用该令牌完成 Identify。
package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lk2023060901/land-relay-go/internal/game"
	"github.com/lk2023060901/land-relay-go/internal/json"
	"github.com/lk2023060901/land-relay-go/pkg/log"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

// maxBodyBytes 为请求体大小上限。
const maxBodyBytes = 4 << 10

// LoginRequest 为 POST /api/login 的请求体。
type LoginRequest struct {
	Username string `json:"username"`
	Room     *int   `json:"room,omitempty"`
}

// LoginResponse 为登录成功时 msg 字段的内容。
type LoginResponse struct {
	Username string `json:"username"`
	Identity string `json:"identity"`
	Room     int    `json:"room"`
}

// Server 持有 HTTP 接口依赖的游戏状态。
type Server struct {
	core     *game.Core
	newToken func() string
}

// New 创建 Server，令牌使用随机 UUID。
func New(core *game.Core) *Server {
	return &Server{
		core:     core,
		newToken: uuid.NewString,
	}
}

// Routes 返回挂载在 /api 下的路由。
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.NoCache)
	r.Post("/login", s.login)
	r.Get("/rooms", s.rooms)
	return r
}

// Healthz 为存活探针。
func Healthz(w http.ResponseWriter, _ *http.Request) {
	Success(w, http.StatusOK, "ok")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		Fail(w, merr.WrapErrParameterInvalidMsg("read body: %s", err.Error()))
		return
	}
	var req LoginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		Fail(w, merr.WrapErrParameterInvalidMsg("decode body: %s", err.Error()))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		Fail(w, merr.WrapErrParameterMissing("username"))
		return
	}

	var (
		index int
		token = s.newToken()
	)
	err = s.core.Identities().Issue(req.Username, token, func() (err error) {
		index, err = s.place(req)
		return err
	})
	if err != nil {
		Fail(w, err)
		return
	}
	log.Ctx(r.Context()).Info("login issued identity",
		zap.String("username", req.Username),
		zap.Int("room", index),
		zap.Int("pending", s.core.Identities().Pending()))
	Success(w, http.StatusOK, LoginResponse{Username: req.Username, Identity: token, Room: index})
}

// place 为玩家分配房间，在身份注册表的锁内执行。
// 已在房间中的玩家保持原房间，请求另一房间时返回冲突。
func (s *Server) place(req LoginRequest) (int, error) {
	rooms := s.core.Rooms()
	if current, ok := rooms.Locate(req.Username); ok {
		if req.Room != nil && *req.Room != current {
			return -1, merr.WrapErrPlayerAlreadyInRoom(req.Username, current)
		}
		return current, nil
	}
	if req.Room != nil {
		return *req.Room, rooms.Join(*req.Room, req.Username)
	}
	return rooms.JoinLeastPopulated(req.Username)
}

func (s *Server) rooms(w http.ResponseWriter, _ *http.Request) {
	Success(w, http.StatusOK, s.core.Rooms().Snapshot())
}
