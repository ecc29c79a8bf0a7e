package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/land-relay-go/internal/game"
	"github.com/lk2023060901/land-relay-go/internal/game/identity"
	"github.com/lk2023060901/land-relay-go/internal/game/room"
	"github.com/lk2023060901/land-relay-go/internal/json"
	"github.com/lk2023060901/land-relay-go/internal/network/event"
)

type APISuite struct {
	suite.Suite
	core   *game.Core
	server *Server
}

func (s *APISuite) SetupTest() {
	s.core = game.NewCore(identity.NewRegistry(), room.NewPool(2))
	s.server = New(s.core)
	s.server.newToken = func() string { return "tok-" + s.T().Name() }
}

func (s *APISuite) do(method, path, body string) (int, Envelope, json.RawMessage) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.server.Routes().ServeHTTP(rec, req)

	var raw struct {
		Status string          `json:"status"`
		Msg    json.RawMessage `json:"msg"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &raw))
	s.Equal("application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	return rec.Code, Envelope{Status: raw.Status}, raw.Msg
}

func (s *APISuite) TestLoginLeastPopulated() {
	s.Require().NoError(s.core.Rooms().Join(0, "amy"))

	code, env, msg := s.do(http.MethodPost, "/login", `{"username":" bob "}`)
	s.Equal(http.StatusOK, code)
	s.Equal(StatusSuccess, env.Status)

	var resp LoginResponse
	s.Require().NoError(json.Unmarshal(msg, &resp))
	s.Equal("bob", resp.Username)
	s.Equal(1, resp.Room)
	s.NotEmpty(resp.Identity)

	// 令牌可以在 websocket 上兑换。
	reply := s.core.OnEvent(s.T().Context(), event.Must(5, event.Identify, game.Identification{Username: resp.Username, Identity: resp.Identity}))
	s.Equal(event.Message, reply.Name)
}

func (s *APISuite) TestLoginExplicitRoom() {
	code, _, msg := s.do(http.MethodPost, "/login", `{"username":"bob","room":0}`)
	s.Equal(http.StatusOK, code)
	var resp LoginResponse
	s.Require().NoError(json.Unmarshal(msg, &resp))
	s.Equal(0, resp.Room)

	// 重复登录保持原房间。
	code, _, _ = s.do(http.MethodPost, "/login", `{"username":"bob"}`)
	s.Equal(http.StatusOK, code)
	code, env, _ := s.do(http.MethodPost, "/login", `{"username":"bob","room":1}`)
	s.Equal(http.StatusConflict, code)
	s.Equal(StatusError, env.Status)
}

func (s *APISuite) TestReloginKeepsSeat() {
	login := func() LoginResponse {
		code, _, msg := s.do(http.MethodPost, "/login", `{"username":"bob","room":1}`)
		s.Require().Equal(http.StatusOK, code)
		var resp LoginResponse
		s.Require().NoError(json.Unmarshal(msg, &resp))
		return resp
	}
	identify := func(id event.ConnID, token string) event.Name {
		return s.core.OnEvent(s.T().Context(), event.Must(id, event.Identify, game.Identification{Username: "bob", Identity: token})).Name
	}

	first := login()
	s.Equal(event.Message, identify(1, first.Identity))

	// 旧连接的 Close 晚于重新登录到达。
	second := login()
	s.Nil(s.core.OnEvent(s.T().Context(), event.Must(1, event.Close, nil)))

	s.Equal(event.Message, identify(2, second.Identity))
	index, ok := s.core.Rooms().Locate("bob")
	s.True(ok)
	s.Equal(1, index)
}

func (s *APISuite) TestLoginErrors() {
	code, env, _ := s.do(http.MethodPost, "/login", `{"username":""}`)
	s.Equal(http.StatusBadRequest, code)
	s.Equal(StatusError, env.Status)

	code, _, _ = s.do(http.MethodPost, "/login", `not json`)
	s.Equal(http.StatusBadRequest, code)

	code, _, _ = s.do(http.MethodPost, "/login", `{"username":"bob","room":7}`)
	s.Equal(http.StatusNotFound, code)
	s.Equal(0, s.core.Identities().Pending())
}

func (s *APISuite) TestRooms() {
	s.Require().NoError(s.core.Rooms().Join(1, "bob"))
	code, env, msg := s.do(http.MethodGet, "/rooms", "")
	s.Equal(http.StatusOK, code)
	s.Equal(StatusSuccess, env.Status)
	s.JSONEq(`[{"index":0,"players":[]},{"index":1,"players":["bob"]}]`, string(msg))
}

func (s *APISuite) TestHealthz() {
	rec := httptest.NewRecorder()
	Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"success","msg":"ok"}`, rec.Body.String())
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APISuite))
}
