package api

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/land-relay-go/internal/json"
	"github.com/lk2023060901/land-relay-go/pkg/log"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope 是 HTTP 接口统一的返回格式。
type Envelope struct {
	Status string `json:"status"`
	Msg    any    `json:"msg"`
}

// Success 以 {"status":"success","msg":msg} 写回响应。
func Success(w http.ResponseWriter, code int, msg any) {
	write(w, code, Envelope{Status: StatusSuccess, Msg: msg})
}

// Fail 以 {"status":"error","msg":err} 写回响应，HTTP 状态码由错误类型决定。
func Fail(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		log.Warn("api request failed", zap.Int32("code", merr.Code(err)), zap.Error(err))
	}
	write(w, code, Envelope{Status: StatusError, Msg: err.Error()})
}

func write(w http.ResponseWriter, code int, body Envelope) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Warn("encode response failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, merr.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, merr.ErrPlayerAlreadyInRoom):
		return http.StatusConflict
	case errors.Is(err, merr.ErrServiceNotReady):
		return http.StatusServiceUnavailable
	case merr.IsInputError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
