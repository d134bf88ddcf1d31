package dto

import (
	"net/http"

	"Underworld/internal/shared/transport"
)

// Response 统一的 HTTP 响应体，code 为业务码。
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func Success(code int, data any) Response {
	return Response{Code: code, Msg: "ok", Data: data}
}

func Error(code int, msg string) Response {
	return Response{Code: code, Msg: msg}
}

// ErrorWithData 规则拒绝时把 reason 等上下文一并带给客户端。
func ErrorWithData(code int, msg string, data any) Response {
	return Response{Code: code, Msg: msg, Data: data}
}

// StatusOf 业务码到 HTTP 状态码，成功一律 200。
func StatusOf(code int) int {
	switch {
	case code == transport.OK:
		return http.StatusOK
	case code == transport.Unauthorized:
		return http.StatusUnauthorized
	case code == transport.Forbidden:
		return http.StatusForbidden
	case code == transport.RateLimited:
		return http.StatusTooManyRequests
	case code == transport.NotFound, code == transport.DistrictNotFound:
		return http.StatusNotFound
	case code == transport.AlreadyClaimed:
		return http.StatusConflict
	case code >= transport.RuleRejected && code < transport.SystemError:
		return http.StatusUnprocessableEntity
	case code == transport.UpstreamUnavailable:
		return http.StatusServiceUnavailable
	case code == transport.UpstreamTimeout:
		return http.StatusGatewayTimeout
	case code >= transport.SystemError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
