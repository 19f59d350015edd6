package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkeye/LiveState/internal/app"
	"github.com/dkeye/LiveState/internal/logging"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, envelope{Error: &errorBody{Code: code, Message: message}})
}

// fail maps err onto a status and writes the error envelope.
func fail(c *gin.Context, err error) {
	code := app.Code(err)
	status := statusFor(code)
	evt := logging.Ctx(c.Request.Context()).Warn()
	if status >= http.StatusInternalServerError {
		evt = logging.Ctx(c.Request.Context()).Error()
	}
	evt.Err(err).Str("code", code).Msg("request failed")
	abort(c, status, code, err.Error())
}

func statusFor(code string) int {
	switch code {
	case app.CodeInvalidParams:
		return http.StatusBadRequest
	case app.CodeNotFound:
		return http.StatusNotFound
	case app.CodeRateLimited:
		return http.StatusTooManyRequests
	case app.CodeNativeUnavailable, app.CodeTimeout:
		return http.StatusServiceUnavailable
	case app.CodeNativeError:
		return http.StatusBadGateway
	case app.CodeCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}
