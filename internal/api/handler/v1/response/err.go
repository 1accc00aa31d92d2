package response

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const internalErrorMessage = "Internal server error"

var exposeInternal atomic.Bool

// ExposeInternalErrors makes 500 responses carry the underlying error. Only
// development environments turn it on.
func ExposeInternalErrors(on bool) {
	exposeInternal.Store(on)
}

// Err is rendered as the failure envelope. Err holds the cause, which is
// logged but only shown to the client for 4xx responses.
type Err struct {
	HTTPStatusCode int   `json:"-"`
	Err            error `json:"-"`

	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"event not found"`
}

func (e *Err) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Err.Error()
}

func (e *Err) Unwrap() error {
	return e.Err
}

func newErr(status int, err error, message string) *Err {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &Err{
		HTTPStatusCode: status,
		Err:            err,
		Message:        message,
	}
}

func ErrBadRequest(err error) *Err {
	return newErr(http.StatusBadRequest, err, "")
}

// ErrValidation reports the first rule a request broke.
func ErrValidation(err error) *Err {
	return newErr(http.StatusBadRequest, err, "")
}

// ErrConflict is rendered as 400 like every other client mistake.
func ErrConflict(err error) *Err {
	return newErr(http.StatusBadRequest, err, "")
}

func ErrNotFound(resource, key string, value interface{}) *Err {
	return newErr(http.StatusNotFound,
		fmt.Errorf("%s with %s %v not found", resource, key, value),
		fmt.Sprintf("%s not found", resource))
}

func ErrPermissionDenied(err error) *Err {
	return newErr(http.StatusForbidden, err, "")
}

func ErrUnauthorized(err error) *Err {
	return newErr(http.StatusUnauthorized, err, "")
}

func ErrWrongCredentials(err error) *Err {
	return newErr(http.StatusUnauthorized, err, "invalid credentials")
}

func ErrTooManyRequests(err error) *Err {
	return newErr(http.StatusTooManyRequests, err, "")
}

func ErrInternalServerError(err error) *Err {
	return newErr(http.StatusInternalServerError, err, internalErrorMessage)
}

// RenderErr aborts the request with e. Server side failures are logged here
// and nowhere else.
func RenderErr(ctx *gin.Context, e *Err) {
	if e.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("requestID", requestid.Get(ctx)),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(e.Err))

		if exposeInternal.Load() && e.Err != nil {
			e.Message = e.Err.Error()
		}
	}

	e.Success = false
	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}
