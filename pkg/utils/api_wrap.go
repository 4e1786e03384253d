package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Kind    ErrorKind   `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceID(c *gin.Context) string {
	return c.GetString("trace_id")
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Kind:    KindInvalidInput,
		Message: message,
		TraceID: traceID(c),
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind ErrorKind) int {
	switch kind {
	case KindSessionNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindInvalidState:
		return http.StatusConflict
	case KindExternalWorkflowUnavailable:
		return http.StatusServiceUnavailable
	case KindProviderFailure:
		return http.StatusBadGateway
	case KindBuildConstraint, KindEditParseFailure:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func HandleServiceError(c *gin.Context, log *zap.Logger, err error) {
	kind := KindOf(err)
	code := StatusFor(kind)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("trace_id", traceID(c)), zap.String("kind", string(kind)), zap.Error(err))
	}
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Kind:    kind,
		Message: MessageOf(err),
		TraceID: traceID(c),
	})
}
