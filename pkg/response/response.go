package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key the request id middleware writes and
// every envelope echoes.
const RequestIDKey = "request_id"

type APIResponse[T any] struct {
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      T         `json:"data,omitempty"`
	Meta      any       `json:"meta,omitempty"`
	Error     any       `json:"error,omitempty"`
}

// PageMeta is the meta block of paginated listings.
type PageMeta struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPageMeta(page, size, total int) PageMeta {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return PageMeta{Page: page, Size: size, Total: total, TotalPages: pages}
}

func envelope[T any](ctx *gin.Context, status int, ok bool, message string) APIResponse[T] {
	return APIResponse[T]{
		Status:    status,
		Timestamp: time.Now().UTC(),
		RequestID: ctx.GetString(RequestIDKey),
		Success:   ok,
		Message:   message,
	}
}

// Success writes a success envelope and returns it. status 0 means 200.
func Success[T any](ctx *gin.Context, status int, data T, message string, meta any) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	res := envelope[T](ctx, status, true, message)
	res.Data = data
	res.Meta = meta
	ctx.JSON(status, res)
	return res
}

// Error writes an error envelope and aborts the chain. status 0 means 400.
func Error[T any](ctx *gin.Context, status int, message string, err any) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	res := envelope[T](ctx, status, false, message)
	res.Error = err
	ctx.AbortWithStatusJSON(status, res)
	return res
}
