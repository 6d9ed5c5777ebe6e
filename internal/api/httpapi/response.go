package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/cleaning-calendar/internal/calendar"
)

// Response — единый конверт ответа.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Details string `json:"details,omitempty"`
}

// Коды ошибок в теле ответа.
const (
	CodeOK             = 0
	CodeBadRequest     = 40001
	CodeInvalidBooking = 40002
	CodeNotFound       = 40401
	CodeConflict       = 40901
	CodeInternal       = 50001
	CodeStorage        = 50301
)

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: CodeOK, Message: "success", Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Code: CodeOK, Message: "success", Data: data})
}

func Error(c *gin.Context, httpStatus, code int, message string, data any) {
	c.JSON(httpStatus, Response{Code: code, Message: message, Data: data})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message, nil)
}

// writeError переводит ошибку календаря в HTTP-ответ. data уходит в тело,
// если ответ его поддерживает (отклонённые слоты, частичный результат).
func writeError(c *gin.Context, err error, data any) {
	_ = c.Error(err)

	var conflict *calendar.ConflictError
	switch {
	case errors.Is(err, calendar.ErrInvalidTemplate):
		Error(c, http.StatusBadRequest, CodeInvalidBooking, err.Error(), nil)
	case errors.As(err, &conflict):
		if data == nil {
			data = gin.H{"rejected": conflict.Rejected}
		}
		Error(c, http.StatusConflict, CodeConflict, conflict.Kind.Error(), data)
	case errors.Is(err, calendar.ErrStorageFailure):
		Error(c, http.StatusServiceUnavailable, CodeStorage, calendar.ErrStorageFailure.Error(), data)
	case errors.Is(err, calendar.ErrNotFound):
		Error(c, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, CodeInternal, "internal error", nil)
	}
}
