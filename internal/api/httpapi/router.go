package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter собирает gin-движок со всеми маршрутами календаря.
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		bookings := v1.Group("/bookings")
		{
			bookings.GET("", h.List)
			bookings.POST("", h.Submit)
			bookings.POST("/preview", h.Preview)
			bookings.GET("/:date/:slot", h.Get)
			bookings.DELETE("/:date/:slot", h.Delete)
		}

		v1.GET("/months/:year/:month", h.Month)
		v1.GET("/calendar.ics", h.Calendar)
	}

	return r
}
