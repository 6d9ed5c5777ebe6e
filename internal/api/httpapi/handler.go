package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/cleaning-calendar/internal/calendar"
	"github.com/Leganyst/cleaning-calendar/internal/ics"
	"github.com/Leganyst/cleaning-calendar/internal/service"
)

// BookingService — то, что HTTP-слою нужно от сервиса бронирований.
type BookingService interface {
	Submit(ctx context.Context, tmpl calendar.Template) (*service.SubmitResult, error)
	Preview(ctx context.Context, tmpl calendar.Template) (*service.Preview, error)
	Delete(ctx context.Context, key calendar.SlotKey) (*calendar.Record, error)
	Get(ctx context.Context, key calendar.SlotKey) (*calendar.Record, error)
	List(ctx context.Context, from, to calendar.Date) ([]calendar.Record, error)
	Month(ctx context.Context, year int, month time.Month) ([]calendar.Record, error)
}

type Handler struct {
	svc    BookingService
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(svc BookingService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger, now: time.Now}
}

// Submit — POST /api/v1/bookings
func (h *Handler) Submit(c *gin.Context) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	tmpl, err := req.Template()
	if err != nil {
		writeError(c, err, nil)
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), tmpl)
	if err != nil {
		var data any
		if res != nil {
			data = toSubmitResponse(res)
		}
		writeError(c, err, data)
		return
	}

	if res.Action == service.ActionUpdated {
		OK(c, toSubmitResponse(res))
		return
	}
	Created(c, toSubmitResponse(res))
}

// Preview — POST /api/v1/bookings/preview
func (h *Handler) Preview(c *gin.Context) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	tmpl, err := req.Template()
	if err != nil {
		writeError(c, err, nil)
		return
	}

	p, err := h.svc.Preview(c.Request.Context(), tmpl)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	OK(c, toPreviewResponse(p))
}

// Get — GET /api/v1/bookings/:date/:slot
func (h *Handler) Get(c *gin.Context) {
	key, ok := slotKeyParam(c)
	if !ok {
		return
	}
	rec, err := h.svc.Get(c.Request.Context(), key)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	OK(c, rec)
}

// Delete — DELETE /api/v1/bookings/:date/:slot. Свободный слот — не ошибка.
func (h *Handler) Delete(c *gin.Context) {
	key, ok := slotKeyParam(c)
	if !ok {
		return
	}
	rec, err := h.svc.Delete(c.Request.Context(), key)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	OK(c, DeleteResponse{Deleted: rec != nil, Booking: rec})
}

// List — GET /api/v1/bookings?from=&to=[&page=&pageSize=]
func (h *Handler) List(c *gin.Context) {
	from, to, ok := h.rangeQuery(c, false)
	if !ok {
		return
	}
	records, err := h.svc.List(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	// постранично, только если клиент попросил
	if c.Query("page") == "" && c.Query("pageSize") == "" {
		OK(c, nonNil(records))
		return
	}
	page, err1 := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, err2 := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(calendar.DefaultPageSize)))
	if err1 != nil || err2 != nil {
		BadRequest(c, "page and pageSize must be numbers")
		return
	}
	OK(c, calendar.Paginate(nonNil(records), page, size))
}

// Month — GET /api/v1/months/:year/:month
func (h *Handler) Month(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		BadRequest(c, "year must be a number")
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		BadRequest(c, "month must be a number")
		return
	}

	records, err := h.svc.Month(c.Request.Context(), year, time.Month(month))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	OK(c, nonNil(records))
}

// Calendar — GET /api/v1/calendar.ics. Без параметров отдаёт записи от
// сегодняшнего дня до горизонта повторений.
func (h *Handler) Calendar(c *gin.Context) {
	from, to, ok := h.rangeQuery(c, true)
	if !ok {
		return
	}
	records, err := h.svc.List(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	var buf bytes.Buffer
	if err := ics.Export(&buf, records, h.now()); err != nil {
		writeError(c, err, nil)
		return
	}
	c.Header("Content-Disposition", `inline; filename="calendar.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

func slotKeyParam(c *gin.Context) (calendar.SlotKey, bool) {
	d, err := calendar.ParseDate(c.Param("date"))
	if err != nil {
		BadRequest(c, "date must be YYYY-MM-DD")
		return calendar.SlotKey{}, false
	}
	slot, err := calendar.ParseTimeSlot(c.Param("slot"))
	if err != nil {
		BadRequest(c, err.Error())
		return calendar.SlotKey{}, false
	}
	return calendar.SlotKey{Date: d, Slot: slot}, true
}

// rangeQuery читает from/to. Если optional, пропущенные границы
// заменяются на сегодня и горизонт повторений.
func (h *Handler) rangeQuery(c *gin.Context, optional bool) (calendar.Date, calendar.Date, bool) {
	today := calendar.DateOf(h.now().UTC())
	defaults := map[string]calendar.Date{
		"from": today,
		"to":   calendar.Horizon(today),
	}

	var out [2]calendar.Date
	for i, name := range []string{"from", "to"} {
		raw := c.Query(name)
		if raw == "" {
			if !optional {
				BadRequest(c, name+" is required")
				return calendar.Date{}, calendar.Date{}, false
			}
			out[i] = defaults[name]
			continue
		}
		d, err := calendar.ParseDate(raw)
		if err != nil {
			BadRequest(c, name+" must be YYYY-MM-DD")
			return calendar.Date{}, calendar.Date{}, false
		}
		out[i] = d
	}
	return out[0], out[1], true
}
