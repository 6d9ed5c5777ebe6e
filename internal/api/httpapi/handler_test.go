package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/cleaning-calendar/internal/calendar"
	"github.com/Leganyst/cleaning-calendar/internal/db"
	"github.com/Leganyst/cleaning-calendar/internal/repository"
	"github.com/Leganyst/cleaning-calendar/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gdb, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	svc := service.NewBookingService(
		repository.NewGormBookingRepository(gdb),
		repository.NewGormEventRepository(gdb),
		nil,
		zap.NewNop(),
	)
	h := NewHandler(svc, zap.NewNop())
	h.now = func() time.Time { return time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC) }
	return NewRouter(h, zap.NewNop())
}

func jsonBody(v any) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r *gin.Engine, method, path string, body io.Reader) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v\n%s", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func booking(date, slot, recurrence string) BookingRequest {
	return BookingRequest{
		Date:        date,
		TimeSlot:    slot,
		Description: "Oak Avenue Apartment",
		ClientName:  "Sarah Johnson",
		Address:     "456 Oak Avenue, Apt 2B, Springfield",
		Recurrence:  recurrence,
	}
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)
	w, _ := do(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestSubmit_CreateUpdateAndPartialConflict(t *testing.T) {
	r := setupRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/v1/bookings", jsonBody(booking("2024-12-22", "morning", "")))
	if w.Code != http.StatusCreated || env.Code != CodeOK {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w, env = do(t, r, http.MethodPost, "/api/v1/bookings", jsonBody(booking("2024-12-15", "morning", "weekly")))
	if w.Code != http.StatusCreated {
		t.Fatalf("partial conflict must still be 201, got %d: %s", w.Code, w.Body.String())
	}
	var res SubmitResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(res.Created) != 26 || len(res.Rejected) != 1 || res.Warning == "" {
		t.Fatalf("unexpected submit response: created=%d rejected=%v warning=%q", len(res.Created), res.Rejected, res.Warning)
	}
	if res.Rejected[0].String() != "2024-12-22/morning" {
		t.Fatalf("unexpected rejected slot %s", res.Rejected[0])
	}

	upd := booking("2024-12-15", "morning", "monthly")
	upd.Description = "Downtown Office"
	w, env = do(t, r, http.MethodPost, "/api/v1/bookings", jsonBody(upd))
	if w.Code != http.StatusOK {
		t.Fatalf("update must be 200, got %d: %s", w.Code, w.Body.String())
	}
	res = SubmitResponse{}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if res.Action != service.ActionUpdated || res.Updated == nil || res.Updated.Description != "Downtown Office" {
		t.Fatalf("expected update, got %+v", res)
	}

	w, env = do(t, r, http.MethodGet, "/api/v1/bookings/2024-12-15/morning", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	var rec calendar.Record
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.ID != res.Updated.ID || rec.Description != "Downtown Office" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestSubmit_InvalidTemplate(t *testing.T) {
	r := setupRouter(t)

	cases := []BookingRequest{
		booking("2024-13-01", "morning", ""),
		booking("2024-12-15", "evening", ""),
		booking("2024-12-15", "morning", "daily"),
		{Date: "2024-12-15", TimeSlot: "morning", ClientName: "x", Address: "y"},
	}
	for _, c := range cases {
		w, env := do(t, r, http.MethodPost, "/api/v1/bookings", jsonBody(c))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%+v: expected 400, got %d: %s", c, w.Code, w.Body.String())
		}
		if env.Code != CodeInvalidBooking {
			t.Fatalf("%+v: expected code %d, got %d", c, CodeInvalidBooking, env.Code)
		}
	}

	w, _ := do(t, r, http.MethodPost, "/api/v1/bookings", strings.NewReader("{"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", w.Code)
	}
}

func TestPreview(t *testing.T) {
	r := setupRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/v1/bookings/preview", jsonBody(booking("2024-08-31", "afternoon", "monthly")))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var p PreviewResponse
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.ToCreate) != 7 || p.ToCreate[1].Date.String() != "2024-09-30" {
		t.Fatalf("unexpected preview %+v", p)
	}

	w, env = do(t, r, http.MethodGet, "/api/v1/months/2024/9", nil)
	if w.Code != http.StatusOK || string(env.Data) != "[]" {
		t.Fatalf("preview must not write, got %d %s", w.Code, env.Data)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	r := setupRouter(t)

	do(t, r, http.MethodPost, "/api/v1/bookings", jsonBody(booking("2024-12-15", "morning", "")))

	for i, want := range []bool{true, false} {
		w, env := do(t, r, http.MethodDelete, "/api/v1/bookings/2024-12-15/morning", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("delete %d: expected 200, got %d", i, w.Code)
		}
		var res DeleteResponse
		if err := json.Unmarshal(env.Data, &res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if res.Deleted != want {
			t.Fatalf("delete %d: expected deleted=%v, got %+v", i, want, res)
		}
	}

	w, env := do(t, r, http.MethodGet, "/api/v1/bookings/2024-12-15/morning", nil)
	if w.Code != http.StatusNotFound || env.Code != CodeNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}

	w, _ = do(t, r, http.MethodDelete, "/api/v1/bookings/2024-12-15/noon", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown slot, got %d", w.Code)
	}
}

func TestListAndCalendar(t *testing.T) {
	r := setupRouter(t)

	do(t, r, http.MethodPost, "/api/v1/bookings", jsonBody(booking("2024-12-15", "afternoon", "biweekly")))

	w, env := do(t, r, http.MethodGet, "/api/v1/bookings?from=2024-12-01&to=2024-12-31", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var records []calendar.Record
	if err := json.Unmarshal(env.Data, &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 || records[1].Date.String() != "2024-12-29" {
		t.Fatalf("unexpected list %+v", records)
	}

	w, env = do(t, r, http.MethodGet, "/api/v1/bookings?from=2024-12-01&to=2025-06-30&page=2&pageSize=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("paged list: expected 200, got %d", w.Code)
	}
	var page calendar.Page[calendar.Record]
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 14 || len(page.Items) != 4 || page.HasNext || !page.HasPrev {
		t.Fatalf("unexpected page %+v", page)
	}

	w, _ = do(t, r, http.MethodGet, "/api/v1/bookings?from=2024-12-01", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("list without to: expected 400, got %d", w.Code)
	}
	w, _ = do(t, r, http.MethodGet, "/api/v1/bookings?from=2024-12-31&to=2024-12-01", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("reversed range: expected 400, got %d", w.Code)
	}

	w, _ = do(t, r, http.MethodGet, "/api/v1/calendar.ics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ics: expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("unexpected content type %q", ct)
	}
	// сегодня 2024-12-01, горизонт 2025-06-01: с 2024-12-15 по 2025-06-01
	// раз в две недели — 13 событий
	if n := strings.Count(w.Body.String(), "BEGIN:VEVENT"); n != 13 {
		t.Fatalf("expected 13 events in feed, got %d", n)
	}
}

// ===== Отображение ошибок =====

type stubService struct {
	BookingService
	res *service.SubmitResult
	err error
}

func (s *stubService) Submit(context.Context, calendar.Template) (*service.SubmitResult, error) {
	return s.res, s.err
}

func TestSubmit_ErrorMapping(t *testing.T) {
	key := calendar.SlotKey{Date: calendar.Date{Year: 2024, Month: 12, Day: 15}, Slot: calendar.SlotMorning}

	cases := []struct {
		name   string
		stub   *stubService
		status int
		code   int
	}{
		{
			name:   "conflict all",
			stub:   &stubService{err: &calendar.ConflictError{Kind: calendar.ErrConflictAll, Rejected: []calendar.SlotKey{key}}},
			status: http.StatusConflict,
			code:   CodeConflict,
		},
		{
			name: "storage failure",
			stub: &stubService{
				res: &service.SubmitResult{Action: service.ActionCreated},
				err: calendar.NewStorageError("create bookings", io.ErrUnexpectedEOF),
			},
			status: http.StatusServiceUnavailable,
			code:   CodeStorage,
		},
	}

	for _, c := range cases {
		r := NewRouter(NewHandler(c.stub, zap.NewNop()), zap.NewNop())
		w, env := do(t, r, http.MethodPost, "/api/v1/bookings", jsonBody(booking("2024-12-15", "morning", "")))
		if w.Code != c.status || env.Code != c.code {
			t.Fatalf("%s: expected %d/%d, got %d/%d: %s", c.name, c.status, c.code, w.Code, env.Code, w.Body.String())
		}
		if len(env.Data) == 0 {
			t.Fatalf("%s: expected data with rejected slots or partial result", c.name)
		}
	}
}
