package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Leganyst/cleaning-calendar/internal/calendar"
	"github.com/Leganyst/cleaning-calendar/internal/lock"
	"github.com/Leganyst/cleaning-calendar/internal/model"
	"github.com/Leganyst/cleaning-calendar/internal/repository"
	"github.com/Leganyst/cleaning-calendar/internal/utils"
)

// Action — что заявка сделала с календарём.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionRejected Action = "rejected"
)

// SubmitResult — итог заявки.
type SubmitResult struct {
	SubmissionID string
	Action       Action
	// Созданные записи в хронологическом порядке.
	Created []calendar.Record
	// Изменённая запись, если заявка попала в занятый ею же слот.
	Updated *calendar.Record
	// Слоты, которые не удалось занять: по снимку занятости или по индексу.
	Rejected []calendar.SlotKey
	// Текст для клиента при частичном конфликте.
	Warning string
	// Записи в диапазоне дат заявки, перечитанные после записи.
	View []calendar.Record
}

// Preview — план заявки без записи.
type Preview struct {
	Action   Action
	ToCreate []calendar.Template
	ToUpdate *calendar.Update
	Rejected []calendar.SlotKey
	Warning  string
}

type BookingService struct {
	bookings repository.BookingRepository
	events   repository.EventRepository
	locker   lock.Locker
	logger   *zap.Logger
}

func NewBookingService(
	bookings repository.BookingRepository,
	events repository.EventRepository,
	locker lock.Locker,
	logger *zap.Logger,
) *BookingService {
	if locker == nil {
		locker = lock.NopLocker{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		bookings: bookings,
		events:   events,
		locker:   locker,
		logger:   logger,
	}
}

// plan — снимок занятости и разрешение конфликтов для заявки.
// tmpl уже нормализован и проверен.
func (s *BookingService) plan(ctx context.Context, tmpl calendar.Template) (calendar.Plan, calendar.Date, calendar.Date, error) {
	exact, err := s.bookings.FindBySlot(ctx, tmpl.Key())
	if err != nil {
		return calendar.Plan{}, calendar.Date{}, calendar.Date{}, calendar.NewStorageError("find slot", err)
	}
	if exact != nil {
		// повторение при обновлении не разворачивается
		return calendar.Resolve([]calendar.Template{tmpl}, nil, exact), tmpl.Date, tmpl.Date, nil
	}

	candidates, err := calendar.Expand(tmpl)
	if err != nil {
		return calendar.Plan{}, calendar.Date{}, calendar.Date{}, err
	}
	first, last := candidates[0].Date, candidates[len(candidates)-1].Date

	occupied, err := s.bookings.ListOccupied(ctx, first, last)
	if err != nil {
		return calendar.Plan{}, first, last, calendar.NewStorageError("list occupied", err)
	}

	// слот заявки заняли между двумя чтениями: перечитываем его, чтобы
	// обновление осталось важнее отказа
	if occupied.Has(tmpl.Key()) {
		exact, err = s.bookings.FindBySlot(ctx, tmpl.Key())
		if err != nil {
			return calendar.Plan{}, first, last, calendar.NewStorageError("find slot", err)
		}
		if exact != nil {
			return calendar.Resolve([]calendar.Template{tmpl}, nil, exact), tmpl.Date, tmpl.Date, nil
		}
		delete(occupied, tmpl.Key())
	}
	return calendar.Resolve(candidates, occupied, nil), first, last, nil
}

func prepare(tmpl calendar.Template) (calendar.Template, error) {
	tmpl = tmpl.Normalize()
	if err := tmpl.Validate(); err != nil {
		return tmpl, err
	}
	return tmpl, nil
}

// Preview показывает, что сделает заявка, ничего не записывая.
// Полный конфликт здесь не ошибка: план с пустым ToCreate тоже ответ.
func (s *BookingService) Preview(ctx context.Context, tmpl calendar.Template) (*Preview, error) {
	tmpl, err := prepare(tmpl)
	if err != nil {
		return nil, err
	}

	plan, _, _, err := s.plan(ctx, tmpl)
	if err != nil {
		return nil, err
	}

	p := &Preview{
		ToCreate: plan.ToCreate,
		ToUpdate: plan.ToUpdate,
		Rejected: plan.Rejected,
		Warning:  utils.FormatRejected(plan.Rejected),
	}
	switch {
	case plan.IsUpdate():
		p.Action = ActionUpdated
	case len(plan.ToCreate) > 0:
		p.Action = ActionCreated
	default:
		p.Action = ActionRejected
	}
	return p, nil
}

// Submit планирует и записывает заявку.
//
// Ошибки: *calendar.TemplateError при неверной заявке, *calendar.ConflictError
// с ErrConflictAll, если не удалось занять ни одного слота, и
// *calendar.StorageError при сбое хранилища. В последних двух случаях
// результат всё равно возвращается: в нём то, что успело записаться, и
// отклонённые слоты. Частичный конфликт ошибкой не считается, он виден
// в Rejected и Warning.
func (s *BookingService) Submit(ctx context.Context, tmpl calendar.Template) (*SubmitResult, error) {
	tmpl, err := prepare(tmpl)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lock.SubmitKey)
	if err != nil {
		return nil, calendar.NewStorageError("acquire submit lock", err)
	}
	defer unlock(context.WithoutCancel(ctx))

	plan, first, last, err := s.plan(ctx, tmpl)
	if err != nil {
		return nil, err
	}

	res := &SubmitResult{SubmissionID: uuid.NewString()}
	log := s.logger.With(
		zap.String("submission_id", res.SubmissionID),
		zap.Stringer("slot", tmpl.Key()),
		zap.String("recurrence", string(tmpl.Recurrence)),
	)

	var commitErr error
	if plan.IsUpdate() {
		commitErr = s.commitUpdate(ctx, plan.ToUpdate, res)
	} else {
		commitErr = s.commitCreate(ctx, plan, res)
	}

	outcome := calendar.CommitOutcome(len(res.Created), res.Updated != nil, res.Rejected)
	switch {
	case res.Updated != nil:
		res.Action = ActionUpdated
	case len(res.Created) > 0:
		res.Action = ActionCreated
	default:
		res.Action = ActionRejected
	}
	res.Warning = utils.FormatRejected(res.Rejected)

	s.audit(ctx, log, res)

	if commitErr != nil {
		log.Error("submission failed",
			zap.Int("created", len(res.Created)),
			zap.Int("rejected", len(res.Rejected)),
			zap.Error(commitErr),
		)
		return res, commitErr
	}
	if errors.Is(outcome, calendar.ErrConflictAll) {
		log.Info("submission rejected", zap.Int("rejected", len(res.Rejected)))
		return res, outcome
	}

	view, err := s.bookings.ListRange(ctx, first, last)
	if err != nil {
		// записи уже на месте, вид перечитает клиент
		log.Warn("reload view failed", zap.Error(err))
	} else {
		res.View = view
	}

	log.Info("submission committed",
		zap.String("action", string(res.Action)),
		zap.Int("created", len(res.Created)),
		zap.Int("rejected", len(res.Rejected)),
	)
	return res, nil
}

func (s *BookingService) commitUpdate(ctx context.Context, upd *calendar.Update, res *SubmitResult) error {
	if err := s.bookings.Update(ctx, upd.ID, upd.Template); err != nil {
		return calendar.NewStorageError("update booking", err)
	}
	rec := calendar.Record{ID: upd.ID, Template: upd.Template}
	res.Updated = &rec
	return nil
}

func (s *BookingService) commitCreate(ctx context.Context, plan calendar.Plan, res *SubmitResult) error {
	res.Rejected = append(res.Rejected, plan.Rejected...)
	if len(plan.ToCreate) == 0 {
		return nil
	}

	batch, err := s.bookings.CreateBatch(ctx, plan.ToCreate)
	res.Created = batch.Created
	if len(batch.Duplicates) > 0 {
		res.Rejected = append(res.Rejected, batch.Duplicates...)
		sort.Slice(res.Rejected, func(i, j int) bool { return res.Rejected[i].Less(res.Rejected[j]) })
	}
	if err != nil {
		return calendar.NewStorageError("create bookings", err)
	}
	return calendar.NewStorageError("create bookings", batch.Err())
}

// Delete освобождает слот. Удаление свободного слота — не ошибка,
// тогда возвращается nil.
func (s *BookingService) Delete(ctx context.Context, key calendar.SlotKey) (*calendar.Record, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	rec, err := s.bookings.DeleteBySlot(ctx, key)
	if err != nil {
		return nil, calendar.NewStorageError("delete booking", err)
	}
	if rec == nil {
		s.logger.Debug("delete of free slot", zap.Stringer("slot", key))
		return nil, nil
	}

	s.writeEvents(ctx, s.logger, eventFor(model.EventTypeBookingDeleted, nil, *rec))
	s.logger.Info("booking deleted", zap.String("booking_id", rec.ID), zap.Stringer("slot", key))
	return rec, nil
}

// Get — запись слота или calendar.ErrNotFound.
func (s *BookingService) Get(ctx context.Context, key calendar.SlotKey) (*calendar.Record, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	rec, err := s.bookings.FindBySlot(ctx, key)
	if err != nil {
		return nil, calendar.NewStorageError("find slot", err)
	}
	if rec == nil {
		return nil, calendar.ErrNotFound
	}
	return rec, nil
}

// List — записи в диапазоне [from, to] по дате и слоту.
func (s *BookingService) List(ctx context.Context, from, to calendar.Date) ([]calendar.Record, error) {
	if !from.IsValid() {
		return nil, &calendar.TemplateError{Field: "from", Reason: "not a valid calendar date"}
	}
	if !to.IsValid() {
		return nil, &calendar.TemplateError{Field: "to", Reason: "not a valid calendar date"}
	}
	if to.Before(from) {
		return nil, &calendar.TemplateError{Field: "to", Reason: "must not be before from"}
	}

	records, err := s.bookings.ListRange(ctx, from, to)
	if err != nil {
		return nil, calendar.NewStorageError("list bookings", err)
	}
	return records, nil
}

// Month — записи календарного месяца, для сетки на месяц.
func (s *BookingService) Month(ctx context.Context, year int, month time.Month) ([]calendar.Record, error) {
	from, to, err := calendar.MonthRange(year, month)
	if err != nil {
		return nil, &calendar.TemplateError{Field: "month", Reason: err.Error()}
	}
	return s.List(ctx, from, to)
}

// PurgeBefore удаляет записи строго раньше before.
func (s *BookingService) PurgeBefore(ctx context.Context, before calendar.Date) (int64, error) {
	if !before.IsValid() {
		return 0, &calendar.TemplateError{Field: "before", Reason: "not a valid calendar date"}
	}

	n, err := s.bookings.DeleteBefore(ctx, before)
	if err != nil {
		return 0, calendar.NewStorageError("purge bookings", err)
	}
	if n > 0 {
		s.writeEvents(ctx, s.logger, model.Event{
			EventType: model.EventTypeBookingsPurged,
			Details:   details(map[string]any{"before": before.String(), "count": n}),
		})
	}
	s.logger.Info("bookings purged", zap.Stringer("before", before), zap.Int64("count", n))
	return n, nil
}

func validateKey(key calendar.SlotKey) error {
	if !key.Date.IsValid() {
		return &calendar.TemplateError{Field: "date", Reason: "not a valid calendar date"}
	}
	if !key.Slot.IsValid() {
		return &calendar.TemplateError{Field: "timeSlot", Reason: "unknown slot " + string(key.Slot)}
	}
	return nil
}

// ===== Журнал =====

// audit пишет события заявки. Журнал вспомогательный: его сбой не
// отменяет уже записанные бронирования.
func (s *BookingService) audit(ctx context.Context, log *zap.Logger, res *SubmitResult) {
	sid, err := uuid.Parse(res.SubmissionID)
	if err != nil {
		return
	}

	events := make([]model.Event, 0, len(res.Created)+len(res.Rejected)+1)
	if res.Updated != nil {
		events = append(events, eventFor(model.EventTypeBookingUpdated, &sid, *res.Updated))
	}
	for _, rec := range res.Created {
		events = append(events, eventFor(model.EventTypeBookingCreated, &sid, rec))
	}
	for _, key := range res.Rejected {
		d := datatypes.Date(key.Date.Time())
		events = append(events, model.Event{
			EventType:    model.EventTypeBookingRejected,
			SubmissionID: &sid,
			Date:         &d,
			TimeSlot:     model.TimeSlot(key.Slot),
		})
	}
	s.writeEvents(ctx, log, events...)
}

func (s *BookingService) writeEvents(ctx context.Context, log *zap.Logger, events ...model.Event) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Create(context.WithoutCancel(ctx), events...); err != nil {
		log.Warn("write booking events failed", zap.Int("count", len(events)), zap.Error(err))
	}
}

func eventFor(typ model.EventType, sid *uuid.UUID, rec calendar.Record) model.Event {
	d := datatypes.Date(rec.Date.Time())
	ev := model.Event{
		EventType:    typ,
		SubmissionID: sid,
		Date:         &d,
		TimeSlot:     model.TimeSlot(rec.TimeSlot),
		Details: details(map[string]any{
			"description": rec.Description,
			"clientName":  rec.ClientName,
			"address":     rec.Address,
			"recurrence":  rec.Recurrence,
		}),
	}
	if id, err := uuid.Parse(rec.ID); err == nil {
		ev.BookingID = &id
	}
	return ev
}

func details(v map[string]any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
