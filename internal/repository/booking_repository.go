package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Leganyst/cleaning-calendar/internal/calendar"
	"github.com/Leganyst/cleaning-calendar/internal/model"
)

type BookingRepository interface {
	// Занятые слоты в диапазоне дат [from, to].
	ListOccupied(ctx context.Context, from, to calendar.Date) (calendar.Occupancy, error)
	// Записи в диапазоне дат, по дате и слоту.
	ListRange(ctx context.Context, from, to calendar.Date) ([]calendar.Record, error)
	// Запись в слоте или nil, если слот свободен.
	FindBySlot(ctx context.Context, key calendar.SlotKey) (*calendar.Record, error)
	// Вставить записи по одной в порядке шаблонов.
	CreateBatch(ctx context.Context, templates []calendar.Template) (BatchResult, error)
	// Заменить поля записи, идентификатор и слот сохраняются.
	Update(ctx context.Context, id string, tmpl calendar.Template) error
	// Удалить запись слота. nil, если удалять было нечего.
	DeleteBySlot(ctx context.Context, key calendar.SlotKey) (*calendar.Record, error)
	// Удалить всё строго раньше даты.
	DeleteBefore(ctx context.Context, before calendar.Date) (int64, error)
}

// BatchResult — итог пакетной вставки по каждой записи.
type BatchResult struct {
	// Созданные записи в порядке входных шаблонов.
	Created []calendar.Record
	// Слоты, которые отверг уникальный индекс: их успел занять кто-то другой.
	Duplicates []calendar.SlotKey
	// Прочие ошибки, по одной на слот.
	Failures map[calendar.SlotKey]error
}

// Err собирает ошибки отдельных записей в одну.
func (r BatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for k, err := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", k, err))
	}
	return errors.Join(errs...)
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) ListOccupied(ctx context.Context, from, to calendar.Date) (calendar.Occupancy, error) {
	var rows []model.Booking
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Select("booking_date", "time_slot").
		Where("booking_date >= ? AND booking_date <= ?", sqlDate(from), sqlDate(to)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	occ := make(calendar.Occupancy, len(rows))
	for _, b := range rows {
		occ.Add(slotKeyOf(b))
	}
	return occ, nil
}

func (r *GormBookingRepository) ListRange(ctx context.Context, from, to calendar.Date) ([]calendar.Record, error) {
	var rows []model.Booking
	err := r.db.WithContext(ctx).
		Where("booking_date >= ? AND booking_date <= ?", sqlDate(from), sqlDate(to)).
		Order("booking_date ASC").
		Order("time_slot DESC"). // morning > afternoon по алфавиту
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]calendar.Record, 0, len(rows))
	for _, b := range rows {
		records = append(records, toRecord(b))
	}
	return records, nil
}

func (r *GormBookingRepository) FindBySlot(ctx context.Context, key calendar.SlotKey) (*calendar.Record, error) {
	var b model.Booking
	err := r.db.WithContext(ctx).
		First(&b, "booking_date = ? AND time_slot = ?", sqlDate(key.Date), string(key.Slot)).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := toRecord(b)
	return &rec, nil
}

// CreateBatch вставляет каждую запись отдельным запросом: ошибка одной
// записи не откатывает остальные и не выдаётся за успех всей серии.
func (r *GormBookingRepository) CreateBatch(ctx context.Context, templates []calendar.Template) (BatchResult, error) {
	res := BatchResult{Created: make([]calendar.Record, 0, len(templates))}

	for _, tmpl := range templates {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		b := fromTemplate(tmpl)
		err := r.db.WithContext(ctx).Create(&b).Error
		switch {
		case err == nil:
			res.Created = append(res.Created, toRecord(b))
		case isDuplicateKey(err):
			res.Duplicates = append(res.Duplicates, tmpl.Key())
		default:
			if res.Failures == nil {
				res.Failures = make(map[calendar.SlotKey]error)
			}
			res.Failures[tmpl.Key()] = err
		}
	}

	return res, nil
}

func (r *GormBookingRepository) Update(ctx context.Context, id string, tmpl calendar.Template) error {
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"description": tmpl.Description,
			"client_name": tmpl.ClientName,
			"address":     tmpl.Address,
			"recurrence":  string(recurrenceOrOnce(tmpl.Recurrence)),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return calendar.ErrNotFound
	}
	return nil
}

func (r *GormBookingRepository) DeleteBySlot(ctx context.Context, key calendar.SlotKey) (*calendar.Record, error) {
	var deleted *calendar.Record

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b model.Booking
		err := tx.First(&b, "booking_date = ? AND time_slot = ?", sqlDate(key.Date), string(key.Slot)).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&model.Booking{}, "id = ?", b.ID).Error; err != nil {
			return err
		}
		rec := toRecord(b)
		deleted = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *GormBookingRepository) DeleteBefore(ctx context.Context, before calendar.Date) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("booking_date < ?", sqlDate(before)).
		Delete(&model.Booking{})
	return res.RowsAffected, res.Error
}
