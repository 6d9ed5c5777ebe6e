package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/cleaning-calendar/internal/calendar"
	"github.com/Leganyst/cleaning-calendar/internal/model"
)

func sqlDate(d calendar.Date) datatypes.Date {
	return datatypes.Date(d.Time())
}

func calendarDate(d datatypes.Date) calendar.Date {
	return calendar.DateOf(time.Time(d))
}

func slotKeyOf(b model.Booking) calendar.SlotKey {
	return calendar.SlotKey{Date: calendarDate(b.Date), Slot: calendar.TimeSlot(b.TimeSlot)}
}

func toRecord(b model.Booking) calendar.Record {
	return calendar.Record{
		ID: b.ID.String(),
		Template: calendar.Template{
			Date:        calendarDate(b.Date),
			TimeSlot:    calendar.TimeSlot(b.TimeSlot),
			Description: b.Description,
			ClientName:  b.ClientName,
			Address:     b.Address,
			Recurrence:  calendar.Recurrence(b.Recurrence),
		},
	}
}

func fromTemplate(t calendar.Template) model.Booking {
	return model.Booking{
		Date:        sqlDate(t.Date),
		TimeSlot:    model.TimeSlot(t.TimeSlot),
		Description: t.Description,
		ClientName:  t.ClientName,
		Address:     t.Address,
		Recurrence:  string(recurrenceOrOnce(t.Recurrence)),
	}
}

func recurrenceOrOnce(r calendar.Recurrence) calendar.Recurrence {
	if r == "" {
		return calendar.RecurrenceOnce
	}
	return r
}

// isDuplicateKey узнаёт нарушение уникального индекса. С TranslateError GORM
// отдаёт gorm.ErrDuplicatedKey; текст драйвера проверяется на случай, если
// перевод ошибок выключен.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
