package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/Leganyst/cleaning-calendar/internal/calendar"
	"github.com/Leganyst/cleaning-calendar/internal/utils"
)

const (
	ProductID    = "-//Leganyst//cleaning-calendar//ES"
	CalendarName = "Turnos de limpieza"
)

// Build собирает календарь: одно событие на весь день на каждую запись.
// stamp уходит в DTSTAMP всех событий.
func Build(records []calendar.Record, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName(CalendarName)

	for _, rec := range records {
		ev := cal.AddEvent(rec.ID)
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(rec.Date.Time())
		ev.SetAllDayEndAt(rec.Date.AddDays(1).Time())
		ev.SetSummary(Summary(rec))
		ev.SetDescription(rec.Description)
		ev.SetLocation(rec.Address)
	}
	return cal
}

// Summary — заголовок события: "Mañana · Sarah Johnson".
func Summary(rec calendar.Record) string {
	return utils.SlotLabel(rec.TimeSlot) + " · " + rec.ClientName
}

// Export пишет календарь в формате iCalendar.
func Export(w io.Writer, records []calendar.Record, stamp time.Time) error {
	_, err := io.WriteString(w, Build(records, stamp).Serialize())
	return err
}
