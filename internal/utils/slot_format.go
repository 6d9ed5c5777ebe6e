package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/Leganyst/cleaning-calendar/internal/calendar"
)

var esWeekdays = map[time.Weekday]string{
	time.Monday:    "lunes",
	time.Tuesday:   "martes",
	time.Wednesday: "miércoles",
	time.Thursday:  "jueves",
	time.Friday:    "viernes",
	time.Saturday:  "sábado",
	time.Sunday:    "domingo",
}

// SlotLabel — название слота, как его видит клиент.
func SlotLabel(s calendar.TimeSlot) string {
	switch s {
	case calendar.SlotMorning:
		return "Mañana"
	case calendar.SlotAfternoon:
		return "Tarde"
	default:
		return string(s)
	}
}

// FormatSlotKey форматирует слот в человекочитаемую строку:
// "domingo, 15.12.2024, Turno de Mañana".
func FormatSlotKey(k calendar.SlotKey) string {
	t := k.Date.Time()
	// Дата в формате ДД.ММ.ГГГГ
	return fmt.Sprintf("%s, %s, Turno de %s", esWeekdays[t.Weekday()], t.Format("02.01.2006"), SlotLabel(k.Slot))
}

// FormatRejected собирает текст предупреждения об отклонённых слотах.
// Пустая строка, если отклонённых нет.
func FormatRejected(keys []calendar.SlotKey) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, FormatSlotKey(k))
	}
	if len(keys) == 1 {
		return "Turno ocupado, no se reservó: " + parts[0]
	}
	return fmt.Sprintf("%d turnos ocupados, no se reservaron: %s", len(keys), strings.Join(parts, "; "))
}
