package calendar

import "strings"

// Recurrence — инструкция на момент создания: во сколько записей развернуть
// заявку. Связи между получившимися записями не хранится.
type Recurrence string

const (
	RecurrenceOnce        Recurrence = "once"
	RecurrenceWeekly      Recurrence = "weekly"
	RecurrenceBiweekly    Recurrence = "biweekly"
	RecurrenceEvery3Weeks Recurrence = "every3weeks"
	RecurrenceMonthly     Recurrence = "monthly"
)

// Recurrences — все поддерживаемые виды повторения.
var Recurrences = []Recurrence{
	RecurrenceOnce,
	RecurrenceWeekly,
	RecurrenceBiweekly,
	RecurrenceEvery3Weeks,
	RecurrenceMonthly,
}

func (r Recurrence) IsValid() bool {
	for _, known := range Recurrences {
		if r == known {
			return true
		}
	}
	return false
}

// weekStep — шаг в неделях для недельных видов, 0 для остальных.
func (r Recurrence) weekStep() int {
	switch r {
	case RecurrenceWeekly:
		return 1
	case RecurrenceBiweekly:
		return 2
	case RecurrenceEvery3Weeks:
		return 3
	default:
		return 0
	}
}

// Template — заявка на бронирование без идентификатора.
type Template struct {
	Date        Date       `json:"date"`
	TimeSlot    TimeSlot   `json:"timeSlot"`
	Description string     `json:"description"`
	ClientName  string     `json:"clientName"`
	Address     string     `json:"address"`
	Recurrence  Recurrence `json:"recurrence,omitempty"`
}

func (t Template) Key() SlotKey {
	return SlotKey{Date: t.Date, Slot: t.TimeSlot}
}

// Normalize обрезает пробелы в текстовых полях и подставляет once,
// если повторение не указано.
func (t Template) Normalize() Template {
	t.Description = strings.TrimSpace(t.Description)
	t.ClientName = strings.TrimSpace(t.ClientName)
	t.Address = strings.TrimSpace(t.Address)
	if t.Recurrence == "" {
		t.Recurrence = RecurrenceOnce
	}
	return t
}

// Validate проверяет заявку целиком. Пустое повторение считается once.
func (t Template) Validate() error {
	if err := t.validateShape(); err != nil {
		return err
	}
	switch {
	case strings.TrimSpace(t.Description) == "":
		return &TemplateError{Field: "description", Reason: "must not be empty"}
	case strings.TrimSpace(t.ClientName) == "":
		return &TemplateError{Field: "clientName", Reason: "must not be empty"}
	case strings.TrimSpace(t.Address) == "":
		return &TemplateError{Field: "address", Reason: "must not be empty"}
	}
	return nil
}

// validateShape — то, без чего нельзя разворачивать повторения.
func (t Template) validateShape() error {
	if !t.Date.IsValid() {
		return &TemplateError{Field: "date", Reason: "not a valid calendar date: " + t.Date.String()}
	}
	if !t.TimeSlot.IsValid() {
		return &TemplateError{Field: "timeSlot", Reason: "unknown slot " + string(t.TimeSlot)}
	}
	if t.Recurrence != "" && !t.Recurrence.IsValid() {
		return &TemplateError{Field: "recurrence", Reason: "unknown recurrence " + string(t.Recurrence)}
	}
	return nil
}

// Record — сохранённая запись: заявка плюс стабильный идентификатор.
type Record struct {
	ID string `json:"id"`
	Template
}

// Update — план изменения существующей записи.
type Update struct {
	ID       string
	Template Template
}
