package calendar

import (
	"fmt"
	"sort"
)

// TimeSlot — половина дня, доступная для записи.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
)

func (s TimeSlot) IsValid() bool {
	return s == SlotMorning || s == SlotAfternoon
}

// order — утро раньше дня в пределах одной даты.
func (s TimeSlot) order() int {
	if s == SlotAfternoon {
		return 1
	}
	return 0
}

// ParseTimeSlot разбирает значение слота из запроса.
func ParseTimeSlot(s string) (TimeSlot, error) {
	slot := TimeSlot(s)
	if !slot.IsValid() {
		return "", fmt.Errorf("unknown time slot %q", s)
	}
	return slot, nil
}

// SlotKey однозначно определяет бронируемую единицу: дата + слот.
// На один SlotKey приходится не более одной записи.
type SlotKey struct {
	Date Date     `json:"date"`
	Slot TimeSlot `json:"timeSlot"`
}

func (k SlotKey) String() string {
	return k.Date.String() + "/" + string(k.Slot)
}

// Less — хронологический порядок ключей.
func (k SlotKey) Less(o SlotKey) bool {
	if c := k.Date.Compare(o.Date); c != 0 {
		return c < 0
	}
	return k.Slot.order() < o.Slot.order()
}

// Occupancy — снимок занятых слотов на момент планирования.
type Occupancy map[SlotKey]struct{}

func NewOccupancy(keys ...SlotKey) Occupancy {
	o := make(Occupancy, len(keys))
	for _, k := range keys {
		o.Add(k)
	}
	return o
}

func (o Occupancy) Add(k SlotKey) {
	o[k] = struct{}{}
}

func (o Occupancy) Has(k SlotKey) bool {
	_, ok := o[k]
	return ok
}

// Keys возвращает ключи в хронологическом порядке.
func (o Occupancy) Keys() []SlotKey {
	keys := make([]SlotKey, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
