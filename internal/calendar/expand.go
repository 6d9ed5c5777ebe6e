package calendar

import (
	"fmt"

	"github.com/teambition/rrule-go"
)

// HorizonMonths — на сколько месяцев вперёд разворачиваются повторения.
const HorizonMonths = 6

// Horizon — последняя дата, которую может получить серия, начатая в start.
func Horizon(start Date) Date {
	return start.AddMonths(HorizonMonths)
}

// Expand разворачивает заявку в упорядоченный по дате список заявок,
// по одной на каждую дату серии. Остальные поля копируются как есть.
//
//   - once: ровно [t];
//   - weekly / biweekly / every3weeks: шаг 7 / 14 / 21 день;
//   - monthly: +1 месяц от даты начала с прижатием к последнему дню месяца.
//
// Серия начинается с t.Date включительно и заканчивается на Horizon
// включительно. Первый элемент — «основной» экземпляр.
func Expand(t Template) ([]Template, error) {
	if err := t.validateShape(); err != nil {
		return nil, err
	}

	recurrence := t.Recurrence
	if recurrence == "" {
		recurrence = RecurrenceOnce
	}
	if recurrence == RecurrenceOnce {
		return []Template{t}, nil
	}

	var dates []Date
	if step := recurrence.weekStep(); step > 0 {
		var err error
		dates, err = weeklyDates(t.Date, step)
		if err != nil {
			return nil, err
		}
	} else {
		dates = monthlyDates(t.Date)
	}

	out := make([]Template, 0, len(dates))
	for _, d := range dates {
		inst := t
		inst.Date = d
		out = append(out, inst)
	}
	return out, nil
}

// weeklyDates строит серию по правилу FREQ=WEEKLY;INTERVAL=step;UNTIL=horizon.
// UNTIL в RFC 5545 включительный, поэтому дата горизонта попадает в серию.
func weeklyDates(start Date, step int) ([]Date, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.WEEKLY,
		Interval: step,
		Dtstart:  start.Time(),
		Until:    Horizon(start).Time(),
	})
	if err != nil {
		return nil, fmt.Errorf("build weekly rule: %w", err)
	}

	occurrences := r.All()
	dates := make([]Date, 0, len(occurrences))
	for _, occ := range occurrences {
		dates = append(dates, DateOf(occ.UTC()))
	}
	return dates, nil
}

// monthlyDates считает каждый экземпляр от даты начала, а не от предыдущего:
// серия с 31-го попадает на последний день коротких месяцев и возвращается
// на 31-е в длинных.
func monthlyDates(start Date) []Date {
	horizon := Horizon(start)
	dates := make([]Date, 0, HorizonMonths+1)
	for i := 0; ; i++ {
		d := start.AddMonths(i)
		if d.After(horizon) {
			break
		}
		dates = append(dates, d)
	}
	return dates
}
