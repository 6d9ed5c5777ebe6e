package calendar

// Plan — результат разрешения конфликтов: что создать, что обновить и
// какие слоты отклонены. Сам план побочных эффектов не несёт.
type Plan struct {
	ToCreate []Template
	ToUpdate *Update
	Rejected []SlotKey
}

// IsUpdate сообщает, что заявка изменяет уже существующую запись.
func (p Plan) IsUpdate() bool {
	return p.ToUpdate != nil
}

// Outcome классифицирует план: nil — всё принято, *ConflictError с
// ErrConflictAll — ничего не создать, с ErrPartialConflict — предупреждение.
func (p Plan) Outcome() error {
	return conflictOutcome(len(p.ToCreate) > 0 || p.IsUpdate(), p.Rejected)
}

// Resolve раскладывает кандидатов (в хронологическом порядке, первый —
// исходная заявка) по занятости.
//
// Если exact не nil, значит слот исходной заявки уже занят этой записью:
// вся операция становится обновлением одной записи, повторение игнорируется.
// Иначе каждый кандидат, чей SlotKey есть в occupied, попадает в Rejected,
// остальные — в ToCreate в исходном порядке.
func Resolve(candidates []Template, occupied Occupancy, exact *Record) Plan {
	if exact != nil {
		tmpl := exact.Template
		if len(candidates) > 0 {
			tmpl = candidates[0]
		}
		// обновление не меняет слот записи
		tmpl.Date = exact.Date
		tmpl.TimeSlot = exact.TimeSlot
		return Plan{ToUpdate: &Update{ID: exact.ID, Template: tmpl}}
	}

	plan := Plan{ToCreate: make([]Template, 0, len(candidates))}
	seen := make(Occupancy, len(candidates))
	for _, c := range candidates {
		key := c.Key()
		if occupied.Has(key) || seen.Has(key) {
			plan.Rejected = append(plan.Rejected, key)
			continue
		}
		seen.Add(key)
		plan.ToCreate = append(plan.ToCreate, c)
	}
	return plan
}

func conflictOutcome(accepted bool, rejected []SlotKey) error {
	if len(rejected) == 0 {
		return nil
	}
	kind := ErrPartialConflict
	if !accepted {
		kind = ErrConflictAll
	}
	return &ConflictError{Kind: kind, Rejected: append([]SlotKey(nil), rejected...)}
}

// CommitOutcome — то же, что Plan.Outcome, но по факту записи: сколько
// записей реально создано и какие слоты отверг хранилищный индекс.
func CommitOutcome(created int, updated bool, rejected []SlotKey) error {
	return conflictOutcome(created > 0 || updated, rejected)
}
