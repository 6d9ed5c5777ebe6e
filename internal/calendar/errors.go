package calendar

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTemplate = errors.New("invalid booking template")
	ErrConflictAll     = errors.New("nothing could be booked: every requested slot is taken")
	ErrPartialConflict = errors.New("some requested slots are already taken")
	ErrStorageFailure  = errors.New("booking storage failure")
	ErrNotFound        = errors.New("booking not found")
)

// TemplateError описывает некорректное поле заявки.
type TemplateError struct {
	Field  string
	Reason string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidTemplate, e.Field, e.Reason)
}

func (e *TemplateError) Unwrap() error { return ErrInvalidTemplate }

// ConflictError перечисляет отклонённые слоты. Kind — ErrConflictAll
// или ErrPartialConflict.
type ConflictError struct {
	Kind     error
	Rejected []SlotKey
}

func (e *ConflictError) Error() string {
	keys := make([]string, 0, len(e.Rejected))
	for _, k := range e.Rejected {
		keys = append(keys, k.String())
	}
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(keys, ", "))
}

func (e *ConflictError) Unwrap() error { return e.Kind }

// StorageError — сбой хранилища. Автоматических повторов нет: перед
// повтором вызывающий обязан заново снять занятость.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorageFailure, e.Op, e.Err)
}

// Unwrap отдаёт и сам сбой, и ErrStorageFailure для errors.Is.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageFailure, e.Err}
}

// NewStorageError оборачивает err, если он есть.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
