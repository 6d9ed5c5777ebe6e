package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Тип события аудита.
type EventType string

const (
	EventTypeBookingCreated  EventType = "booking_created"
	EventTypeBookingUpdated  EventType = "booking_updated"
	EventTypeBookingDeleted  EventType = "booking_deleted"
	EventTypeBookingRejected EventType = "booking_rejected"
	EventTypeBookingsPurged  EventType = "bookings_purged"
)

// booking_events — журнал изменений календаря.
// Записи серии между собой не связаны, поэтому журнал — единственное место,
// где видно, какие слоты появились из одной заявки (общий SubmissionID).
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;index"`

	SubmissionID *uuid.UUID `gorm:"type:uuid;index"`
	BookingID    *uuid.UUID `gorm:"type:uuid;index"`

	Date     *datatypes.Date `gorm:"column:booking_date;type:date"`
	TimeSlot TimeSlot        `gorm:"type:varchar(16)"`

	Details datatypes.JSON
}

func (Event) TableName() string {
	return "booking_events"
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
