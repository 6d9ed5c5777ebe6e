package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Слот в пределах дня.
type TimeSlot string

const (
	TimeSlotMorning   TimeSlot = "morning"
	TimeSlotAfternoon TimeSlot = "afternoon"
)

// bookings
//
// Одна запись на пару (date, time_slot): уникальный индекс — последний
// арбитр при одновременных заявках на один слот.
type Booking struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	// Чистая дата без времени — datatypes.Date
	Date     datatypes.Date `gorm:"column:booking_date;type:date;not null;uniqueIndex:idx_bookings_slot,priority:1"`
	TimeSlot TimeSlot       `gorm:"type:varchar(16);not null;uniqueIndex:idx_bookings_slot,priority:2"`

	Description string `gorm:"type:text;not null"`
	ClientName  string `gorm:"type:varchar(255);not null"`
	Address     string `gorm:"type:text;not null"`

	// С какой периодичностью запись была создана. На саму запись не влияет.
	Recurrence string `gorm:"type:varchar(16);not null;default:'once'"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate выдаёт идентификатор на стороне приложения: gen_random_uuid()
// есть только в Postgres.
func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
