package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/Leganyst/cleaning-calendar/internal/model"
)

type captureWriter struct {
	lines []string
}

func (w *captureWriter) Printf(format string, args ...any) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func TestGormLogger_SkipsRecordNotFound(t *testing.T) {
	gdb, err := NewTestDB()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	w := &captureWriter{}
	quiet := gdb.Session(&gorm.Session{Logger: NewGormLogger(w)})

	var b model.Booking
	err = quiet.First(&b, "booking_date = ? AND time_slot = ?", "2024-12-15", "morning").Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if len(w.lines) != 0 {
		t.Fatalf("free slot lookup must not be logged, got %q", w.lines)
	}

	if err := quiet.Exec("SELECT * FROM no_such_table").Error; err == nil {
		t.Fatalf("expected error for missing table")
	}
	if len(w.lines) == 0 || !strings.Contains(strings.Join(w.lines, "\n"), "no_such_table") {
		t.Fatalf("expected real errors logged, got %q", w.lines)
	}
}
