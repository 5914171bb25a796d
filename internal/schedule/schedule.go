package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSlot covers every way a (date, slot) pair can be structurally
// wrong: bad label format, closed day, outside working hours, inside lunch,
// off the slot grid, or already in the past. It never means "taken by
// someone else" - that is the booking layer's concern.
var ErrInvalidSlot = errors.New("invalid slot")

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// Minute is a minute-of-day offset from midnight.
type Minute int

func (m Minute) String() string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Config describes a clinic's working day. It is passed in explicitly so
// alternate schedules can be exercised without touching globals.
type Config struct {
	WorkStart    Minute
	WorkEnd      Minute
	LunchStart   Minute
	LunchEnd     Minute
	SlotInterval time.Duration
	SkipWeekends bool
	Holidays     map[string]bool // keyed by DateFormat
}

// Default returns the clinic's standard schedule: 10:00-18:00, lunch
// 13:00-14:00, 30 minute slots, closed on weekends.
func Default() Config {
	return Config{
		WorkStart:    10 * 60,
		WorkEnd:      18 * 60,
		LunchStart:   13 * 60,
		LunchEnd:     14 * 60,
		SlotInterval: 30 * time.Minute,
		SkipWeekends: true,
	}
}

func (c Config) step() Minute {
	return Minute(c.SlotInterval / time.Minute)
}

// WorkingDay reports whether any slots exist on the given date.
func (c Config) WorkingDay(date time.Time) bool {
	if c.SkipWeekends {
		switch date.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
	}
	return !c.Holidays[date.Format(DateFormat)]
}

// DailySlots returns the ordered HH:MM labels of every bookable slot on the
// given date: work start to work end stepped by the slot interval, skipping
// the lunch window. Closed days yield an empty list.
func (c Config) DailySlots(date time.Time) []string {
	if !c.WorkingDay(date) {
		return nil
	}

	var slots []string
	for cur := c.WorkStart; cur < c.WorkEnd; cur += c.step() {
		if cur >= c.LunchStart && cur < c.LunchEnd {
			continue
		}
		slots = append(slots, cur.String())
	}
	return slots
}

// ParseSlot parses a strict HH:MM label into a minute-of-day.
func ParseSlot(label string) (Minute, error) {
	parts := strings.Split(label, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q is not an HH:MM label", ErrInvalidSlot, label)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q is not an HH:MM label", ErrInvalidSlot, label)
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil || min < 0 || min > 59 {
		return 0, fmt.Errorf("%w: %q is not an HH:MM label", ErrInvalidSlot, label)
	}

	return Minute(hour*60 + min), nil
}

// ValidateSlot checks that label names a real slot on date and that the slot
// still lies in the future relative to now. It never consults the booking
// ledger, so callers can tell "structurally invalid" apart from "taken".
func (c Config) ValidateSlot(label string, date, now time.Time) (Minute, error) {
	m, err := ParseSlot(label)
	if err != nil {
		return 0, err
	}

	if !c.WorkingDay(date) {
		return 0, fmt.Errorf("%w: %s is not a working day", ErrInvalidSlot, date.Format(DateFormat))
	}

	switch {
	case m < c.WorkStart || m >= c.WorkEnd:
		return 0, fmt.Errorf("%w: %s is outside working hours", ErrInvalidSlot, m)
	case m >= c.LunchStart && m < c.LunchEnd:
		return 0, fmt.Errorf("%w: %s falls in the lunch break", ErrInvalidSlot, m)
	case (m-c.WorkStart)%c.step() != 0:
		return 0, fmt.Errorf("%w: %s is not aligned to the %s grid", ErrInvalidSlot, m, c.SlotInterval)
	}

	today := now.Format(DateFormat)
	target := date.Format(DateFormat)
	if target < today {
		return 0, fmt.Errorf("%w: %s is in the past", ErrInvalidSlot, target)
	}
	if target == today && m <= MinuteOf(now) {
		return 0, fmt.Errorf("%w: %s has already passed today", ErrInvalidSlot, m)
	}

	return m, nil
}

// MinuteOf returns t's minute-of-day in its own location.
func MinuteOf(t time.Time) Minute {
	return Minute(t.Hour()*60 + t.Minute())
}
