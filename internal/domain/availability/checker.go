package availability

import (
	"context"
	"time"

	"github.com/Spok95/parkaro/internal/domain/locations"
)

// Window — занятый интервал на месте [Start, End).
type Window struct {
	BookingID int64
	SlotID    int64
	Start     time.Time
	End       time.Time
}

// Overlaps — пересечение полуинтервалов, касание границ конфликтом не считается.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// IsAvailable — свободно ли место на [start, end) с учётом уже подтверждённых броней.
// Бронь excludeID (например, продлеваемая) не учитывается; 0 — не исключать ничего.
func IsAvailable(existing []Window, start, end time.Time, excludeID int64) bool {
	for _, w := range existing {
		if excludeID != 0 && w.BookingID == excludeID {
			continue
		}
		if Overlaps(w.Start, w.End, start, end) {
			return false
		}
	}
	return true
}

// WindowSource — откуда Checker берёт подтверждённые брони места. storage.Tx подходит.
type WindowSource interface {
	ConfirmedWindows(ctx context.Context, slotID int64, from, to time.Time) ([]Window, error)
}

// Checker загружает окна в той же транзакции, что и пишет, и применяет IsAvailable.
type Checker struct{}

func (Checker) IsAvailable(ctx context.Context, src WindowSource, slotID int64, start, end time.Time, excludeID int64) (bool, error) {
	existing, err := src.ConfirmedWindows(ctx, slotID, start, end)
	if err != nil {
		return false, err
	}
	return IsAvailable(existing, start, end, excludeID), nil
}

// Conflicts возвращает все окна, мешающие [start, end).
func Conflicts(existing []Window, start, end time.Time, excludeID int64) []Window {
	var out []Window
	for _, w := range existing {
		if excludeID != 0 && w.BookingID == excludeID {
			continue
		}
		if Overlaps(w.Start, w.End, start, end) {
			out = append(out, w)
		}
	}
	return out
}

// LiveStatus — состояние места для витрины в момент now.
// Для допуска брони не используется.
func LiveStatus(slot locations.Slot, maintenance []locations.MaintenanceLog, active []Window, now time.Time) locations.SlotStatus {
	if slot.Status.Blocked() {
		return slot.Status
	}
	for _, m := range maintenance {
		if m.SlotID == slot.ID && m.Covers(now) {
			return locations.SlotMaintenance
		}
	}
	for _, w := range active {
		if w.SlotID == slot.ID && !w.Start.After(now) && !w.End.Before(now) {
			return locations.SlotBooked
		}
	}
	return locations.SlotAvailable
}
