package lifecycle

import (
	"errors"

	"github.com/Spok95/parkaro/internal/apperr"
	"github.com/Spok95/parkaro/internal/storage"
)

var (
	ErrLocationNotFound    = apperr.New(apperr.KindNotFound, "location not found")
	ErrLocationInactive    = apperr.New(apperr.KindNotFound, "location is not accepting bookings")
	ErrSlotNotFound        = apperr.New(apperr.KindNotFound, "slot not found")
	ErrVehicleNotFound     = apperr.New(apperr.KindNotFound, "vehicle not found")
	ErrBookingNotFound     = apperr.New(apperr.KindNotFound, "booking not found")
	ErrFineNotFound        = apperr.New(apperr.KindNotFound, "fine not found")
	ErrMaintenanceNotFound = apperr.New(apperr.KindNotFound, "open maintenance record not found")

	ErrBadWindow         = apperr.New(apperr.KindValidation, "exit time must be after entry time")
	ErrExitNotAfter      = apperr.New(apperr.KindValidation, "new exit time must be after the current exit time")
	ErrExitInPast        = apperr.New(apperr.KindValidation, "new exit time is in the past")
	ErrVehicleNotAllowed = apperr.New(apperr.KindValidation, "vehicle type is not allowed on this slot")
	ErrBadCode           = apperr.New(apperr.KindValidation, "unrecognised booking code")
	ErrBadSlotStatus     = apperr.New(apperr.KindValidation, "slot status must be AVAILABLE, MAINTENANCE or TEMP_BLOCKED")

	ErrSlotBlocked = apperr.New(apperr.KindConflict, "slot is blocked by the operator")
	ErrSlotTaken   = apperr.New(apperr.KindConflict, "slot is not available for the requested time")

	ErrNotConfirmed     = apperr.New(apperr.KindInvalidTransition, "booking is not confirmed")
	ErrAlreadyStarted   = apperr.New(apperr.KindInvalidTransition, "booking has already started")
	ErrNoEntry          = apperr.New(apperr.KindInvalidTransition, "entry has not been recorded")
	ErrAlreadyExited    = apperr.New(apperr.KindInvalidTransition, "exit has already been recorded")
	ErrAlreadyEntered   = apperr.New(apperr.KindInvalidTransition, "vehicle has already entered")
	ErrFinePaid         = apperr.New(apperr.KindInvalidTransition, "fine is already paid")
	ErrChangedMeanwhile = apperr.New(apperr.KindInvalidTransition, "booking was changed by another request")

	ErrPaymentDeclined = apperr.New(apperr.KindPaymentDeclined, "payment was declined")
	ErrForbidden       = apperr.New(apperr.KindForbidden, "operation not allowed")
)

// or подменяет storage.ErrNotFound доменной ошибкой.
func or(err, notFound error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return notFound
	}
	return err
}

// translate переводит ошибки гонок хранилища в доменные.
func translate(err error) error {
	switch {
	case errors.Is(err, storage.ErrOverlap):
		return ErrSlotTaken
	case errors.Is(err, storage.ErrStale):
		return ErrChangedMeanwhile
	}
	return err
}
