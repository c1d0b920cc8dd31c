package locations

import (
	"time"

	"github.com/shopspring/decimal"
)

type Location struct {
	ID         int64
	Name       string
	Address    string
	TotalSlots int
	HourlyRate decimal.Decimal
	DailyRate  decimal.Decimal
	Active     bool
	CreatedAt  time.Time
}

type SlotStatus string

const (
	SlotAvailable   SlotStatus = "AVAILABLE"
	SlotBooked      SlotStatus = "BOOKED"
	SlotMaintenance SlotStatus = "MAINTENANCE"
	SlotTempBlocked SlotStatus = "TEMP_BLOCKED"
)

// Blocked — административная блокировка, заданная вручную.
// AVAILABLE/BOOKED в колонке status ничего не значат: занятость считается по броням.
func (s SlotStatus) Blocked() bool {
	return s == SlotMaintenance || s == SlotTempBlocked
}

type VehicleClass string

const (
	Class2W  VehicleClass = "2W"
	Class3W  VehicleClass = "3W"
	Class4W  VehicleClass = "4W"
	ClassAll VehicleClass = "ALL"
)

type Slot struct {
	ID                 int64
	LocationID         int64
	Code               string
	Level              string
	Status             SlotStatus
	VehicleTypeAllowed VehicleClass
}

// Accepts проверяет, можно ли поставить машину данного класса на место.
func (s Slot) Accepts(class VehicleClass) bool {
	return s.VehicleTypeAllowed == ClassAll || s.VehicleTypeAllowed == class
}

type MaintenanceLog struct {
	ID     int64
	SlotID int64
	Start  time.Time
	End    *time.Time // nil — без даты окончания
	Reason string
}

// Covers — идёт ли обслуживание в момент at (границы включительно).
func (m MaintenanceLog) Covers(at time.Time) bool {
	if m.Start.After(at) {
		return false
	}
	return m.End == nil || !m.End.Before(at)
}
