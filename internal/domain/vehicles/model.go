package vehicles

import "github.com/Spok95/parkaro/internal/domain/locations"

type Vehicle struct {
	ID        int64
	OwnerID   int64
	Number    string
	Type      locations.VehicleClass
	IsDefault bool
}
