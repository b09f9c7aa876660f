package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trip is a ride offered by a driver.
type Trip struct {
	ID             uuid.UUID `json:"id"`
	DriverID       uuid.UUID `json:"driver_id"`
	Departure      string    `json:"departure"`
	Arrival        string    `json:"arrival"`
	DepartsAt      time.Time `json:"departs_at"`
	SeatsTotal     int       `json:"seats_total"`
	SeatsAvailable int       `json:"seats_available"`
	PricePerSeat   float64   `json:"price_per_seat"`
	CreatedAt      time.Time `json:"created_at"`
	// Joined fields
	DriverName   string  `json:"driver_name,omitempty"`
	DriverRating float64 `json:"driver_rating,omitempty"`
}

type TripFilter struct {
	Departure string
	Arrival   string
	// Date restricts to trips departing that calendar day (UTC) when non-zero.
	Date  time.Time
	After time.Time
}

const (
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

type Reservation struct {
	ID          uuid.UUID `json:"id"`
	TripID      uuid.UUID `json:"trip_id"`
	PassengerID uuid.UUID `json:"passenger_id"`
	Seats       int       `json:"seats"`
	TotalPrice  float64   `json:"total_price"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	// Joined fields
	DriverID uuid.UUID `json:"driver_id"`
}

type Review struct {
	ID            uuid.UUID `json:"id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	DriverID      uuid.UUID `json:"driver_id"`
	PassengerID   uuid.UUID `json:"passenger_id"`
	Rating        int       `json:"rating"`
	Comment       *string   `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DriverRating is the recomputed average over all reviews of a driver.
type DriverRating struct {
	DriverID uuid.UUID `json:"driver_id"`
	Average  float64   `json:"average"`
	Count    int       `json:"count"`
}
