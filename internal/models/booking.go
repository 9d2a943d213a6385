package models

import "time"

type Booking struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	BikeID       string    `json:"bike_id"`
	ChasisNumber string    `json:"chasis_number"`
	Description  string    `json:"description"`
	BikeNumber   string    `json:"bike_number"`
	Address      string    `json:"address"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Total        float64   `json:"total"`
	Status       string    `json:"status"` // pending, completed, canceled
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int64     `json:"version"`
}

// IsTerminal reports whether the booking left the pending state.
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCompleted || b.Status == StatusCanceled
}

// BookingDetails is a booking expanded with its bike and owner.
type BookingDetails struct {
	Booking
	Bike *Bike        `json:"bike,omitempty"`
	User *UserSummary `json:"user,omitempty"`
}

// BookingRequest carries the client payload of a new booking.
// Date may be a plain date or a full ISO datetime; only the part before 'T' is used.
type BookingRequest struct {
	BikeID       string   `json:"bikeId"`
	ChasisNumber string   `json:"bikeChasisNumber"`
	Description  string   `json:"bikeDescription"`
	Date         string   `json:"bookingDate"`
	Time         string   `json:"bookingTime"`
	Total        *float64 `json:"total"`
	BikeNumber   string   `json:"bikeNumber"`
	Address      string   `json:"bookingAddress"`
}
