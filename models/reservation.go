package models

import "time"

// Reservation is the payload forwarded to the provider's create-reservation call.
type Reservation struct {
	ServiceID int       `json:"serviceId"`
	WorkerID  int       `json:"workerId"`
	Date      time.Time `json:"date"`
	Time      string    `json:"time"` // HH:MM
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Note      string    `json:"note,omitempty"`
}

// ReservationResult is what the provider reports back after a booking.
type ReservationResult struct {
	ReservationID string `json:"reservationId,omitempty"`
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
}

// BookingRequest is a staff call-back request handed off when the caller prefers
// not to book directly. It is never kept server-side beyond the hand-off queue.
type BookingRequest struct {
	ID         string    `json:"id"`
	Service    string    `json:"service"`
	Location   string    `json:"location,omitempty"`
	Date       string    `json:"date,omitempty"`
	Time       string    `json:"time,omitempty"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email,omitempty"`
	Note       string    `json:"note,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}
