package appointments

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Appointment is a booked coaching session.
type Appointment struct {
	ID          string    `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	SessionType string    `json:"sessionType"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Schedule returns the appointment's date and time slot.
func (a Appointment) Schedule() Schedule {
	return Schedule{Date: a.Date, Time: a.Time}
}

// Schedule is a date (YYYY-MM-DD) and wall-clock time (HH:MM) pair.
type Schedule struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (s Schedule) String() string {
	return fmt.Sprintf("%s %s", s.Date, s.Time)
}

// Change captures an appointment before and after a mutation.
type Change struct {
	Before Appointment
	After  Appointment
}

// BookRequest creates a pending appointment.
type BookRequest struct {
	FullName    string `json:"fullName" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	SessionType string `json:"sessionType" validate:"required,max=100"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"required,clocktime"`
}

// RescheduleRequest moves an appointment to a new slot.
type RescheduleRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required,uuid"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Time          string `json:"time" validate:"required,clocktime"`
	// Actor identifies the admin who made the change.
	Actor string `json:"-"`
}

// CancelRequest cancels an appointment. Appointments are never deleted.
type CancelRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required,uuid"`
	Actor         string `json:"-"`
}

// Stats holds appointment counts per status.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
}
