package form

import (
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
)

// Event is the single inbound message type of the form. User actions,
// gateway responses, confirmations and timers all arrive as an Event.
type Event interface {
	event()
}

type StayChanged struct {
	CheckIn    time.Time
	CheckOut   time.Time
	GuestCount int
}

type GuestChanged struct {
	Guest domain.GuestDetails
}

type PayRequested struct {
	PhoneNumber string
	AttemptID   string
}

type InitiationSucceeded struct {
	AttemptID         string
	CheckoutReference string
}

type InitiationFailed struct {
	AttemptID string
	Err       error
}

// PaymentResult wraps a terminal event received on the session's channel.
type PaymentResult struct {
	Event domain.PaymentEvent
}

type ConfirmationTimedOut struct {
	AttemptID string
}

type SubmitRequested struct{}

type SubmitSucceeded struct {
	Booking *domain.Booking
}

type SubmitFailed struct {
	Err error
}

func (StayChanged) event()          {}
func (GuestChanged) event()         {}
func (PayRequested) event()         {}
func (InitiationSucceeded) event()  {}
func (InitiationFailed) event()     {}
func (PaymentResult) event()        {}
func (ConfirmationTimedOut) event() {}
func (SubmitRequested) event()      {}
func (SubmitSucceeded) event()      {}
func (SubmitFailed) event()         {}

// Command is I/O the actor must perform after a transition.
type Command interface {
	command()
}

// InitiatePayment carries the guest contact known at pay time so a failed
// payment can be reported to them.
type InitiatePayment struct {
	AttemptID   string
	PhoneNumber string
	Amount      float64
	Email       string
	GuestName   string
}

type ArmConfirmationTimer struct {
	AttemptID string
}

type SubmitBooking struct {
	ListingID string
	Draft     domain.BookingDraft
	Attempt   domain.PaymentAttempt
}

func (InitiatePayment) command()      {}
func (ArmConfirmationTimer) command() {}
func (SubmitBooking) command()        {}
