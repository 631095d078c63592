// Package form drives one guest's booking form: dates, guest details, the
// mobile-money payment and the final submission.
package form

import (
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
)

type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseDatesEntered         Phase = "dates_entered"
	PhasePaymentInitiated     Phase = "payment_initiated"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseConfirmed            Phase = "confirmed"
	PhaseSubmitted            Phase = "submitted"
	PhaseFailed               Phase = "failed"
)

// State is everything the guest sees. It is a value: Apply returns a new one.
type State struct {
	Phase         Phase                 `json:"phase"`
	ListingID     string                `json:"listingId,omitempty"`
	NightlyRate   float64               `json:"nightlyRate"`
	Draft         domain.BookingDraft   `json:"draft"`
	Payment       domain.PaymentAttempt `json:"payment"`
	Submitting    bool                  `json:"submitting"`
	InvertedRange bool                  `json:"invertedRange,omitempty"`
	Message       string                `json:"message,omitempty"`
	LastBookingID string                `json:"lastBookingId,omitempty"`
}

func NewState(listingID string, nightlyRate float64) State {
	return State{
		Phase:       PhaseIdle,
		ListingID:   listingID,
		NightlyRate: nightlyRate,
		Draft:       domain.NewBookingDraft(),
		Payment:     domain.NewPaymentAttempt(),
	}
}

// CanPay reports whether the pay action is enabled.
func (s State) CanPay() bool {
	switch s.Phase {
	case PhaseIdle, PhaseDatesEntered, PhaseFailed:
		return s.Draft.Nights > 0
	}
	return false
}

// CanSubmit reports whether the submit action is enabled. Only a confirmed
// payment with a receipt unlocks it.
func (s State) CanSubmit() bool {
	return s.Phase == PhaseConfirmed && s.Payment.Confirmed() && !s.Submitting
}

func (s State) stayEditable() bool {
	switch s.Phase {
	case PhaseIdle, PhaseDatesEntered, PhaseFailed, PhaseSubmitted:
		return !s.Submitting
	}
	return false
}

// View is the JSON shape served to clients.
type View struct {
	ID string `json:"id"`
	State
	CanPay    bool      `json:"canPay"`
	CanSubmit bool      `json:"canSubmit"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewView(id string, s State, updatedAt time.Time) View {
	return View{ID: id, State: s, CanPay: s.CanPay(), CanSubmit: s.CanSubmit(), UpdatedAt: updatedAt}
}
