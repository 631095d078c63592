package form

import (
	"errors"
	"strings"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/pricing"
)

const (
	msgPaymentConfirmed = "payment confirmed"
	msgBookingConfirmed = "booking confirmed"
	msgMissingReceipt   = "payment confirmation did not include a receipt number"
	msgPaymentFailed    = "payment failed"
)

// Apply is the transition function of the form. It never performs I/O; the
// returned Command, if any, describes the I/O to run next. Events that do not
// belong to the current payment attempt return the state unchanged.
func Apply(s State, ev Event) (State, Command, error) {
	switch e := ev.(type) {
	case StayChanged:
		return applyStay(s, e)
	case GuestChanged:
		if s.Submitting {
			return s, nil, domain.ErrSubmissionInFlight
		}
		s.Draft.Guest = e.Guest
		return s, nil, nil
	case PayRequested:
		return applyPay(s, e)
	case InitiationSucceeded:
		return applyInitiated(s, e)
	case InitiationFailed:
		if s.Payment.ID != e.AttemptID || s.Payment.Status != domain.PaymentInitiating {
			return s, nil, nil
		}
		return fail(s, initiationReason(e.Err)), nil, nil
	case PaymentResult:
		return applyResult(s, e.Event)
	case ConfirmationTimedOut:
		if s.Payment.ID != e.AttemptID || !s.Payment.InFlight() {
			return s, nil, nil
		}
		return fail(s, domain.ConfirmationTimeout{AttemptID: e.AttemptID}.Error()), nil, nil
	case SubmitRequested:
		return applySubmit(s)
	case SubmitSucceeded:
		if !s.Submitting {
			return s, nil, nil
		}
		next := NewState(s.ListingID, s.NightlyRate)
		next.Phase = PhaseSubmitted
		next.Message = msgBookingConfirmed
		if e.Booking != nil {
			next.LastBookingID = e.Booking.ID
		}
		return next, nil, nil
	case SubmitFailed:
		if !s.Submitting {
			return s, nil, nil
		}
		s.Submitting = false
		s.Message = submitReason(e.Err)
		return s, nil, nil
	}
	return s, nil, nil
}

func applyStay(s State, e StayChanged) (State, Command, error) {
	if !s.stayEditable() {
		if s.Submitting {
			return s, nil, domain.ErrSubmissionInFlight
		}
		return s, nil, domain.ErrPaymentInProgress
	}
	if e.GuestCount < 1 {
		return s, nil, domain.ValidationError{Field: "guestCount", Msg: "must be at least 1"}
	}

	if s.Phase == PhaseFailed || s.Phase == PhaseSubmitted {
		s.Payment = domain.NewPaymentAttempt()
		s.Message = ""
	}

	s.Draft.CheckInDate = e.CheckIn
	s.Draft.CheckOutDate = e.CheckOut
	s.Draft.GuestCount = e.GuestCount
	s = recompute(s)

	if s.Draft.CheckInDate.IsZero() || s.Draft.CheckOutDate.IsZero() {
		s.Phase = PhaseIdle
	} else {
		s.Phase = PhaseDatesEntered
	}
	return s, nil, nil
}

func recompute(s State) State {
	q := pricing.Calculate(s.Draft.CheckInDate, s.Draft.CheckOutDate, s.NightlyRate)
	s.Draft.Nights = q.Nights
	s.Draft.TotalCost = q.TotalCost
	s.InvertedRange = q.Inverted
	return s
}

func applyPay(s State, e PayRequested) (State, Command, error) {
	switch {
	case s.Submitting:
		return s, nil, domain.ErrSubmissionInFlight
	case s.Payment.InFlight():
		return s, nil, domain.ErrPaymentInProgress
	case s.Phase == PhaseConfirmed:
		return s, nil, domain.ConflictError{Resource: "payment", Msg: "payment already confirmed"}
	}

	phone := strings.TrimSpace(e.PhoneNumber)
	if phone == "" {
		return s, nil, domain.ValidationError{Field: "phoneNumber"}
	}
	if s.Draft.Nights <= 0 {
		return s, nil, domain.ValidationError{Field: "checkOutDate", Msg: "select check-in and check-out dates first"}
	}

	s.Payment = domain.PaymentAttempt{
		ID:          e.AttemptID,
		PhoneNumber: phone,
		Amount:      s.Draft.TotalCost,
		Status:      domain.PaymentInitiating,
	}
	s.Phase = PhasePaymentInitiated
	s.Message = ""
	guest := s.Draft.Guest.Trimmed()
	return s, InitiatePayment{
		AttemptID:   e.AttemptID,
		PhoneNumber: phone,
		Amount:      s.Draft.TotalCost,
		Email:       guest.Email,
		GuestName:   strings.TrimSpace(guest.FirstName + " " + guest.LastName),
	}, nil
}

func applyInitiated(s State, e InitiationSucceeded) (State, Command, error) {
	if s.Payment.ID != e.AttemptID {
		return s, nil, nil
	}
	if e.CheckoutReference != "" && s.Payment.CheckoutReference == "" {
		s.Payment.CheckoutReference = e.CheckoutReference
	}
	// The confirmation can beat the gateway response; only an attempt still
	// initiating moves on.
	if s.Payment.Status != domain.PaymentInitiating {
		return s, nil, nil
	}
	s.Payment.Status = domain.PaymentAwaitingConfirmation
	s.Phase = PhaseAwaitingConfirmation
	return s, ArmConfirmationTimer{AttemptID: e.AttemptID}, nil
}

func applyResult(s State, ev domain.PaymentEvent) (State, Command, error) {
	if !s.Payment.InFlight() || !matchesAttempt(s.Payment, ev) {
		return s, nil, nil
	}

	switch ev.Status {
	case domain.PaymentEventSuccess:
		receipt := strings.TrimSpace(ev.ReceiptNumber)
		if receipt == "" {
			return fail(s, msgMissingReceipt), nil, nil
		}
		s.Payment.Status = domain.PaymentConfirmed
		s.Payment.ReceiptNumber = receipt
		s.Payment.Reason = ""
		s.Phase = PhaseConfirmed
		s.Message = msgPaymentConfirmed
		return s, nil, nil
	case domain.PaymentEventFailure:
		reason := ev.Reason
		if reason == "" {
			reason = msgPaymentFailed
		}
		return fail(s, reason), nil, nil
	}
	return s, nil, nil
}

// matchesAttempt correlates by attempt ID, falling back to the checkout
// reference for gateways that drop the callback query.
func matchesAttempt(a domain.PaymentAttempt, ev domain.PaymentEvent) bool {
	if ev.AttemptID != "" {
		return ev.AttemptID == a.ID
	}
	return ev.CheckoutReference != "" && ev.CheckoutReference == a.CheckoutReference
}

func applySubmit(s State) (State, Command, error) {
	if s.Submitting {
		return s, nil, domain.ErrSubmissionInFlight
	}
	if field := s.Draft.Guest.Trimmed().MissingField(); field != "" {
		return s, nil, domain.ValidationError{Field: field}
	}
	if s.Phase != PhaseConfirmed || !s.Payment.Confirmed() {
		return s, nil, domain.ValidationError{Field: "payment", Msg: "payment is not confirmed", Err: domain.ErrPaymentNotConfirmed}
	}

	s.Submitting = true
	s.Message = ""
	return s, SubmitBooking{ListingID: s.ListingID, Draft: s.Draft, Attempt: s.Payment}, nil
}

func fail(s State, reason string) State {
	s.Payment.Status = domain.PaymentFailed
	s.Payment.Reason = reason
	s.Payment.ReceiptNumber = ""
	s.Phase = PhaseFailed
	s.Message = reason
	return s
}

func initiationReason(err error) string {
	var gwErr domain.GatewayError
	switch {
	case err == nil:
		return msgPaymentFailed
	case errors.As(err, &gwErr) && gwErr.Reason != "":
		return gwErr.Reason
	case domain.IsNetwork(err):
		return "could not reach the payment service, please try again"
	}
	return err.Error()
}

func submitReason(err error) string {
	switch {
	case err == nil:
		return "booking failed"
	case domain.IsNetwork(err):
		return "could not save the booking, please try again"
	}
	return err.Error()
}
