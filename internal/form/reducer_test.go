package form

import (
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	june1 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	june4 = time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
)

func guest() domain.GuestDetails {
	return domain.GuestDetails{FirstName: "Amina", LastName: "Otieno", Email: "amina@example.com", Phone: "254712345678"}
}

func mustApply(t *testing.T, s State, ev Event) (State, Command) {
	t.Helper()
	next, cmd, err := Apply(s, ev)
	require.NoError(t, err)
	return next, cmd
}

func withDates(t *testing.T) State {
	t.Helper()
	s, _ := mustApply(t, NewState("l1", 100), StayChanged{CheckIn: june1, CheckOut: june4, GuestCount: 2})
	return s
}

func awaiting(t *testing.T, attemptID string) State {
	t.Helper()
	s := withDates(t)
	s, _ = mustApply(t, s, GuestChanged{Guest: guest()})
	s, _ = mustApply(t, s, PayRequested{PhoneNumber: "254712345678", AttemptID: attemptID})
	s, _ = mustApply(t, s, InitiationSucceeded{AttemptID: attemptID, CheckoutReference: "ws_CO_" + attemptID})
	return s
}

func confirmed(t *testing.T, attemptID string) State {
	t.Helper()
	s := awaiting(t, attemptID)
	s, _ = mustApply(t, s, PaymentResult{Event: domain.PaymentEvent{AttemptID: attemptID, Status: domain.PaymentEventSuccess, ReceiptNumber: "QK12AB"}})
	return s
}

func TestApply_StayChanged(t *testing.T) {
	tests := []struct {
		name       string
		ev         StayChanged
		wantPhase  Phase
		wantNights int
		wantCost   float64
		inverted   bool
	}{
		{name: "both dates", ev: StayChanged{CheckIn: june1, CheckOut: june4, GuestCount: 2}, wantPhase: PhaseDatesEntered, wantNights: 3, wantCost: 300},
		{name: "only check-in", ev: StayChanged{CheckIn: june1, GuestCount: 1}, wantPhase: PhaseIdle},
		{name: "inverted", ev: StayChanged{CheckIn: june4, CheckOut: june1, GuestCount: 1}, wantPhase: PhaseDatesEntered, wantNights: 3, wantCost: 300, inverted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, cmd := mustApply(t, NewState("l1", 100), tt.ev)

			assert.Nil(t, cmd)
			assert.Equal(t, tt.wantPhase, s.Phase)
			assert.Equal(t, tt.wantNights, s.Draft.Nights)
			assert.Equal(t, tt.wantCost, s.Draft.TotalCost)
			assert.Equal(t, tt.inverted, s.InvertedRange)
		})
	}
}

func TestApply_StayChanged_Guards(t *testing.T) {
	_, _, err := Apply(NewState("l1", 100), StayChanged{CheckIn: june1, CheckOut: june4, GuestCount: 0})
	assert.True(t, domain.IsValidation(err))

	_, _, err = Apply(awaiting(t, "a1"), StayChanged{CheckIn: june1, CheckOut: june4, GuestCount: 3})
	assert.ErrorIs(t, err, domain.ErrPaymentInProgress)

	_, _, err = Apply(confirmed(t, "a1"), StayChanged{CheckIn: june1, CheckOut: june4, GuestCount: 3})
	assert.ErrorIs(t, err, domain.ErrPaymentInProgress)
}

func TestApply_PayRequested(t *testing.T) {
	t.Run("requires phone", func(t *testing.T) {
		_, cmd, err := Apply(withDates(t), PayRequested{PhoneNumber: "  ", AttemptID: "a1"})
		assert.True(t, domain.IsValidation(err))
		assert.Nil(t, cmd)
	})

	t.Run("requires dates", func(t *testing.T) {
		_, _, err := Apply(NewState("l1", 100), PayRequested{PhoneNumber: "0712", AttemptID: "a1"})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("starts attempt", func(t *testing.T) {
		s, cmd := mustApply(t, withDates(t), PayRequested{PhoneNumber: "0712", AttemptID: "a1"})

		assert.Equal(t, PhasePaymentInitiated, s.Phase)
		assert.Equal(t, domain.PaymentInitiating, s.Payment.Status)
		assert.Equal(t, 300.0, s.Payment.Amount)
		assert.Equal(t, InitiatePayment{AttemptID: "a1", PhoneNumber: "0712", Amount: 300}, cmd)
	})

	t.Run("one attempt at a time", func(t *testing.T) {
		_, _, err := Apply(awaiting(t, "a1"), PayRequested{PhoneNumber: "0712", AttemptID: "a2"})
		assert.ErrorIs(t, err, domain.ErrPaymentInProgress)
	})
}

func TestApply_InitiationOutcome(t *testing.T) {
	s, _ := mustApply(t, withDates(t), PayRequested{PhoneNumber: "0712", AttemptID: "a1"})

	next, cmd := mustApply(t, s, InitiationSucceeded{AttemptID: "a1", CheckoutReference: "ws_CO_1"})
	assert.Equal(t, PhaseAwaitingConfirmation, next.Phase)
	assert.Equal(t, "ws_CO_1", next.Payment.CheckoutReference)
	assert.Equal(t, ArmConfirmationTimer{AttemptID: "a1"}, cmd)

	failed, cmd := mustApply(t, s, InitiationFailed{AttemptID: "a1", Err: domain.GatewayError{Reason: "invalid phone", StatusCode: 400}})
	assert.Nil(t, cmd)
	assert.Equal(t, PhaseFailed, failed.Phase)
	assert.Equal(t, "invalid phone", failed.Payment.Reason)
	assert.False(t, failed.CanSubmit())

	stale, _ := mustApply(t, s, InitiationFailed{AttemptID: "other", Err: errors.New("boom")})
	assert.Equal(t, s, stale)
}

func TestApply_SubmitGatedOnConfirmedPayment(t *testing.T) {
	notConfirmed := map[string]State{
		"idle":                  NewState("l1", 100),
		"dates entered":         withDates(t),
		"awaiting confirmation": awaiting(t, "a1"),
	}
	initiated, _ := mustApply(t, withDates(t), PayRequested{PhoneNumber: "0712", AttemptID: "a1"})
	notConfirmed["payment initiated"] = initiated
	failed, _ := mustApply(t, awaiting(t, "a1"), PaymentResult{Event: domain.PaymentEvent{AttemptID: "a1", Status: domain.PaymentEventFailure}})
	notConfirmed["failed"] = failed

	for name, s := range notConfirmed {
		t.Run(name, func(t *testing.T) {
			s.Draft.Guest = guest()
			assert.False(t, s.CanSubmit())

			_, cmd, err := Apply(s, SubmitRequested{})
			assert.ErrorIs(t, err, domain.ErrPaymentNotConfirmed)
			assert.Nil(t, cmd)
		})
	}
}

func TestApply_SubmitRequiresGuestDetails(t *testing.T) {
	s := confirmed(t, "a1")
	s.Draft.Guest.Email = ""

	_, cmd, err := Apply(s, SubmitRequested{})

	var vErr domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "email", vErr.Field)
	assert.Nil(t, cmd)
}

func TestApply_SubmitRejectsBlankGuestDetails(t *testing.T) {
	s := confirmed(t, "a1")
	s, _ = mustApply(t, s, GuestChanged{Guest: domain.GuestDetails{FirstName: "   ", LastName: "Otieno", Email: "amina@example.com", Phone: "254712345678"}})

	next, cmd, err := Apply(s, SubmitRequested{})

	var vErr domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "firstName", vErr.Field)
	assert.Nil(t, cmd)
	assert.False(t, next.Submitting)
}

func TestApply_PayCarriesGuestContact(t *testing.T) {
	s, _ := mustApply(t, withDates(t), GuestChanged{Guest: domain.GuestDetails{FirstName: " Amina", LastName: "Otieno ", Email: " amina@example.com"}})

	_, cmd := mustApply(t, s, PayRequested{PhoneNumber: "0712", AttemptID: "a1"})

	assert.Equal(t, InitiatePayment{
		AttemptID:   "a1",
		PhoneNumber: "0712",
		Amount:      300,
		Email:       "amina@example.com",
		GuestName:   "Amina Otieno",
	}, cmd)
}

func TestApply_ConfirmationIsIdempotent(t *testing.T) {
	s := confirmed(t, "a1")
	require.Equal(t, PhaseConfirmed, s.Phase)
	require.True(t, s.CanSubmit())
	assert.Equal(t, "QK12AB", s.Payment.ReceiptNumber)

	again, _ := mustApply(t, s, PaymentResult{Event: domain.PaymentEvent{AttemptID: "a1", Status: domain.PaymentEventFailure, Reason: "late failure"}})
	assert.Equal(t, s, again)

	timedOut, _ := mustApply(t, s, ConfirmationTimedOut{AttemptID: "a1"})
	assert.Equal(t, s, timedOut)
}

func TestApply_PaymentResultCorrelation(t *testing.T) {
	s := awaiting(t, "a1")

	tests := []struct {
		name    string
		ev      domain.PaymentEvent
		ignored bool
	}{
		{name: "other attempt", ev: domain.PaymentEvent{AttemptID: "a0", Status: domain.PaymentEventSuccess, ReceiptNumber: "R0"}, ignored: true},
		{name: "no correlation", ev: domain.PaymentEvent{Status: domain.PaymentEventSuccess, ReceiptNumber: "R0"}, ignored: true},
		{name: "checkout reference", ev: domain.PaymentEvent{CheckoutReference: "ws_CO_a1", Status: domain.PaymentEventSuccess, ReceiptNumber: "R1"}},
		{name: "attempt id", ev: domain.PaymentEvent{AttemptID: "a1", Status: domain.PaymentEventSuccess, ReceiptNumber: "R1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _ := mustApply(t, s, PaymentResult{Event: tt.ev})
			if tt.ignored {
				assert.Equal(t, s, next)
				return
			}
			assert.Equal(t, PhaseConfirmed, next.Phase)
			assert.Equal(t, "R1", next.Payment.ReceiptNumber)
		})
	}
}

func TestApply_NoAttemptInFlightIgnoresEvents(t *testing.T) {
	s := withDates(t)
	next, _ := mustApply(t, s, PaymentResult{Event: domain.PaymentEvent{AttemptID: "", CheckoutReference: "", Status: domain.PaymentEventSuccess, ReceiptNumber: "R1"}})
	assert.Equal(t, s, next)
}

func TestApply_SuccessWithoutReceiptFails(t *testing.T) {
	next, _ := mustApply(t, awaiting(t, "a1"), PaymentResult{Event: domain.PaymentEvent{AttemptID: "a1", Status: domain.PaymentEventSuccess}})

	assert.Equal(t, PhaseFailed, next.Phase)
	assert.False(t, next.CanSubmit())
}

func TestApply_ConfirmationTimeout(t *testing.T) {
	s := awaiting(t, "a1")

	stale, _ := mustApply(t, s, ConfirmationTimedOut{AttemptID: "a0"})
	assert.Equal(t, s, stale)

	next, _ := mustApply(t, s, ConfirmationTimedOut{AttemptID: "a1"})
	assert.Equal(t, PhaseFailed, next.Phase)
	assert.Equal(t, "payment timed out", next.Payment.Reason)
	assert.Equal(t, "payment timed out", next.Message)
}

func TestApply_RetryAfterFailure(t *testing.T) {
	failed, _ := mustApply(t, awaiting(t, "a1"), ConfirmationTimedOut{AttemptID: "a1"})
	require.True(t, failed.CanPay())

	retry, cmd := mustApply(t, failed, PayRequested{PhoneNumber: "0712", AttemptID: "a2"})
	assert.Equal(t, PhasePaymentInitiated, retry.Phase)
	assert.Equal(t, "a2", retry.Payment.ID)
	assert.Empty(t, retry.Payment.Reason)
	assert.IsType(t, InitiatePayment{}, cmd)

	// a late confirmation of the abandoned attempt does not confirm the new one
	late, _ := mustApply(t, retry, PaymentResult{Event: domain.PaymentEvent{AttemptID: "a1", Status: domain.PaymentEventSuccess, ReceiptNumber: "R1"}})
	assert.Equal(t, retry, late)
}

func TestApply_SubmitRoundTrip(t *testing.T) {
	initial := NewState("l1", 100)
	s := confirmed(t, "a1")

	submitting, cmd := mustApply(t, s, SubmitRequested{})
	require.True(t, submitting.Submitting)
	require.Equal(t, SubmitBooking{ListingID: "l1", Draft: s.Draft, Attempt: s.Payment}, cmd)
	assert.False(t, submitting.CanSubmit())

	_, _, err := Apply(submitting, SubmitRequested{})
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)
	_, _, err = Apply(submitting, GuestChanged{Guest: domain.GuestDetails{}})
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)

	done, _ := mustApply(t, submitting, SubmitSucceeded{Booking: &domain.Booking{ID: "b1"}})
	assert.Equal(t, PhaseSubmitted, done.Phase)
	assert.Equal(t, "b1", done.LastBookingID)
	assert.Equal(t, initial.Draft, done.Draft)
	assert.Equal(t, initial.Payment, done.Payment)
	assert.False(t, done.Submitting)
}

func TestApply_SubmitFailureKeepsDraft(t *testing.T) {
	s := confirmed(t, "a1")
	submitting, _ := mustApply(t, s, SubmitRequested{})

	next, _ := mustApply(t, submitting, SubmitFailed{Err: domain.NetworkError{Op: "create booking", Err: errors.New("timeout")}})

	assert.Equal(t, PhaseConfirmed, next.Phase)
	assert.Equal(t, s.Draft, next.Draft)
	assert.Equal(t, s.Payment, next.Payment)
	assert.False(t, next.Submitting)
	assert.NotEmpty(t, next.Message)
	assert.True(t, next.CanSubmit())
}

func TestApply_NewStayAfterSubmission(t *testing.T) {
	s := confirmed(t, "a1")
	s, _ = mustApply(t, s, SubmitRequested{})
	s, _ = mustApply(t, s, SubmitSucceeded{Booking: &domain.Booking{ID: "b1"}})

	next, _ := mustApply(t, s, StayChanged{CheckIn: june1, CheckOut: june4, GuestCount: 1})
	assert.Equal(t, PhaseDatesEntered, next.Phase)
	assert.Equal(t, domain.NewPaymentAttempt(), next.Payment)
	assert.Empty(t, next.Message)
}
