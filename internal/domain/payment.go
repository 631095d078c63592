package domain

import "math"

type PaymentStatus string

const (
	PaymentNotStarted           PaymentStatus = "NOT_STARTED"
	PaymentInitiating           PaymentStatus = "INITIATING"
	PaymentAwaitingConfirmation PaymentStatus = "AWAITING_CONFIRMATION"
	PaymentConfirmed            PaymentStatus = "CONFIRMED"
	PaymentFailed               PaymentStatus = "FAILED"
)

// PaymentAttempt tracks one mobile-money payment from initiation to its
// terminal outcome. ReceiptNumber is set only when Confirmed, Reason only
// when Failed.
type PaymentAttempt struct {
	ID                string        `json:"id,omitempty"`
	PhoneNumber       string        `json:"phoneNumber,omitempty"`
	Amount            float64       `json:"amount"`
	Status            PaymentStatus `json:"status"`
	CheckoutReference string        `json:"checkoutReference,omitempty"`
	ReceiptNumber     string        `json:"receiptNumber,omitempty"`
	Reason            string        `json:"reason,omitempty"`
}

func NewPaymentAttempt() PaymentAttempt {
	return PaymentAttempt{Status: PaymentNotStarted}
}

func (a PaymentAttempt) Confirmed() bool {
	return a.Status == PaymentConfirmed && a.ReceiptNumber != ""
}

// InFlight reports whether a terminal event may still arrive for the attempt.
func (a PaymentAttempt) InFlight() bool {
	return a.Status == PaymentInitiating || a.Status == PaymentAwaitingConfirmation
}

type PaymentEventStatus string

const (
	PaymentEventSuccess PaymentEventStatus = "success"
	PaymentEventFailure PaymentEventStatus = "failure"
)

// PaymentEvent is the terminal outcome pushed by the gateway for one attempt.
type PaymentEvent struct {
	SessionID         string             `json:"sessionId"`
	AttemptID         string             `json:"attemptId"`
	CheckoutReference string             `json:"checkoutReference,omitempty"`
	Status            PaymentEventStatus `json:"status"`
	ReceiptNumber     string             `json:"receiptNumber,omitempty"`
	Amount            float64            `json:"amount,omitempty"`
	Reason            string             `json:"reason,omitempty"`
}

// AttemptRecord is kept from initiation until the callback arrives. It
// carries what the callback itself does not: the amount asked for and who to
// notify.
type AttemptRecord struct {
	AttemptID string  `json:"attemptId"`
	SessionID string  `json:"sessionId,omitempty"`
	Amount    float64 `json:"amount"`
	Email     string  `json:"email,omitempty"`
	GuestName string  `json:"guestName,omitempty"`
}

// ConfirmedReceipt is a receipt the gateway confirmed and the amount it paid.
type ConfirmedReceipt struct {
	ReceiptNumber string  `json:"receiptNumber"`
	AttemptID     string  `json:"attemptId,omitempty"`
	Amount        float64 `json:"amount"`
}

// Covers reports whether the receipt pays for total. Amounts are compared to
// the cent.
func (r ConfirmedReceipt) Covers(total float64) bool {
	return math.Round(r.Amount*100) >= math.Round(total*100)
}
