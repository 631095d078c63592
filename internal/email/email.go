package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/staybooking/internal/kafka"
	"go.uber.org/zap"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Transport delivers rendered messages. LogTransport is the default.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

type Sender struct {
	transport Transport
	logger    *zap.Logger
}

func NewSender(transport Transport, logger *zap.Logger) *Sender {
	if transport == nil {
		transport = LogTransport{Logger: logger}
	}
	return &Sender{transport: transport, logger: logger}
}

// Send renders event and hands it to the transport. Events without a
// recipient or of an unknown type are skipped.
func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if strings.TrimSpace(event.Email) == "" {
		s.logger.Debug("notification skipped, no recipient", zap.String("type", event.Type))
		return nil
	}

	msg, ok := Render(event)
	if !ok {
		s.logger.Debug("notification skipped, unknown type", zap.String("type", event.Type))
		return nil
	}

	if err := s.transport.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s to %s: %w", event.Type, event.Email, err)
	}
	return nil
}

func Render(event kafka.BookingEvent) (Message, bool) {
	msg := Message{To: event.Email}
	name := event.GuestName
	if name == "" {
		name = "guest"
	}

	switch event.Type {
	case kafka.EventBookingCreated:
		msg.Subject = "Your booking is confirmed"
		msg.Body = fmt.Sprintf(
			"Hi %s,\n\nYour stay from %s to %s (%d nights) is booked.\nTotal paid: KES %.2f\nMPesa receipt: %s\nBooking reference: %s\n",
			name,
			event.CheckInDate.Format("2006-01-02"),
			event.CheckOutDate.Format("2006-01-02"),
			event.Nights,
			event.TotalCost,
			event.ReceiptNumber,
			event.BookingID,
		)
	case kafka.EventPaymentFailed:
		msg.Subject = "Your payment did not go through"
		msg.Body = fmt.Sprintf("Hi %s,\n\nWe could not confirm your MPesa payment: %s\nYou can try again from the booking page.\n", name, event.Reason)
	default:
		return Message{}, false
	}
	return msg, true
}

// LogTransport writes messages to the log instead of sending them.
type LogTransport struct {
	Logger *zap.Logger
}

func (t LogTransport) Deliver(_ context.Context, msg Message) error {
	t.Logger.Info("email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
