package payments

import (
	"context"
	"strings"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/kafka"
	"github.com/Domenick1991/staybooking/internal/mpesa"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const statusPending = "pending"

type PaymentUseCase interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	HandleCallback(ctx context.Context, event domain.PaymentEvent) error
}

type Gateway interface {
	Initiate(ctx context.Context, req mpesa.InitiateRequest) (*mpesa.Initiation, error)
}

// EventBus delivers confirmations to the session that started the attempt
// and remembers attempts and confirmed receipts between initiation and
// booking.
type EventBus interface {
	PublishPaymentEvent(ctx context.Context, event domain.PaymentEvent) error
	SaveAttempt(ctx context.Context, record domain.AttemptRecord, ttl time.Duration) error
	Attempt(ctx context.Context, attemptID string) (*domain.AttemptRecord, error)
	MarkReceiptConfirmed(ctx context.Context, receipt domain.ConfirmedReceipt, ttl time.Duration) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// InitiateInput starts one attempt. AttemptID is generated when empty.
// Email and GuestName are used for the failure notification.
type InitiateInput struct {
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	SessionID   string  `json:"sessionId,omitempty"`
	AttemptID   string  `json:"-"`
	Email       string  `json:"email,omitempty"`
	GuestName   string  `json:"guestName,omitempty"`
}

type InitiateResult struct {
	Status            string `json:"status"`
	AttemptID         string `json:"attemptId"`
	CheckoutReference string `json:"checkoutReference,omitempty"`
}

type PaymentService struct {
	gateway            Gateway
	bus                EventBus
	producer           Producer
	logger             *zap.Logger
	topic              string
	notificationsTopic string
	receiptTTL         time.Duration
}

type PaymentServiceOption func(*PaymentService)

// WithNotificationsTopic also sends failed payments to the notification
// worker.
func WithNotificationsTopic(topic string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.notificationsTopic = topic
	}
}

func NewPaymentService(gateway Gateway, bus EventBus, producer Producer, logger *zap.Logger, topic string, receiptTTL time.Duration, opts ...PaymentServiceOption) *PaymentService {
	service := &PaymentService{
		gateway:    gateway,
		bus:        bus,
		producer:   producer,
		logger:     logger,
		topic:      topic,
		receiptTTL: receiptTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Initiate records the attempt and asks the gateway for a push payment. The
// outcome is delivered later to the callback.
func (s *PaymentService) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	phone := strings.TrimSpace(input.PhoneNumber)
	if phone == "" {
		return nil, domain.ValidationError{Field: "phoneNumber"}
	}
	if input.Amount <= 0 {
		return nil, domain.ValidationError{Field: "amount", Msg: "must be positive"}
	}

	attemptID := input.AttemptID
	if attemptID == "" {
		attemptID = uuid.NewString()
	}

	record := domain.AttemptRecord{
		AttemptID: attemptID,
		SessionID: input.SessionID,
		Amount:    input.Amount,
		Email:     strings.TrimSpace(input.Email),
		GuestName: strings.TrimSpace(input.GuestName),
	}
	if err := s.bus.SaveAttempt(ctx, record, s.receiptTTL); err != nil {
		s.logger.Error("record payment attempt", zap.String("attempt", attemptID), zap.Error(err))
		return nil, domain.NetworkError{Op: "record payment attempt", Err: err}
	}

	res, err := s.gateway.Initiate(ctx, mpesa.InitiateRequest{
		PhoneNumber: phone,
		Amount:      input.Amount,
		SessionID:   input.SessionID,
		AttemptID:   attemptID,
	})
	if err != nil {
		s.logger.Warn("payment initiation failed",
			zap.String("session", input.SessionID),
			zap.String("attempt", attemptID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("payment initiated",
		zap.String("session", input.SessionID),
		zap.String("attempt", attemptID),
		zap.String("checkout_reference", res.CheckoutReference))
	return &InitiateResult{Status: statusPending, AttemptID: attemptID, CheckoutReference: res.CheckoutReference}, nil
}

// HandleCallback records the terminal outcome of an attempt and pushes it to
// the owning session. A success without a receipt number is rejected.
func (s *PaymentService) HandleCallback(ctx context.Context, event domain.PaymentEvent) error {
	switch event.Status {
	case domain.PaymentEventSuccess:
		if strings.TrimSpace(event.ReceiptNumber) == "" {
			return domain.ValidationError{Field: "receiptNumber"}
		}
	case domain.PaymentEventFailure:
	default:
		return domain.ValidationError{Field: "status", Msg: "must be success or failure"}
	}

	log := s.logger.With(zap.String("session", event.SessionID), zap.String("attempt", event.AttemptID))

	// A receipt covers the lower of what was asked and what the gateway
	// reports as paid.
	record := s.lookupAttempt(ctx, event.AttemptID, log)
	if record != nil {
		if event.Amount <= 0 || record.Amount < event.Amount {
			event.Amount = record.Amount
		}
		if event.SessionID == "" {
			event.SessionID = record.SessionID
		}
	}

	if event.Status == domain.PaymentEventSuccess {
		receipt := domain.ConfirmedReceipt{ReceiptNumber: event.ReceiptNumber, AttemptID: event.AttemptID, Amount: event.Amount}
		if err := s.bus.MarkReceiptConfirmed(ctx, receipt, s.receiptTTL); err != nil {
			log.Error("remember confirmed receipt", zap.Error(err))
			return domain.NetworkError{Op: "store receipt", Err: err}
		}
	}

	if event.SessionID != "" {
		if err := s.bus.PublishPaymentEvent(ctx, event); err != nil {
			log.Error("publish payment event", zap.Error(err))
			return domain.NetworkError{Op: "publish payment event", Err: err}
		}
	}

	s.emit(ctx, event, record, log)
	log.Info("payment callback handled", zap.String("status", string(event.Status)))
	return nil
}

func (s *PaymentService) lookupAttempt(ctx context.Context, attemptID string, log *zap.Logger) *domain.AttemptRecord {
	if attemptID == "" {
		return nil
	}
	record, err := s.bus.Attempt(ctx, attemptID)
	if err != nil {
		log.Warn("load payment attempt", zap.Error(err))
		return nil
	}
	return record
}

func (s *PaymentService) emit(ctx context.Context, event domain.PaymentEvent, record *domain.AttemptRecord, log *zap.Logger) {
	if s.producer == nil {
		return
	}
	eventType := kafka.EventPaymentConfirmed
	if event.Status == domain.PaymentEventFailure {
		eventType = kafka.EventPaymentFailed
	}
	key := event.AttemptID
	if key == "" {
		key = event.CheckoutReference
	}
	msg := kafka.BookingEvent{
		Type:          eventType,
		SessionID:     event.SessionID,
		AttemptID:     event.AttemptID,
		TotalCost:     event.Amount,
		ReceiptNumber: event.ReceiptNumber,
		Reason:        event.Reason,
		OccurredAt:    time.Now().UTC(),
	}
	if record != nil {
		msg.Email = record.Email
		msg.GuestName = record.GuestName
	}

	if s.topic != "" {
		if err := s.producer.Publish(ctx, s.topic, key, msg); err != nil {
			log.Warn("publish payment event to kafka", zap.Error(err))
		}
	}
	if eventType == kafka.EventPaymentFailed && msg.Email != "" && s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, msg); err != nil {
			log.Warn("publish payment failure notification", zap.Error(err))
		}
	}
}

var _ PaymentUseCase = (*PaymentService)(nil)
