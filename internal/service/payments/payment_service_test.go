package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/kafka"
	"github.com/Domenick1991/staybooking/internal/mpesa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Initiate(ctx context.Context, req mpesa.InitiateRequest) (*mpesa.Initiation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mpesa.Initiation), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) PublishPaymentEvent(ctx context.Context, event domain.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventBus) SaveAttempt(ctx context.Context, record domain.AttemptRecord, ttl time.Duration) error {
	args := m.Called(ctx, record, ttl)
	return args.Error(0)
}

func (m *MockEventBus) Attempt(ctx context.Context, attemptID string) (*domain.AttemptRecord, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AttemptRecord), args.Error(1)
}

func (m *MockEventBus) MarkReceiptConfirmed(ctx context.Context, receipt domain.ConfirmedReceipt, ttl time.Duration) error {
	args := m.Called(ctx, receipt, ttl)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func newTestService(gateway *MockGateway, bus *MockEventBus, producer Producer) *PaymentService {
	return NewPaymentService(gateway, bus, producer, zap.NewNop(), "booking-events", time.Hour, WithNotificationsTopic("notifications"))
}

func TestPaymentService_Initiate(t *testing.T) {
	t.Run("records attempt then pushes", func(t *testing.T) {
		gateway := &MockGateway{}
		bus := &MockEventBus{}
		service := newTestService(gateway, bus, nil)
		ctx := context.Background()

		bus.On("SaveAttempt", ctx, mock.MatchedBy(func(r domain.AttemptRecord) bool {
			return r.AttemptID != "" && r.Amount == 300 && r.Email == "amina@example.com" && r.SessionID == "s1"
		}), time.Hour).Return(nil).Once()
		gateway.On("Initiate", ctx, mock.MatchedBy(func(req mpesa.InitiateRequest) bool {
			return req.PhoneNumber == "254712345678" && req.Amount == 300 && req.AttemptID != "" && req.SessionID == "s1"
		})).Return(&mpesa.Initiation{Accepted: true, CheckoutReference: "ws_CO_1"}, nil).Once()

		res, err := service.Initiate(ctx, InitiateInput{PhoneNumber: " 254712345678 ", Amount: 300, SessionID: "s1", Email: " amina@example.com "})

		require.NoError(t, err)
		assert.Equal(t, "pending", res.Status)
		assert.Equal(t, "ws_CO_1", res.CheckoutReference)
		assert.NotEmpty(t, res.AttemptID)
		gateway.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("keeps caller attempt id", func(t *testing.T) {
		gateway := &MockGateway{}
		bus := &MockEventBus{}
		service := newTestService(gateway, bus, nil)
		ctx := context.Background()

		bus.On("SaveAttempt", ctx, domain.AttemptRecord{AttemptID: "a1", SessionID: "s1", Amount: 300}, time.Hour).Return(nil).Once()
		gateway.On("Initiate", ctx, mock.MatchedBy(func(req mpesa.InitiateRequest) bool {
			return req.AttemptID == "a1"
		})).Return(&mpesa.Initiation{Accepted: true}, nil).Once()

		res, err := service.Initiate(ctx, InitiateInput{PhoneNumber: "0712", Amount: 300, SessionID: "s1", AttemptID: "a1"})

		require.NoError(t, err)
		assert.Equal(t, "a1", res.AttemptID)
	})

	t.Run("validation before gateway", func(t *testing.T) {
		inputs := []InitiateInput{
			{PhoneNumber: "", Amount: 300},
			{PhoneNumber: "0712", Amount: 0},
		}
		for _, in := range inputs {
			gateway := &MockGateway{}
			bus := &MockEventBus{}
			service := newTestService(gateway, bus, nil)

			_, err := service.Initiate(context.Background(), in)

			assert.True(t, domain.IsValidation(err))
			gateway.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
			bus.AssertNotCalled(t, "SaveAttempt", mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("unrecorded attempt is not pushed", func(t *testing.T) {
		gateway := &MockGateway{}
		bus := &MockEventBus{}
		service := newTestService(gateway, bus, nil)

		bus.On("SaveAttempt", mock.Anything, mock.Anything, time.Hour).Return(errors.New("redis down")).Once()

		_, err := service.Initiate(context.Background(), InitiateInput{PhoneNumber: "0712", Amount: 300})

		assert.True(t, domain.IsNetwork(err))
		gateway.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
	})

	t.Run("gateway rejection is returned", func(t *testing.T) {
		gateway := &MockGateway{}
		bus := &MockEventBus{}
		service := newTestService(gateway, bus, nil)
		ctx := context.Background()

		bus.On("SaveAttempt", ctx, mock.Anything, time.Hour).Return(nil).Once()
		gateway.On("Initiate", ctx, mock.Anything).Return(nil, domain.GatewayError{Reason: "invalid phone"}).Once()

		_, err := service.Initiate(ctx, InitiateInput{PhoneNumber: "0712", Amount: 300})
		assert.True(t, domain.IsGateway(err))
	})
}

func TestPaymentService_HandleCallback_Success(t *testing.T) {
	bus := &MockEventBus{}
	producer := &MockProducer{}
	service := newTestService(&MockGateway{}, bus, producer)
	ctx := context.Background()

	event := domain.PaymentEvent{SessionID: "s1", AttemptID: "a1", Status: domain.PaymentEventSuccess, ReceiptNumber: "QK12AB"}
	priced := event
	priced.Amount = 300

	bus.On("Attempt", ctx, "a1").Return(&domain.AttemptRecord{AttemptID: "a1", SessionID: "s1", Amount: 300, Email: "amina@example.com"}, nil).Once()
	bus.On("MarkReceiptConfirmed", ctx, domain.ConfirmedReceipt{ReceiptNumber: "QK12AB", AttemptID: "a1", Amount: 300}, time.Hour).Return(nil).Once()
	bus.On("PublishPaymentEvent", ctx, priced).Return(nil).Once()
	producer.On("Publish", ctx, "booking-events", "a1", mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventPaymentConfirmed && e.ReceiptNumber == "QK12AB" && e.TotalCost == 300
	})).Return(nil).Once()

	require.NoError(t, service.HandleCallback(ctx, event))
	bus.AssertExpectations(t)
	producer.AssertExpectations(t)
	producer.AssertNotCalled(t, "Publish", mock.Anything, "notifications", mock.Anything, mock.Anything)
}

func TestPaymentService_HandleCallback_ConfirmsLowerOfPaidAndAsked(t *testing.T) {
	bus := &MockEventBus{}
	service := newTestService(&MockGateway{}, bus, nil)
	ctx := context.Background()

	event := domain.PaymentEvent{AttemptID: "a1", Status: domain.PaymentEventSuccess, ReceiptNumber: "QK12AB", Amount: 100}

	bus.On("Attempt", ctx, "a1").Return(&domain.AttemptRecord{AttemptID: "a1", SessionID: "s1", Amount: 300}, nil).Once()
	bus.On("MarkReceiptConfirmed", ctx, domain.ConfirmedReceipt{ReceiptNumber: "QK12AB", AttemptID: "a1", Amount: 100}, time.Hour).Return(nil).Once()
	bus.On("PublishPaymentEvent", ctx, mock.MatchedBy(func(e domain.PaymentEvent) bool {
		return e.SessionID == "s1" && e.Amount == 100
	})).Return(nil).Once()

	require.NoError(t, service.HandleCallback(ctx, event))
	bus.AssertExpectations(t)
}

func TestPaymentService_HandleCallback_UnknownAttemptRecordsNoAmount(t *testing.T) {
	bus := &MockEventBus{}
	service := newTestService(&MockGateway{}, bus, nil)
	ctx := context.Background()

	event := domain.PaymentEvent{AttemptID: "gone", Status: domain.PaymentEventSuccess, ReceiptNumber: "QK12AB"}

	bus.On("Attempt", ctx, "gone").Return(nil, nil).Once()
	bus.On("MarkReceiptConfirmed", ctx, domain.ConfirmedReceipt{ReceiptNumber: "QK12AB", AttemptID: "gone"}, time.Hour).Return(nil).Once()

	require.NoError(t, service.HandleCallback(ctx, event))
	bus.AssertExpectations(t)
	bus.AssertNotCalled(t, "PublishPaymentEvent", mock.Anything, mock.Anything)
}

func TestPaymentService_HandleCallback_Failure(t *testing.T) {
	bus := &MockEventBus{}
	producer := &MockProducer{}
	service := newTestService(&MockGateway{}, bus, producer)
	ctx := context.Background()

	event := domain.PaymentEvent{SessionID: "s1", AttemptID: "a1", Status: domain.PaymentEventFailure, Reason: "cancelled by user"}
	priced := event
	priced.Amount = 300

	isFailure := mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventPaymentFailed && e.Reason == "cancelled by user" &&
			e.Email == "amina@example.com" && e.GuestName == "Amina Otieno"
	})

	bus.On("Attempt", ctx, "a1").Return(&domain.AttemptRecord{AttemptID: "a1", SessionID: "s1", Amount: 300, Email: "amina@example.com", GuestName: "Amina Otieno"}, nil).Once()
	bus.On("PublishPaymentEvent", ctx, priced).Return(nil).Once()
	producer.On("Publish", ctx, "booking-events", "a1", isFailure).Return(errors.New("broker down")).Once()
	producer.On("Publish", ctx, "notifications", "a1", isFailure).Return(nil).Once()

	require.NoError(t, service.HandleCallback(ctx, event))
	producer.AssertExpectations(t)
	bus.AssertNotCalled(t, "MarkReceiptConfirmed", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_HandleCallback_FailureWithoutEmailIsNotNotified(t *testing.T) {
	bus := &MockEventBus{}
	producer := &MockProducer{}
	service := newTestService(&MockGateway{}, bus, producer)
	ctx := context.Background()

	event := domain.PaymentEvent{SessionID: "s1", AttemptID: "a1", Status: domain.PaymentEventFailure}

	bus.On("Attempt", ctx, "a1").Return(nil, errors.New("redis timeout")).Once()
	bus.On("PublishPaymentEvent", ctx, event).Return(nil).Once()
	producer.On("Publish", ctx, "booking-events", "a1", mock.Anything).Return(nil).Once()

	require.NoError(t, service.HandleCallback(ctx, event))
	producer.AssertNotCalled(t, "Publish", mock.Anything, "notifications", mock.Anything, mock.Anything)
}

func TestPaymentService_HandleCallback_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		event domain.PaymentEvent
	}{
		{name: "success without receipt", event: domain.PaymentEvent{SessionID: "s1", Status: domain.PaymentEventSuccess}},
		{name: "unknown status", event: domain.PaymentEvent{SessionID: "s1", Status: "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &MockEventBus{}
			service := newTestService(&MockGateway{}, bus, nil)

			err := service.HandleCallback(context.Background(), tt.event)

			assert.True(t, domain.IsValidation(err))
			bus.AssertNotCalled(t, "PublishPaymentEvent", mock.Anything, mock.Anything)
		})
	}
}

func TestPaymentService_HandleCallback_PublishError(t *testing.T) {
	bus := &MockEventBus{}
	service := newTestService(&MockGateway{}, bus, nil)
	ctx := context.Background()

	event := domain.PaymentEvent{SessionID: "s1", AttemptID: "a1", Status: domain.PaymentEventFailure}
	bus.On("Attempt", ctx, "a1").Return(nil, nil).Once()
	bus.On("PublishPaymentEvent", ctx, event).Return(errors.New("redis down")).Once()

	err := service.HandleCallback(ctx, event)
	assert.True(t, domain.IsNetwork(err))
}
