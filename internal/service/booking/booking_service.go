package booking

import (
	"context"
	"strings"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/kafka"
	"github.com/Domenick1991/staybooking/internal/pricing"
	"github.com/Domenick1991/staybooking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	Submit(ctx context.Context, listingID string, draft domain.BookingDraft, attempt domain.PaymentAttempt) (*domain.Booking, error)
	CreateWithReceipt(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	CheckAvailability(ctx context.Context, checkIn, checkOut time.Time) (bool, error)
	Quote(ctx context.Context, listingID string, checkIn, checkOut time.Time) (pricing.Quote, error)
}

type Cache interface {
	AcquireSubmitLock(ctx context.Context, receiptNumber string, ttl time.Duration) (bool, error)
	ReleaseSubmitLock(ctx context.Context, receiptNumber string) error
	LookupReceipt(ctx context.Context, receiptNumber string) (*domain.ConfirmedReceipt, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// RateSource resolves the nightly price of a listing. An empty listing ID
// means the property shown on the site.
type RateSource interface {
	NightlyRate(ctx context.Context, listingID string) (float64, string, error)
}

type BookingService struct {
	bookings           repository.BookingRepository
	rates              RateSource
	cache              Cache
	producer           Producer
	logger             *zap.Logger
	bookingTopic       string
	notificationsTopic string
	lockTTL            time.Duration
	now                func() time.Time
}

// CreateBookingInput is a booking made outside a form session. The receipt
// must have been confirmed by the gateway callback for at least the cost of
// the stay.
type CreateBookingInput struct {
	ListingID     string              `json:"listingId"`
	CheckInDate   time.Time           `json:"checkInDate"`
	CheckOutDate  time.Time           `json:"checkOutDate"`
	GuestCount    int                 `json:"guestCount"`
	ReceiptNumber string              `json:"receiptNumber"`
	Guest         domain.GuestDetails `json:"guestDetails"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	rates RateSource,
	cache Cache,
	producer Producer,
	logger *zap.Logger,
	bookingTopic string,
	lockTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		rates:        rates,
		cache:        cache,
		producer:     producer,
		logger:       logger,
		bookingTopic: bookingTopic,
		lockTTL:      lockTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Submit persists a booking for a confirmed payment. All preconditions are
// checked before any I/O; on failure nothing is written.
func (s *BookingService) Submit(ctx context.Context, listingID string, draft domain.BookingDraft, attempt domain.PaymentAttempt) (*domain.Booking, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	if !attempt.Confirmed() {
		return nil, domain.ValidationError{Field: "payment", Msg: "payment is not confirmed", Err: domain.ErrPaymentNotConfirmed}
	}

	locked := false
	if s.cache != nil {
		ok, err := s.cache.AcquireSubmitLock(ctx, attempt.ReceiptNumber, s.lockTTL)
		if err != nil {
			return nil, domain.NetworkError{Op: "acquire submit lock", Err: err}
		}
		if !ok {
			return nil, domain.ErrSubmissionInFlight
		}
		locked = true
	}
	if locked {
		defer func() {
			if err := s.cache.ReleaseSubmitLock(context.WithoutCancel(ctx), attempt.ReceiptNumber); err != nil {
				s.logger.Warn("release submit lock", zap.String("receipt", attempt.ReceiptNumber), zap.Error(err))
			}
		}()
	}

	checkIn, checkOut := orderedRange(draft.CheckInDate, draft.CheckOutDate)
	overlapping, err := s.bookings.ListOverlapping(ctx, checkIn, checkOut)
	if err != nil {
		return nil, domain.NetworkError{Op: "check availability", Err: err}
	}
	if len(overlapping) > 0 {
		s.logger.Warn("dates already booked",
			zap.String("receipt", attempt.ReceiptNumber),
			zap.String("conflicting_booking", overlapping[0].ID))
		return nil, domain.ConflictError{Resource: "booking", Msg: "the selected dates are no longer available"}
	}

	booking := &domain.Booking{
		ID:            uuid.NewString(),
		ListingID:     listingID,
		CheckInDate:   draft.CheckInDate,
		CheckOutDate:  draft.CheckOutDate,
		GuestCount:    draft.GuestCount,
		Nights:        draft.Nights,
		TotalCost:     draft.TotalCost,
		ReceiptNumber: attempt.ReceiptNumber,
		Guest:         draft.Guest.Trimmed(),
		CreatedAt:     s.now().UTC(),
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		s.logger.Error("create booking", zap.String("receipt", attempt.ReceiptNumber), zap.Error(err))
		if domain.IsConflict(err) {
			return nil, err
		}
		return nil, domain.NetworkError{Op: "create booking", Err: err}
	}

	if err := s.publish(ctx, kafka.EventBookingCreated, booking); err != nil {
		s.logger.Warn("publish booking_created", zap.String("booking", booking.ID), zap.Error(err))
	}
	s.logger.Info("booking created", zap.String("booking", booking.ID), zap.String("receipt", booking.ReceiptNumber))
	return booking, nil
}

func (s *BookingService) CreateWithReceipt(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if field := input.Guest.Trimmed().MissingField(); field != "" {
		return nil, domain.ValidationError{Field: field}
	}
	if strings.TrimSpace(input.ReceiptNumber) == "" {
		return nil, domain.ValidationError{Field: "receiptNumber", Err: domain.ErrPaymentNotConfirmed}
	}
	if s.cache == nil {
		return nil, domain.ValidationError{Field: "receiptNumber", Msg: "receipt cannot be verified", Err: domain.ErrPaymentNotConfirmed}
	}
	receipt, err := s.cache.LookupReceipt(ctx, input.ReceiptNumber)
	if err != nil {
		return nil, domain.NetworkError{Op: "verify receipt", Err: err}
	}
	if receipt == nil {
		return nil, domain.ValidationError{Field: "receiptNumber", Msg: "payment is not confirmed", Err: domain.ErrPaymentNotConfirmed}
	}

	quote, err := s.Quote(ctx, input.ListingID, input.CheckInDate, input.CheckOutDate)
	if err != nil {
		return nil, err
	}
	if !receipt.Covers(quote.TotalCost) {
		s.logger.Warn("receipt does not cover booking",
			zap.String("receipt", input.ReceiptNumber),
			zap.Float64("paid", receipt.Amount),
			zap.Float64("total_cost", quote.TotalCost))
		return nil, domain.ValidationError{Field: "receiptNumber", Msg: "payment does not cover the booking", Err: domain.ErrPaymentInsufficient}
	}

	draft := domain.BookingDraft{
		CheckInDate:  input.CheckInDate,
		CheckOutDate: input.CheckOutDate,
		GuestCount:   input.GuestCount,
		Guest:        input.Guest,
		Nights:       quote.Nights,
		TotalCost:    quote.TotalCost,
	}
	attempt := domain.PaymentAttempt{ID: receipt.AttemptID, Status: domain.PaymentConfirmed, ReceiptNumber: input.ReceiptNumber, Amount: receipt.Amount}
	return s.Submit(ctx, input.ListingID, draft, attempt)
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// CheckAvailability reports whether no stored booking shares a night with
// [checkIn, checkOut).
func (s *BookingService) CheckAvailability(ctx context.Context, checkIn, checkOut time.Time) (bool, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return false, domain.ValidationError{Msg: "checkIn and checkOut are required"}
	}
	if !checkOut.After(checkIn) {
		return false, domain.ValidationError{Field: "checkOut", Msg: "must be after checkIn"}
	}

	overlapping, err := s.bookings.ListOverlapping(ctx, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	return len(overlapping) == 0, nil
}

func (s *BookingService) Quote(ctx context.Context, listingID string, checkIn, checkOut time.Time) (pricing.Quote, error) {
	rate, _, err := s.rates.NightlyRate(ctx, listingID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return pricing.Calculate(checkIn, checkOut, rate), nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.BookingEvent{
		Type:          eventType,
		BookingID:     booking.ID,
		Email:         booking.Guest.Email,
		GuestName:     strings.TrimSpace(booking.Guest.FirstName + " " + booking.Guest.LastName),
		CheckInDate:   booking.CheckInDate,
		CheckOutDate:  booking.CheckOutDate,
		Nights:        booking.Nights,
		TotalCost:     booking.TotalCost,
		ReceiptNumber: booking.ReceiptNumber,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.ID, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, booking.ID, event)
	}
	return nil
}

func validateDraft(draft domain.BookingDraft) error {
	if field := draft.Guest.Trimmed().MissingField(); field != "" {
		return domain.ValidationError{Field: field}
	}
	if draft.CheckInDate.IsZero() || draft.CheckOutDate.IsZero() {
		return domain.ValidationError{Msg: "checkInDate and checkOutDate are required"}
	}
	if draft.GuestCount < 1 {
		return domain.ValidationError{Field: "guestCount", Msg: "must be at least 1"}
	}
	return nil
}

func orderedRange(a, b time.Time) (time.Time, time.Time) {
	if b.Before(a) {
		return b, a
	}
	return a, b
}

var _ BookingUseCase = (*BookingService)(nil)
