package form

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/service/payments"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentInitiator interface {
	Initiate(ctx context.Context, input payments.InitiateInput) (*payments.InitiateResult, error)
}

type Submitter interface {
	Submit(ctx context.Context, listingID string, draft domain.BookingDraft, attempt domain.PaymentAttempt) (*domain.Booking, error)
}

// Subscription is the session's payment confirmation channel.
type Subscription interface {
	Events() <-chan domain.PaymentEvent
	Close() error
}

type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (Subscription, error)
}

type SubscriberFunc func(ctx context.Context, sessionID string) (Subscription, error)

func (f SubscriberFunc) Subscribe(ctx context.Context, sessionID string) (Subscription, error) {
	return f(ctx, sessionID)
}

type request struct {
	ev    Event
	reply chan error
}

// Form is the actor owning one session's State. Every transition runs on its
// goroutine; gateway and store calls run on helper goroutines and report
// back through results.
type Form struct {
	id        string
	initiator PaymentInitiator
	submitter Submitter
	logger    *zap.Logger

	confirmTimeout time.Duration
	opTimeout      time.Duration

	sub     Subscription
	inbox   chan request
	results chan Event
	stop    chan struct{}
	done    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error

	mu       sync.RWMutex
	state    State
	updated  time.Time
	watchers map[int]chan View
	nextID   int

	lastActive atomic.Int64

	// owned by run
	timer        *time.Timer
	timerC       <-chan time.Time
	timerAttempt string
}

type formConfig struct {
	initiator      PaymentInitiator
	submitter      Submitter
	logger         *zap.Logger
	confirmTimeout time.Duration
	opTimeout      time.Duration
}

func newForm(id string, state State, sub Subscription, cfg formConfig) *Form {
	if cfg.confirmTimeout <= 0 {
		cfg.confirmTimeout = DefaultConfirmationTimeout
	}
	if cfg.opTimeout <= 0 {
		cfg.opTimeout = DefaultOperationTimeout
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Form{
		id:             id,
		initiator:      cfg.initiator,
		submitter:      cfg.submitter,
		logger:         cfg.logger.With(zap.String("session", id)),
		confirmTimeout: cfg.confirmTimeout,
		opTimeout:      cfg.opTimeout,
		sub:            sub,
		inbox:          make(chan request),
		results:        make(chan Event),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
		state:          state,
		updated:        time.Now().UTC(),
		watchers:       make(map[int]chan View),
	}
	f.touch()
	go f.run()
	return f
}

func (f *Form) ID() string { return f.id }

// Done is closed once the form has released its subscription.
func (f *Form) Done() <-chan struct{} { return f.done }

func (f *Form) Snapshot() View {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return NewView(f.id, f.state, f.updated)
}

func (f *Form) UpdateStay(ctx context.Context, checkIn, checkOut time.Time, guestCount int) (View, error) {
	return f.send(ctx, StayChanged{CheckIn: checkIn, CheckOut: checkOut, GuestCount: guestCount})
}

func (f *Form) UpdateGuest(ctx context.Context, guest domain.GuestDetails) (View, error) {
	return f.send(ctx, GuestChanged{Guest: guest})
}

// Pay starts a new payment attempt. The result is reflected in later
// snapshots; the call returns once the attempt is registered.
func (f *Form) Pay(ctx context.Context, phoneNumber string) (View, error) {
	return f.send(ctx, PayRequested{PhoneNumber: phoneNumber, AttemptID: uuid.NewString()})
}

func (f *Form) Submit(ctx context.Context) (View, error) {
	return f.send(ctx, SubmitRequested{})
}

// Watch streams snapshots. Slow readers only see the latest one. The channel
// is closed by cancel or when the form closes.
func (f *Form) Watch() (<-chan View, func()) {
	ch := make(chan View, 1)

	f.mu.Lock()
	if f.watchers == nil {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	f.watchers[id] = ch
	ch <- NewView(f.id, f.state, f.updated)
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if w, ok := f.watchers[id]; ok {
				delete(f.watchers, id)
				close(w)
			}
		})
	}
}

// Close tears the form down and releases the confirmation channel. Safe to
// call more than once.
func (f *Form) Close() error {
	f.closeOnce.Do(func() {
		close(f.stop)
	})
	<-f.done
	return f.closeErr
}

func (f *Form) LastActive() time.Time {
	return time.Unix(0, f.lastActive.Load())
}

func (f *Form) watched() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.watchers) > 0
}

func (f *Form) touch() {
	f.lastActive.Store(time.Now().UnixNano())
}

func (f *Form) send(ctx context.Context, ev Event) (View, error) {
	req := request{ev: ev, reply: make(chan error, 1)}
	select {
	case f.inbox <- req:
	case <-f.done:
		return View{}, domain.ErrSessionNotFound
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	f.touch()

	select {
	case err := <-req.reply:
		if err != nil {
			return View{}, err
		}
		return f.Snapshot(), nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (f *Form) run() {
	defer f.teardown()

	events := f.sub.Events()
	for {
		select {
		case <-f.stop:
			return
		case req := <-f.inbox:
			req.reply <- f.dispatch(req.ev)
		case ev := <-f.results:
			if err := f.dispatch(ev); err != nil {
				f.logger.Warn("apply result", zap.Error(err))
			}
		case ev, ok := <-events:
			if !ok {
				f.logger.Warn("payment channel closed")
				events = nil
				continue
			}
			f.logger.Info("payment event received",
				zap.String("attempt", ev.AttemptID),
				zap.String("status", string(ev.Status)))
			_ = f.dispatch(PaymentResult{Event: ev})
		case <-f.timerC:
			f.timerC = nil
			f.logger.Warn("payment confirmation timed out", zap.String("attempt", f.timerAttempt))
			_ = f.dispatch(ConfirmationTimedOut{AttemptID: f.timerAttempt})
		}
	}
}

func (f *Form) dispatch(ev Event) error {
	f.mu.RLock()
	prev := f.state
	f.mu.RUnlock()

	next, cmd, err := Apply(prev, ev)
	if err != nil {
		return err
	}
	if next != prev {
		f.publish(next)
	}
	if cmd != nil {
		f.execute(cmd)
	}
	return nil
}

func (f *Form) publish(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = s
	f.updated = time.Now().UTC()
	view := NewView(f.id, s, f.updated)
	for _, ch := range f.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- view
	}
}

func (f *Form) execute(cmd Command) {
	switch c := cmd.(type) {
	case InitiatePayment:
		go f.initiate(c)
	case ArmConfirmationTimer:
		f.stopTimer()
		f.timer = time.NewTimer(f.confirmTimeout)
		f.timerC = f.timer.C
		f.timerAttempt = c.AttemptID
	case SubmitBooking:
		go f.submit(c)
	}
}

func (f *Form) initiate(c InitiatePayment) {
	ctx, cancel := context.WithTimeout(f.ctx, f.opTimeout)
	defer cancel()

	res, err := f.initiator.Initiate(ctx, payments.InitiateInput{
		PhoneNumber: c.PhoneNumber,
		Amount:      c.Amount,
		SessionID:   f.id,
		AttemptID:   c.AttemptID,
		Email:       c.Email,
		GuestName:   c.GuestName,
	})
	if err != nil {
		f.logger.Warn("payment initiation failed", zap.String("attempt", c.AttemptID), zap.Error(err))
		f.post(InitiationFailed{AttemptID: c.AttemptID, Err: err})
		return
	}
	f.post(InitiationSucceeded{AttemptID: c.AttemptID, CheckoutReference: res.CheckoutReference})
}

func (f *Form) submit(c SubmitBooking) {
	ctx, cancel := context.WithTimeout(f.ctx, f.opTimeout)
	defer cancel()

	booking, err := f.submitter.Submit(ctx, c.ListingID, c.Draft, c.Attempt)
	if err != nil {
		f.logger.Warn("booking submission failed", zap.String("attempt", c.Attempt.ID), zap.Error(err))
		f.post(SubmitFailed{Err: err})
		return
	}
	f.logger.Info("booking submitted", zap.String("booking", booking.ID))
	f.post(SubmitSucceeded{Booking: booking})
}

func (f *Form) post(ev Event) {
	select {
	case f.results <- ev:
	case <-f.done:
	}
}

func (f *Form) stopTimer() {
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = nil
	f.timerC = nil
}

func (f *Form) teardown() {
	f.stopTimer()
	f.cancel()
	f.closeErr = f.sub.Close()
	if f.closeErr != nil {
		f.logger.Warn("close payment channel", zap.Error(f.closeErr))
	}

	f.mu.Lock()
	for id, ch := range f.watchers {
		delete(f.watchers, id)
		close(ch)
	}
	f.watchers = nil
	f.mu.Unlock()

	close(f.done)
}
