package form

import (
	"context"
	"sync"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultConfirmationTimeout = 3 * time.Minute
	DefaultOperationTimeout    = 15 * time.Second
	DefaultIdleTTL             = 30 * time.Minute
	DefaultSweepInterval       = time.Minute
)

type RateSource interface {
	NightlyRate(ctx context.Context, listingID string) (float64, string, error)
}

// Seed pre-fills a form, as when the guest arrives from the availability
// check.
type Seed struct {
	ListingID  string    `json:"listingId"`
	CheckIn    time.Time `json:"checkInDate"`
	CheckOut   time.Time `json:"checkOutDate"`
	GuestCount int       `json:"guestNumber"`
}

type ManagerConfig struct {
	ConfirmationTimeout time.Duration
	OperationTimeout    time.Duration
	IdleTTL             time.Duration
	SweepInterval       time.Duration
}

// Manager owns the mounted forms. Each form holds one confirmation
// subscription until it is closed, swept or the manager shuts down.
type Manager struct {
	subscriber Subscriber
	rates      RateSource
	formCfg    formConfig
	idleTTL    time.Duration
	sweepEvery time.Duration
	logger     *zap.Logger

	mu     sync.Mutex
	forms  map[string]*Form
	closed bool
}

func NewManager(subscriber Subscriber, rates RateSource, initiator PaymentInitiator, submitter Submitter, logger *zap.Logger, cfg ManagerConfig) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return &Manager{
		subscriber: subscriber,
		rates:      rates,
		formCfg: formConfig{
			initiator:      initiator,
			submitter:      submitter,
			logger:         logger,
			confirmTimeout: cfg.ConfirmationTimeout,
			opTimeout:      cfg.OperationTimeout,
		},
		idleTTL:    cfg.IdleTTL,
		sweepEvery: cfg.SweepInterval,
		logger:     logger,
		forms:      make(map[string]*Form),
	}
}

// Open mounts a new form. The confirmation channel is subscribed before the
// form accepts any input so no event for its attempts can be missed.
func (m *Manager) Open(ctx context.Context, seed Seed) (*Form, error) {
	rate, listingID, err := m.rates.NightlyRate(ctx, seed.ListingID)
	if err != nil {
		return nil, err
	}

	state := NewState(listingID, rate)
	if !seed.CheckIn.IsZero() || !seed.CheckOut.IsZero() || seed.GuestCount > 0 {
		guests := seed.GuestCount
		if guests < 1 {
			guests = 1
		}
		state, _, err = Apply(state, StayChanged{CheckIn: seed.CheckIn, CheckOut: seed.CheckOut, GuestCount: guests})
		if err != nil {
			return nil, err
		}
	}

	id := uuid.NewString()
	sub, err := m.subscriber.Subscribe(ctx, id)
	if err != nil {
		m.logger.Error("subscribe to payment channel", zap.String("session", id), zap.Error(err))
		return nil, domain.NetworkError{Op: "subscribe payments", Err: err}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = sub.Close()
		return nil, domain.ErrShuttingDown
	}
	f := newForm(id, state, sub, m.formCfg)
	m.forms[id] = f
	m.mu.Unlock()

	m.logger.Info("booking form opened", zap.String("session", id), zap.String("listing", listingID))
	return f, nil
}

func (m *Manager) Get(id string) (*Form, error) {
	m.mu.Lock()
	f, ok := m.forms[id]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return f, nil
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	f, ok := m.forms[id]
	delete(m.forms, id)
	m.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	m.logger.Info("booking form closed", zap.String("session", id))
	return f.Close()
}

// SweepIdle closes forms nobody has touched or watched for the idle TTL and
// returns how many were closed.
func (m *Manager) SweepIdle(now time.Time) int {
	var idle []*Form

	m.mu.Lock()
	for id, f := range m.forms {
		if now.Sub(f.LastActive()) < m.idleTTL || f.watched() {
			continue
		}
		delete(m.forms, id)
		idle = append(idle, f)
	}
	m.mu.Unlock()

	for _, f := range idle {
		if err := f.Close(); err != nil {
			m.logger.Warn("close idle form", zap.String("session", f.ID()), zap.Error(err))
		}
	}
	if len(idle) > 0 {
		m.logger.Info("idle booking forms swept", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run sweeps idle forms until ctx is done, then closes every form.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Shutdown()
			return nil
		case now := <-ticker.C:
			m.SweepIdle(now)
		}
	}
}

// Shutdown closes every form. Open fails with domain.ErrShuttingDown
// afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	forms := make([]*Form, 0, len(m.forms))
	for id, f := range m.forms {
		forms = append(forms, f)
		delete(m.forms, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, f := range forms {
		wg.Add(1)
		go func(f *Form) {
			defer wg.Done()
			if err := f.Close(); err != nil {
				m.logger.Warn("close form on shutdown", zap.String("session", f.ID()), zap.Error(err))
			}
		}(f)
	}
	wg.Wait()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.forms)
}
