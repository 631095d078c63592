package cache

import (
	"encoding/json"
	"sync"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type PaymentSubscription struct {
	pubsub *redis.PubSub
	events chan domain.PaymentEvent
	done   chan struct{}

	once     sync.Once
	closeErr error
}

// Events is closed after Close.
func (s *PaymentSubscription) Events() <-chan domain.PaymentEvent {
	return s.events
}

func (s *PaymentSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}

func (s *PaymentSubscription) pump(messages <-chan *redis.Message) {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event domain.PaymentEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case s.events <- event:
			case <-s.done:
				return
			}
		}
	}
}
