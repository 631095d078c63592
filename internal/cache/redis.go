package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/staybooking/config"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client      *redis.Client
	listingsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, listingsTTL time.Duration) *RedisCache {
	return NewRedisCacheFromClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		listingsTTL,
	)
}

func NewRedisCacheFromClient(client *redis.Client, listingsTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, listingsTTL: listingsTTL}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetListings(ctx context.Context) ([]domain.Listing, error) {
	data, err := c.client.Get(ctx, listingsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var listings []domain.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func (c *RedisCache) SetListings(ctx context.Context, listings []domain.Listing) error {
	payload, err := json.Marshal(listings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, listingsKey(), payload, c.listingsTTL).Err()
}

func (c *RedisCache) InvalidateListings(ctx context.Context) error {
	return c.client.Del(ctx, listingsKey()).Err()
}

// AcquireSubmitLock holds a receipt number while a booking is written so the
// same payment cannot be turned into two bookings concurrently.
func (c *RedisCache) AcquireSubmitLock(ctx context.Context, receiptNumber string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, submitLockKey(receiptNumber), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseSubmitLock(ctx context.Context, receiptNumber string) error {
	return c.client.Del(ctx, submitLockKey(receiptNumber)).Err()
}

// SaveAttempt remembers an initiated attempt until its callback arrives.
func (c *RedisCache) SaveAttempt(ctx context.Context, record domain.AttemptRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, attemptKey(record.AttemptID), payload, ttl).Err()
}

// Attempt returns nil when the attempt is unknown or has expired.
func (c *RedisCache) Attempt(ctx context.Context, attemptID string) (*domain.AttemptRecord, error) {
	var record domain.AttemptRecord
	found, err := c.getJSON(ctx, attemptKey(attemptID), &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// MarkReceiptConfirmed remembers a receipt the gateway confirmed, with the
// amount paid, so clients outside a form session can prove payment when
// creating a booking.
func (c *RedisCache) MarkReceiptConfirmed(ctx context.Context, receipt domain.ConfirmedReceipt, ttl time.Duration) error {
	payload, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, receiptKey(receipt.ReceiptNumber), payload, ttl).Err()
}

// LookupReceipt returns nil when the receipt was never confirmed.
func (c *RedisCache) LookupReceipt(ctx context.Context, receiptNumber string) (*domain.ConfirmedReceipt, error) {
	var receipt domain.ConfirmedReceipt
	found, err := c.getJSON(ctx, receiptKey(receiptNumber), &receipt)
	if err != nil || !found {
		return nil, err
	}
	return &receipt, nil
}

func (c *RedisCache) getJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) PublishPaymentEvent(ctx context.Context, event domain.PaymentEvent) error {
	if event.SessionID == "" {
		return errors.New("payment event without session")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, paymentChannel(event.SessionID), payload).Err()
}

// SubscribePayments opens the confirmation channel of one booking session.
// The subscription is active when it returns.
func (c *RedisCache) SubscribePayments(ctx context.Context, sessionID string) (*PaymentSubscription, error) {
	ps := c.client.Subscribe(ctx, paymentChannel(sessionID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe payments: %w", err)
	}

	sub := &PaymentSubscription{
		pubsub: ps,
		events: make(chan domain.PaymentEvent),
		done:   make(chan struct{}),
	}
	go sub.pump(ps.Channel())
	return sub, nil
}

func listingsKey() string {
	return "cache:listings"
}

func submitLockKey(receiptNumber string) string {
	return fmt.Sprintf("lock:booking:receipt:%s", receiptNumber)
}

func attemptKey(attemptID string) string {
	return fmt.Sprintf("payment:attempt:%s", attemptID)
}

func receiptKey(receiptNumber string) string {
	return fmt.Sprintf("payment:receipt:%s", receiptNumber)
}

func paymentChannel(sessionID string) string {
	return fmt.Sprintf("payments:session:%s", sessionID)
}
