package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// ListOverlapping returns bookings sharing a night with [checkIn, checkOut).
	ListOverlapping(ctx context.Context, checkIn, checkOut time.Time) ([]domain.Booking, error)
}

type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	List(ctx context.Context) ([]domain.Listing, error)
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	List(ctx context.Context) ([]domain.Review, error)
}
