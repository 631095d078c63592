package listings

import (
	"context"
	"strings"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
	"go.uber.org/zap"
)

type ListingUseCase interface {
	List(ctx context.Context) ([]domain.Listing, error)
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	Create(ctx context.Context, listing *domain.Listing) error
	NightlyRate(ctx context.Context, listingID string) (float64, string, error)
}

type ListingCache interface {
	GetListings(ctx context.Context) ([]domain.Listing, error)
	SetListings(ctx context.Context, listings []domain.Listing) error
	InvalidateListings(ctx context.Context) error
}

type ListingService struct {
	repo   repository.ListingRepository
	cache  ListingCache
	logger *zap.Logger
}

func NewListingService(repo repository.ListingRepository, cache ListingCache, logger *zap.Logger) *ListingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingService{repo: repo, cache: cache, logger: logger}
}

func (s *ListingService) List(ctx context.Context) ([]domain.Listing, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetListings(ctx); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			s.logger.Debug("listings cache read failed", zap.Error(err))
		}
	}

	listings, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetListings(ctx, listings); err != nil {
			s.logger.Debug("listings cache write failed", zap.Error(err))
		}
	}
	return listings, nil
}

func (s *ListingService) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ListingService) Create(ctx context.Context, listing *domain.Listing) error {
	listing.Name = strings.TrimSpace(listing.Name)
	if listing.Name == "" {
		return domain.ValidationError{Field: "name"}
	}
	if listing.PricePerNight <= 0 {
		return domain.ValidationError{Field: "pricePerNight", Msg: "must be positive"}
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateListings(ctx); err != nil {
			s.logger.Warn("invalidate listings cache", zap.Error(err))
		}
	}
	return nil
}

// NightlyRate returns the price per night and the resolved listing ID. An
// empty listingID picks the first listing, which is the property the site
// shows.
func (s *ListingService) NightlyRate(ctx context.Context, listingID string) (float64, string, error) {
	if listingID != "" {
		listing, err := s.repo.GetByID(ctx, listingID)
		if err != nil {
			return 0, "", err
		}
		return listing.PricePerNight, listing.ID, nil
	}

	listings, err := s.List(ctx)
	if err != nil {
		return 0, "", err
	}
	if len(listings) == 0 {
		return 0, "", domain.NotFoundError{Resource: "listing"}
	}
	return listings[0].PricePerNight, listings[0].ID, nil
}

var _ ListingUseCase = (*ListingService)(nil)
