package listings

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockListingRepository) List(ctx context.Context) ([]domain.Listing, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Listing), args.Error(1)
}

func (m *MockListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetListings(ctx context.Context) ([]domain.Listing, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Listing), args.Error(1)
}

func (m *MockCache) SetListings(ctx context.Context, listings []domain.Listing) error {
	args := m.Called(ctx, listings)
	return args.Error(0)
}

func (m *MockCache) InvalidateListings(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func sampleListings() []domain.Listing {
	return []domain.Listing{
		{ID: "l1", Name: "Diani Beach House", PricePerNight: 120, Amenities: []string{"wifi", "pool"}},
	}
}

func TestListingService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockListingRepository{}
	mockCache := &MockCache{}
	service := NewListingService(mockRepo, mockCache, zap.NewNop())

	ctx := context.Background()
	listings := sampleListings()

	mockCache.On("GetListings", ctx).Return(([]domain.Listing)(nil), nil).Once()
	mockRepo.On("List", ctx).Return(listings, nil).Once()
	mockCache.On("SetListings", ctx, listings).Return(nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, listings, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestListingService_List_CacheHit(t *testing.T) {
	mockRepo := &MockListingRepository{}
	mockCache := &MockCache{}
	service := NewListingService(mockRepo, mockCache, zap.NewNop())

	ctx := context.Background()
	listings := sampleListings()

	mockCache.On("GetListings", ctx).Return(listings, nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, listings, result)
	mockRepo.AssertNotCalled(t, "List", mock.Anything)
}

func TestListingService_List_CacheErrorFallsBack(t *testing.T) {
	mockRepo := &MockListingRepository{}
	mockCache := &MockCache{}
	service := NewListingService(mockRepo, mockCache, zap.NewNop())

	ctx := context.Background()
	listings := sampleListings()

	mockCache.On("GetListings", ctx).Return(([]domain.Listing)(nil), errors.New("cache error")).Once()
	mockRepo.On("List", ctx).Return(listings, nil).Once()
	mockCache.On("SetListings", ctx, listings).Return(nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, listings, result)
}

func TestListingService_List_RepositoryError(t *testing.T) {
	mockRepo := &MockListingRepository{}
	mockCache := &MockCache{}
	service := NewListingService(mockRepo, mockCache, zap.NewNop())

	ctx := context.Background()
	expectedErr := errors.New("database error")

	mockCache.On("GetListings", ctx).Return(([]domain.Listing)(nil), nil).Once()
	mockRepo.On("List", ctx).Return([]domain.Listing{}, expectedErr).Once()

	result, err := service.List(ctx)

	assert.Equal(t, expectedErr, err)
	assert.Nil(t, result)
	mockCache.AssertNotCalled(t, "SetListings", mock.Anything, mock.Anything)
}

func TestListingService_NoCache(t *testing.T) {
	mockRepo := &MockListingRepository{}
	service := NewListingService(mockRepo, nil, nil)

	ctx := context.Background()
	listings := sampleListings()
	mockRepo.On("List", ctx).Return(listings, nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, listings, result)
	mockRepo.AssertExpectations(t)
}

func TestListingService_Create(t *testing.T) {
	t.Run("invalidates cache", func(t *testing.T) {
		mockRepo := &MockListingRepository{}
		mockCache := &MockCache{}
		service := NewListingService(mockRepo, mockCache, zap.NewNop())

		ctx := context.Background()
		listing := &domain.Listing{Name: " Diani Beach House ", PricePerNight: 120}

		mockRepo.On("Create", ctx, listing).Return(nil).Once()
		mockCache.On("InvalidateListings", ctx).Return(nil).Once()

		require.NoError(t, service.Create(ctx, listing))
		assert.Equal(t, "Diani Beach House", listing.Name)
		mockCache.AssertExpectations(t)
	})

	t.Run("rejects missing price", func(t *testing.T) {
		mockRepo := &MockListingRepository{}
		service := NewListingService(mockRepo, nil, zap.NewNop())

		err := service.Create(context.Background(), &domain.Listing{Name: "Cabin"})

		assert.True(t, domain.IsValidation(err))
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestListingService_NightlyRate(t *testing.T) {
	t.Run("explicit listing", func(t *testing.T) {
		mockRepo := &MockListingRepository{}
		service := NewListingService(mockRepo, nil, zap.NewNop())

		ctx := context.Background()
		mockRepo.On("GetByID", ctx, "l2").Return(&domain.Listing{ID: "l2", PricePerNight: 80}, nil).Once()

		rate, id, err := service.NightlyRate(ctx, "l2")
		require.NoError(t, err)
		assert.Equal(t, 80.0, rate)
		assert.Equal(t, "l2", id)
	})

	t.Run("defaults to first listing", func(t *testing.T) {
		mockRepo := &MockListingRepository{}
		service := NewListingService(mockRepo, nil, zap.NewNop())

		ctx := context.Background()
		mockRepo.On("List", ctx).Return(sampleListings(), nil).Once()

		rate, id, err := service.NightlyRate(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 120.0, rate)
		assert.Equal(t, "l1", id)
	})

	t.Run("no listings", func(t *testing.T) {
		mockRepo := &MockListingRepository{}
		service := NewListingService(mockRepo, nil, zap.NewNop())

		ctx := context.Background()
		mockRepo.On("List", ctx).Return([]domain.Listing{}, nil).Once()

		_, _, err := service.NightlyRate(ctx, "")
		assert.True(t, domain.IsNotFound(err))
	})
}
