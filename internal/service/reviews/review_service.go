package reviews

import (
	"context"
	"strings"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/repository"
)

type ReviewUseCase interface {
	List(ctx context.Context) ([]domain.Review, error)
	AddRating(ctx context.Context, value int) (*domain.Review, error)
	AddComment(ctx context.Context, text string) (*domain.Review, error)
	Summary(ctx context.Context) (Summary, error)
}

// Summary is computed on read; averages are never stored.
type Summary struct {
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
	Comments int     `json:"comments"`
}

type ReviewService struct {
	repo repository.ReviewRepository
}

func NewReviewService(repo repository.ReviewRepository) *ReviewService {
	return &ReviewService{repo: repo}
}

func (s *ReviewService) List(ctx context.Context) ([]domain.Review, error) {
	return s.repo.List(ctx)
}

func (s *ReviewService) AddRating(ctx context.Context, value int) (*domain.Review, error) {
	if value < domain.MinRating || value > domain.MaxRating {
		return nil, domain.ValidationError{Field: "value", Msg: "must be between 1 and 5"}
	}
	review := &domain.Review{Value: &value}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) AddComment(ctx context.Context, text string) (*domain.Review, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ValidationError{Field: "text"}
	}
	review := &domain.Review{Text: text}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) Summary(ctx context.Context) (Summary, error) {
	reviews, err := s.repo.List(ctx)
	if err != nil {
		return Summary{}, err
	}

	var (
		values   []int
		comments int
	)
	for _, r := range reviews {
		if r.Value != nil {
			values = append(values, *r.Value)
		}
		if r.Text != "" {
			comments++
		}
	}
	return Summary{Average: domain.AverageRating(values), Count: len(values), Comments: comments}, nil
}

var _ ReviewUseCase = (*ReviewService)(nil)
