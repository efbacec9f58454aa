package service

import (
	"context" // Request scoped context
	"errors"  // Error inspection
	"fmt"     // Error wrapping
	"strings" // Comment trimming

	"vertex_games/internal/db"     // Store helpers
	"vertex_games/internal/domain" // Domain models and errors
	"vertex_games/internal/utils"  // Cache

	"github.com/sirupsen/logrus" // Logging
	"gorm.io/gorm"               // GORM ORM library
)

// CreateReviewInput carries a review submission
type CreateReviewInput struct {
	GameID  uint    // Reviewed game
	UserID  *uint   // Reviewing user, nil when the caller is anonymous
	Rating  int     // 1 to 5
	Comment *string // Optional comment
}

// ReviewService manages reviews
type ReviewService struct {
	db    *gorm.DB    // Review store
	cache utils.Cache // Read cache, may be nil
}

// NewReviewService creates a ReviewService
func NewReviewService(db *gorm.DB, cache utils.Cache) *ReviewService {
	return &ReviewService{db: db, cache: cache}
}

// Create stores a review. A user can review a game only once; the unique index
// on (user_id, game_id) settles concurrent submissions.
func (s *ReviewService) Create(ctx context.Context, in CreateReviewInput) (*domain.ReviewView, error) {
	if in.UserID == nil || *in.UserID == 0 {
		return nil, domain.Validation("you must be logged in to write a review")
	}
	if in.Rating < domain.MinRating || in.Rating > domain.MaxRating {
		return nil, domain.Validation("rating must be between %d and %d", domain.MinRating, domain.MaxRating)
	}
	var comment *string
	if in.Comment != nil {
		c := strings.TrimSpace(*in.Comment)
		if c == "" {
			return nil, domain.Validation("comment must not be empty when provided")
		}
		comment = &c
	}

	store := s.db.WithContext(ctx)
	if _, err := loadGame(store, in.GameID); err != nil {
		return nil, err
	}
	var user domain.User
	if err := store.First(&user, *in.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.Validation("user with ID %d does not exist", *in.UserID)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var count int64
	if err := store.Model(&domain.Review{}).
		Where("user_id = ? AND game_id = ?", user.ID, in.GameID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if count > 0 {
		return nil, errDuplicateReview()
	}

	review := domain.Review{GameID: in.GameID, UserID: user.ID, Rating: in.Rating, Comment: comment}
	if err := store.Omit("User", "Game").Create(&review).Error; err != nil {
		if db.IsDuplicate(err) {
			return nil, errDuplicateReview() // Concurrent submission won the race
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	invalidate(ctx, s.cache, reviewsKey(in.GameID))
	logrus.WithFields(logrus.Fields{
		"review_id": review.ID,
		"game_id":   review.GameID,
		"user_id":   review.UserID,
		"rating":    review.Rating,
	}).Info("Review created")

	review.User = &user
	view := review.View()
	return &view, nil
}

func errDuplicateReview() error {
	return domain.Conflict("you already reviewed this game")
}

// ListByGame returns a game's reviews, most recent first, with author identities.
// An unknown game yields an empty list.
func (s *ReviewService) ListByGame(ctx context.Context, gameID uint) ([]domain.ReviewView, error) {
	return cached(ctx, s.cache, reviewsKey(gameID), func() ([]domain.ReviewView, error) {
		var reviews []domain.Review
		if err := s.db.WithContext(ctx).
			Preload("User").
			Where("game_id = ?", gameID).
			Order("created_at desc").Order("id desc").
			Find(&reviews).Error; err != nil {
			return nil, fmt.Errorf("failed to list reviews: %w", err)
		}
		views := make([]domain.ReviewView, len(reviews))
		for i, r := range reviews {
			views[i] = r.View()
		}
		return views, nil
	})
}

// Get returns one review with its author and game
func (s *ReviewService) Get(ctx context.Context, id uint) (*domain.ReviewView, error) {
	var review domain.Review
	err := s.db.WithContext(ctx).Preload("User").Preload("Game").First(&review, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("review with ID %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load review: %w", err)
	}
	view := review.View()
	return &view, nil
}

// Summary returns the review count and average rating of a game
func (s *ReviewService) Summary(ctx context.Context, gameID uint) (*domain.RatingSummary, error) {
	views, err := s.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, len(views))
	for i, v := range views {
		reviews[i] = v.Review
	}
	summary := &domain.RatingSummary{GameID: gameID, Count: len(reviews)}
	if avg, ok := domain.AverageRating(reviews); ok {
		summary.Average = &avg
	}
	return summary, nil
}
