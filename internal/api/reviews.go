package api

import (
	"net/http" // HTTP status codes

	"vertex_games/internal/domain"     // Domain errors
	"vertex_games/internal/middleware" // Context helpers
	"vertex_games/internal/service"    // Review service

	"github.com/gin-gonic/gin" // Gin web framework
)

// CreateReviewRequest represents a review submission
type CreateReviewRequest struct {
	GameID  uint    `json:"gameId" binding:"required"` // Reviewed game
	UserID  *uint   `json:"userId"`                    // Reviewer, taken from the token when present
	Rating  int     `json:"rating"`                    // 1 to 5
	Comment *string `json:"comment"`                   // Optional comment
}

// CreateReviewHandler stores a review for the caller
func CreateReviewHandler(reviews *service.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateReviewRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "gameId and an integer rating are required"})
			return
		}
		userID := req.UserID
		// An authenticated caller can only review as themselves
		if tokenID, ok := middleware.UserID(c); ok {
			if userID != nil && *userID != tokenID {
				respondError(c, domain.Forbidden("you can only submit reviews as yourself"))
				return
			}
			userID = &tokenID
		}
		review, err := reviews.Create(c.Request.Context(), service.CreateReviewInput{
			GameID:  req.GameID,
			UserID:  userID,
			Rating:  req.Rating,
			Comment: req.Comment,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, review)
	}
}

// ListGameReviewsHandler returns a game's reviews with author identities
func ListGameReviewsHandler(reviews *service.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := parseID(c, "gameId")
		if err != nil {
			respondError(c, err)
			return
		}
		list, err := reviews.ListByGame(c.Request.Context(), gameID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// ReviewSummaryHandler returns the review count and average rating of a game
func ReviewSummaryHandler(reviews *service.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := parseID(c, "gameId")
		if err != nil {
			respondError(c, err)
			return
		}
		summary, err := reviews.Summary(c.Request.Context(), gameID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// GetReviewHandler returns one review
func GetReviewHandler(reviews *service.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		review, err := reviews.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, review)
	}
}
