package domain

import (
	"math"
	"time"
)

// Rating bounds
const (
	MinRating = 1
	MaxRating = 5
)

// Review Model
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                               // Primary key
	GameID    uint      `gorm:"not null;uniqueIndex:idx_review_user_game,priority:2" json:"gameId"` // Reviewed game
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_user_game,priority:1" json:"userId"` // Reviewing user
	Rating    int       `gorm:"type:tinyint;not null" json:"rating"`                                // 1 to 5 stars
	Comment   *string   `gorm:"type:text" json:"comment"`                                           // Optional comment, null when absent
	CreatedAt time.Time `gorm:"index" json:"createdAt"`                                             // Creation time
	User      *User     `gorm:"constraint:OnDelete:CASCADE;" json:"-"`                              // Reviewing user
	Game      *Game     `gorm:"constraint:OnDelete:CASCADE;" json:"-"`                              // Reviewed game, owns the review
}

// ReviewAuthor is the public identity embedded in review responses
type ReviewAuthor struct {
	ID       uint   `json:"id"`       // User ID
	Username string `json:"username"` // Username
}

// ReviewView is a review as returned to clients
type ReviewView struct {
	Review
	User *ReviewAuthor `json:"user,omitempty"` // Author identity
	Game *Game         `json:"game,omitempty"` // Reviewed game, only on single lookups
}

// View builds the client representation, hiding credential material
func (r Review) View() ReviewView {
	v := ReviewView{Review: r}
	if r.User != nil {
		v.User = &ReviewAuthor{ID: r.User.ID, Username: r.User.Username}
	}
	v.Game = r.Game
	return v
}

// RatingSummary is the derived aggregate over a game's reviews
type RatingSummary struct {
	GameID  uint     `json:"gameId"`  // Game ID
	Count   int      `json:"count"`   // Number of reviews
	Average *float64 `json:"average"` // Mean rating rounded to one decimal, null without reviews
}

// AverageRating returns the mean rating rounded to one decimal.
// ok is false when the list is empty.
func AverageRating(reviews []Review) (avg float64, ok bool) {
	if len(reviews) == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	mean := float64(sum) / float64(len(reviews))
	return math.Round(mean*10) / 10, true
}
