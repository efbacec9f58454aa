package domain

import "time"

// Game Model
type Game struct {
	ID           uint      `gorm:"primaryKey" json:"id"`                          // Primary key
	Title        string    `gorm:"size:255;not null" json:"title"`                // Game title
	Description  string    `gorm:"type:text;not null" json:"description"`         // Long description
	ImageURL     string    `gorm:"size:512;not null" json:"imageUrl"`             // Reference returned by blob storage
	Category     string    `gorm:"size:100;not null" json:"category"`             // Category, e.g. VR
	Technologies []string  `gorm:"serializer:json;type:text" json:"technologies"` // Ordered technology tags
	Featured     bool      `gorm:"not null;default:false;index" json:"featured"`  // Promoted on the home page
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`                        // Creation time
	UpdatedAt    time.Time `json:"updatedAt"`                                     // Last update time
}

// GameFields are the values an admin supplies when creating a game
type GameFields struct {
	Title        string
	Description  string
	Category     string
	Technologies []string
	Featured     bool
}

// GamePatch is a partial update; nil fields keep their stored value
type GamePatch struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Category     *string   `json:"category"`
	Technologies *[]string `json:"technologies"`
	Featured     *bool     `json:"featured"`
	ImageURL     *string   `json:"-"` // Set only from an uploaded replacement image
}

// Empty reports whether the patch carries no fields at all
func (p GamePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Technologies == nil && p.Featured == nil && p.ImageURL == nil
}

// Apply merges the present fields of the patch into g
func (p GamePatch) Apply(g *Game) {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	if p.Technologies != nil {
		g.Technologies = append([]string{}, (*p.Technologies)...)
	}
	if p.Featured != nil {
		g.Featured = *p.Featured
	}
	if p.ImageURL != nil {
		g.ImageURL = *p.ImageURL
	}
}
