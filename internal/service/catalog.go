package service

import (
	"context" // Request scoped context
	"errors"  // Error inspection
	"fmt"     // Error wrapping
	"io"      // Upload stream
	"strings" // Input normalisation

	"vertex_games/internal/domain"  // Domain models and errors
	"vertex_games/internal/storage" // Blob storage
	"vertex_games/internal/utils"   // Cache

	"github.com/samber/lo"       // Slice helpers
	"github.com/sirupsen/logrus" // Logging
	"gorm.io/gorm"               // GORM ORM library
)

// ImageUpload is an uploaded image file
type ImageUpload struct {
	Filename string    // Client supplied name, used for the extension
	Body     io.Reader // File contents
}

// CatalogService manages games
type CatalogService struct {
	db    *gorm.DB          // Catalog store
	blobs storage.BlobStore // Image storage
	cache utils.Cache       // Read cache, may be nil
}

// NewCatalogService creates a CatalogService
func NewCatalogService(db *gorm.DB, blobs storage.BlobStore, cache utils.Cache) *CatalogService {
	return &CatalogService{db: db, blobs: blobs, cache: cache}
}

// Create validates fields, stores the image and inserts the game
func (s *CatalogService) Create(ctx context.Context, fields domain.GameFields, image *ImageUpload) (*domain.Game, error) {
	game := domain.Game{
		Title:        strings.TrimSpace(fields.Title),
		Description:  strings.TrimSpace(fields.Description),
		Category:     strings.TrimSpace(fields.Category),
		Technologies: normalizeTechnologies(fields.Technologies),
		Featured:     fields.Featured,
	}
	switch {
	case game.Title == "":
		return nil, domain.Validation("title is required")
	case game.Description == "":
		return nil, domain.Validation("description is required")
	case game.Category == "":
		return nil, domain.Validation("category is required")
	case image == nil || image.Body == nil:
		return nil, domain.Validation("image is required")
	}

	ref, err := s.blobs.Save(ctx, image.Filename, image.Body)
	if err != nil {
		return nil, err
	}
	game.ImageURL = ref

	if err := s.db.WithContext(ctx).Create(&game).Error; err != nil {
		s.removeBlob(ctx, ref)
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	invalidate(ctx, s.cache, keyGamesAll, keyGamesFeatured)
	logrus.WithFields(logrus.Fields{
		"game_id":  game.ID,
		"title":    game.Title,
		"featured": game.Featured,
	}).Info("Game created")
	return &game, nil
}

// List returns all games, most recent first
func (s *CatalogService) List(ctx context.Context) ([]domain.Game, error) {
	return cached(ctx, s.cache, keyGamesAll, func() ([]domain.Game, error) {
		return s.find(ctx, false)
	})
}

// Featured returns featured games, most recent first
func (s *CatalogService) Featured(ctx context.Context) ([]domain.Game, error) {
	return cached(ctx, s.cache, keyGamesFeatured, func() ([]domain.Game, error) {
		return s.find(ctx, true)
	})
}

func (s *CatalogService) find(ctx context.Context, featuredOnly bool) ([]domain.Game, error) {
	games := []domain.Game{}
	query := s.db.WithContext(ctx).Order("created_at desc").Order("id desc")
	if featuredOnly {
		query = query.Where("featured = ?", true)
	}
	if err := query.Find(&games).Error; err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// Get returns one game
func (s *CatalogService) Get(ctx context.Context, id uint) (*domain.Game, error) {
	game, err := cached(ctx, s.cache, gameKey(id), func() (domain.Game, error) {
		return loadGame(s.db.WithContext(ctx), id)
	})
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// Update applies the fields present in patch. A replacement image, when given,
// is stored first and the previous one is removed once the update commits.
func (s *CatalogService) Update(ctx context.Context, id uint, patch domain.GamePatch, image *ImageUpload) (*domain.Game, error) {
	if err := normalizePatch(&patch); err != nil {
		return nil, err
	}
	var newRef string
	if image != nil && image.Body != nil {
		ref, err := s.blobs.Save(ctx, image.Filename, image.Body)
		if err != nil {
			return nil, err
		}
		newRef = ref
		patch.ImageURL = &newRef
	}

	var game domain.Game
	var oldRef string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if game, err = loadGame(tx, id); err != nil {
			return err
		}
		oldRef = game.ImageURL
		if patch.Empty() {
			return nil // Nothing to change
		}
		patch.Apply(&game)
		return tx.Save(&game).Error
	})
	if err != nil {
		if newRef != "" {
			s.removeBlob(ctx, newRef)
		}
		if domain.KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update game: %w", err)
	}
	if newRef != "" && oldRef != newRef {
		s.removeBlob(ctx, oldRef)
	}
	invalidate(ctx, s.cache, keyGamesAll, keyGamesFeatured, gameKey(id))
	logrus.WithFields(logrus.Fields{
		"game_id":       id,
		"image_changed": newRef != "",
	}).Info("Game updated")
	return &game, nil
}

// Delete removes a game and its reviews in one transaction, then its image
func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	var game domain.Game
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if game, err = loadGame(tx, id); err != nil {
			return err
		}
		// Dependents first so the delete works without native cascade support
		res := tx.Where("game_id = ?", id).Delete(&domain.Review{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Delete(&game).Error
	})
	if err != nil {
		if domain.KindOf(err) != 0 {
			return err
		}
		return fmt.Errorf("failed to delete game: %w", err)
	}
	s.removeBlob(ctx, game.ImageURL)
	invalidate(ctx, s.cache, keyGamesAll, keyGamesFeatured, gameKey(id), reviewsKey(id))
	logrus.WithFields(logrus.Fields{
		"game_id":         id,
		"reviews_removed": removed,
	}).Info("Game deleted")
	return nil
}

// removeBlob deletes an image, only logging failures
func (s *CatalogService) removeBlob(ctx context.Context, ref string) {
	if err := s.blobs.Delete(ctx, ref); err != nil {
		logrus.WithFields(logrus.Fields{"image": ref, "error": err.Error()}).Warn("Failed to remove image")
	}
}

// loadGame fetches a game, mapping a missing row to NotFound
func loadGame(tx *gorm.DB, id uint) (domain.Game, error) {
	var game domain.Game
	err := tx.First(&game, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return game, domain.NotFound("game with ID %d not found", id)
	}
	if err != nil {
		return game, fmt.Errorf("failed to load game: %w", err)
	}
	return game, nil
}

// normalizeTechnologies trims entries and drops blanks, keeping order
func normalizeTechnologies(in []string) []string {
	return lo.FilterMap(in, func(t string, _ int) (string, bool) {
		t = strings.TrimSpace(t)
		return t, t != ""
	})
}

// normalizePatch trims present text fields and rejects ones that end up empty
func normalizePatch(p *domain.GamePatch) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"title", p.Title},
		{"description", p.Description},
		{"category", p.Category},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return domain.Validation("%s must not be empty", f.name)
		}
	}
	if p.Technologies != nil {
		techs := normalizeTechnologies(*p.Technologies)
		p.Technologies = &techs
	}
	return nil
}
