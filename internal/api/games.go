package api

import (
	"encoding/json" // JSON encoded form lists
	"errors"        // Error inspection
	"net/http"      // HTTP status codes
	"strconv"       // Bool parsing
	"strings"       // Form parsing

	"vertex_games/internal/domain"  // Domain models
	"vertex_games/internal/service" // Catalog service

	"github.com/gin-gonic/gin" // Gin web framework
)

// ListGamesHandler returns every game, most recent first
func ListGamesHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		games, err := catalog.List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, games)
	}
}

// FeaturedGamesHandler returns featured games, most recent first
func FeaturedGamesHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		games, err := catalog.Featured(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, games)
	}
}

// GetGameHandler returns one game
func GetGameHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		game, err := catalog.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, game)
	}
}

// CreateGameHandler accepts a multipart form with the game fields and an "image" file
func CreateGameHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		featured, err := formBool(c.PostForm("featured"))
		if err != nil {
			respondError(c, err)
			return
		}
		techs, err := formList(c, "technologies")
		if err != nil {
			respondError(c, err)
			return
		}
		fields := domain.GameFields{
			Title:        c.PostForm("title"),
			Description:  c.PostForm("description"),
			Category:     c.PostForm("category"),
			Technologies: techs,
			Featured:     featured,
		}
		image, closeImage, err := formImage(c)
		if err != nil {
			respondError(c, err)
			return
		}
		defer closeImage()
		game, err := catalog.Create(c.Request.Context(), fields, image)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, game)
	}
}

// UpdateGameHandler applies a partial update from a JSON body, or from a
// multipart form that may also carry a replacement image
func UpdateGameHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		var patch domain.GamePatch
		var image *service.ImageUpload
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			if patch, err = formPatch(c); err != nil {
				respondError(c, err)
				return
			}
			var closeImage func()
			if image, closeImage, err = formImage(c); err != nil {
				respondError(c, err)
				return
			}
			defer closeImage()
		} else if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		game, err := catalog.Update(c.Request.Context(), id, patch, image)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, game)
	}
}

// DeleteGameHandler removes a game and its reviews
func DeleteGameHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		if err := catalog.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// formImage opens the uploaded "image" file; a missing file yields a nil upload
func formImage(c *gin.Context) (*service.ImageUpload, func(), error) {
	noop := func() {}
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, domain.Validation("invalid multipart form")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &service.ImageUpload{Filename: fh.Filename, Body: f}, func() { _ = f.Close() }, nil
}

// formList reads a repeated form field ("name" or "name[]"). A single value
// may also be a JSON array of strings or a comma separated list.
func formList(c *gin.Context, name string) ([]string, error) {
	values := c.PostFormArray(name)
	if len(values) == 0 {
		values = c.PostFormArray(name + "[]")
	}
	if len(values) != 1 {
		return values, nil
	}
	v := strings.TrimSpace(values[0])
	if strings.HasPrefix(v, "[") {
		var list []string
		if err := json.Unmarshal([]byte(v), &list); err != nil {
			return nil, domain.Validation("%s must be a JSON array of strings", name)
		}
		return list, nil
	}
	if strings.Contains(v, ",") {
		return strings.Split(v, ","), nil
	}
	return values, nil
}

// formBool parses an optional boolean form value
func formBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, domain.Validation("featured must be true or false")
	}
	return b, nil
}

// formPatch builds a patch from the form fields actually sent
func formPatch(c *gin.Context) (domain.GamePatch, error) {
	var patch domain.GamePatch
	if v, ok := c.GetPostForm("title"); ok {
		patch.Title = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		patch.Description = &v
	}
	if v, ok := c.GetPostForm("category"); ok {
		patch.Category = &v
	}
	_, plain := c.GetPostFormArray("technologies")
	_, bracketed := c.GetPostFormArray("technologies[]")
	if plain || bracketed {
		techs, err := formList(c, "technologies")
		if err != nil {
			return patch, err
		}
		patch.Technologies = &techs
	}
	if v, ok := c.GetPostForm("featured"); ok {
		b, err := formBool(v)
		if err != nil {
			return patch, err
		}
		patch.Featured = &b
	}
	return patch, nil
}
