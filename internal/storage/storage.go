package storage

import (
	"bytes"         // In-memory upload buffer
	"context"       // Cancellation
	"fmt"           // Error wrapping
	"image"         // Header inspection
	"io"            // Reader plumbing
	"os"            // Filesystem
	"path/filepath" // Path handling
	"strings"       // Extension handling
	"time"          // Name prefix

	"vertex_games/internal/domain" // Domain errors

	"github.com/disintegration/imaging" // Image decoding and resizing
	"github.com/dustin/go-humanize"     // Readable size limits
	"github.com/google/uuid"            // Unique file names
	"github.com/sirupsen/logrus"        // Logging
)

// MaxImageBytes caps the size of a single upload
const MaxImageBytes = 10 << 20

// MaxImagePixels caps the decoded dimensions of an upload
const MaxImagePixels = 40_000_000

// BlobStore persists uploaded images and hands back a reference path
type BlobStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error) // Store image, return reference
	Delete(ctx context.Context, ref string) error                           // Remove a stored image
}

// formats maps accepted extensions to the encoding used for downscaled copies
var formats = map[string]imaging.Format{
	".jpg":  imaging.JPEG,
	".jpeg": imaging.JPEG,
	".png":  imaging.PNG,
	".gif":  imaging.GIF,
	".bmp":  imaging.BMP,
	".tif":  imaging.TIFF,
	".tiff": imaging.TIFF,
}

// LocalStore keeps images on local disk and serves them under a URL prefix
type LocalStore struct {
	dir       string // Target directory
	urlPrefix string // Public prefix, e.g. /uploads
	maxWidth  int    // Maximum stored width
	maxHeight int    // Maximum stored height
}

// NewLocalStore creates the upload directory if needed
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{
		dir:       dir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		maxWidth:  1920, // Default max width
		maxHeight: 1080, // Default max height
	}, nil
}

// WithMaxSize overrides the downscale bounds
func (s *LocalStore) WithMaxSize(width, height int) *LocalStore {
	s.maxWidth, s.maxHeight = width, height
	return s
}

// Dir returns the directory images are written to
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save validates that r holds a decodable image, downscales it when it exceeds
// the configured bounds and writes it under a unique name.
func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	format, ok := formats[ext]
	if !ok {
		return "", domain.Validation("image must be a JPEG, PNG, GIF, BMP or TIFF file")
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return "", domain.Validation("image must be at most %s", humanize.IBytes(MaxImageBytes))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", domain.Validation("uploaded file is not a valid image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return "", domain.Validation("image dimensions %dx%d exceed %s pixels",
			cfg.Width, cfg.Height, humanize.Comma(MaxImagePixels))
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", domain.Validation("uploaded file is not a valid image")
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)

	bounds := img.Bounds()
	if bounds.Dx() > s.maxWidth || bounds.Dy() > s.maxHeight {
		resized := imaging.Fit(img, s.maxWidth, s.maxHeight, imaging.Lanczos) // Keep aspect ratio
		if err := writeImage(path, resized, format); err != nil {
			return "", fmt.Errorf("failed to save resized image: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"file":   name,
			"from":   fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
			"to":     fmt.Sprintf("%dx%d", resized.Bounds().Dx(), resized.Bounds().Dy()),
			"format": format.String(),
		}).Debug("Image downscaled")
	} else if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return s.urlPrefix + "/" + name, nil
}

// writeImage encodes img in format to a new file at path
func writeImage(path string, img image.Image, format imaging.Format) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := imaging.Encode(f, img, format, imaging.JPEGQuality(85)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// Delete removes the file a reference points to; missing files are not an error
func (s *LocalStore) Delete(_ context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	name := filepath.Base(ref) // Never leave the upload directory
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
