package service

import (
	"context"      // Request scoped context
	"errors"       // Error inspection
	"fmt"          // Error wrapping
	"strings"      // Input normalisation
	"unicode/utf8" // Password length in characters

	"vertex_games/internal/db"     // Store helpers
	"vertex_games/internal/domain" // Domain models and errors
	"vertex_games/internal/utils"  // JWT helpers

	"github.com/sirupsen/logrus" // Logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

// AuthService verifies credentials and issues session tokens
type AuthService struct {
	db     *gorm.DB // Credential store
	secret string   // JWT signing secret
	cost   int      // bcrypt cost
}

// NewAuthService creates an AuthService signing tokens with secret
func NewAuthService(db *gorm.DB, secret string) *AuthService {
	return &AuthService{db: db, secret: secret, cost: bcrypt.DefaultCost}
}

// WithBcryptCost overrides the hashing cost, mainly to keep tests fast
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// LoginResult is returned on successful authentication
type LoginResult struct {
	Token string          `json:"access_token"` // Signed session token, key expected by the web client
	User  domain.Identity `json:"user"`         // Public identity
}

// Login checks username and password and returns a signed token
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithField("username", username).Warn("Login failed: unknown user")
		return nil, domain.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	// Compare provided password with stored hash
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		logrus.WithField("user_id", user.ID).Warn("Login failed: wrong password")
		return nil, domain.Unauthorized("invalid credentials")
	}
	token, err := utils.GenerateJWT(user.ID, user.Username, user.Role, s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &LoginResult{Token: token, User: user.Identity()}, nil
}

// Register creates a regular user account
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.Identity, error) {
	user, err := s.createUser(ctx, username, password, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")
	id := user.Identity()
	return &id, nil
}

// ValidateToken returns the claims of a valid, unexpired token
func (s *AuthService) ValidateToken(token string) (*utils.Claims, error) {
	claims, err := utils.ParseJWT(token, s.secret)
	if err != nil {
		return nil, domain.Unauthorized("invalid or expired token")
	}
	return claims, nil
}

// User loads a user by ID
func (s *AuthService) User(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("user with ID %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// ProvisionAdmin makes sure an admin account with the given credentials exists.
// It reports whether a new account was created. An existing non-admin account
// with the same username is a conflict and is never promoted.
func (s *AuthService) ProvisionAdmin(ctx context.Context, username, password string) (bool, error) {
	var existing domain.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&existing).Error
	switch {
	case err == nil && existing.IsAdmin():
		return false, nil // Already provisioned
	case err == nil:
		return false, domain.Conflict("user %q exists and is not an admin", existing.Username)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, fmt.Errorf("failed to look up admin: %w", err)
	}
	user, err := s.createUser(ctx, username, password, domain.RoleAdmin)
	if err != nil {
		return false, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("Admin account provisioned")
	return true, nil
}

// createUser validates input, hashes the password and stores the user
func (s *AuthService) createUser(ctx context.Context, username, password, role string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.Validation("username is required")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, domain.Validation("password must be at least %d characters", MinPasswordLength)
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return nil, domain.Conflict("username is already taken")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, domain.Validation("password must be at most 72 bytes")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := domain.User{Username: username, Password: string(hash), Role: role}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if db.IsDuplicate(err) {
			return nil, domain.Conflict("username is already taken") // Lost a race with a concurrent registration
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}
