package core

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gatelog.io/gatelog/core/models"
)

// Roles: smaller number means more privilege.
const (
	RoleRoot     = 0
	RoleAdmin    = 1
	RoleOperator = 2
	RoleViewer   = 3
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// HashSecret is the shared digest for passwords and session tokens. Tokens
// are opaque random secrets; only their hash is stored.
func HashSecret(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Authenticate checks a username/password pair against the users table.
func Authenticate(db *gorm.DB, username, password string) (*models.User, error) {
	var user models.User
	err := db.Where("username = ? AND is_active = ?", username, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.PasswordHash != HashSecret(password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// CreateSession issues a fresh opaque token and stores its hash.
func CreateSession(db *gorm.DB, userID uint, ttl time.Duration) (string, error) {
	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	session := models.UserSession{
		UserID:    userID,
		TokenHash: HashSecret(token),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := db.Create(&session).Error; err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// VerifyToken resolves a bearer token to its user via the stored hash.
func VerifyToken(db *gorm.DB, token string) (*models.User, error) {
	var session models.UserSession
	err := db.Preload("User").
		Where("token_hash = ? AND expires_at > ?", HashSecret(token), time.Now()).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if !session.User.IsActive {
		return nil, ErrInvalidCredentials
	}
	return &session.User, nil
}

// DeleteSession invalidates the token; deleting an unknown token is a no-op.
func DeleteSession(db *gorm.DB, token string) error {
	return db.Where("token_hash = ?", HashSecret(token)).Delete(&models.UserSession{}).Error
}

// EnsureInitialAdmin bootstraps a root user when the users table is empty.
func EnsureInitialAdmin(db *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	admin := models.User{
		Username:     "admin",
		Email:        "admin@gatelog.local",
		FullName:     "Administrator",
		PasswordHash: HashSecret("admin123"),
		Role:         RoleRoot,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create initial admin: %w", err)
	}
	if log != nil {
		log.Warn("created initial admin user, change the default password",
			zap.String("username", admin.Username))
	}
	return nil
}
