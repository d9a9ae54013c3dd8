package revocation

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bazaarmate/backend/internal/models"
)

// Store is the durable jti blacklist consulted on every authenticated
// request. Inserts are idempotent so concurrent logouts for the same token
// both succeed.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	rec := models.RevokedToken{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("revoke jti: %w", err)
	}
	return nil
}

func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.RevokedToken{}).
		Where("jti = ?", jti).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	return count > 0, nil
}

// PurgeExpired drops records whose token already expired. Maintenance only:
// verification rejects expired tokens before ever asking the store.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.DB.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.RevokedToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge revocations: %w", result.Error)
	}
	return result.RowsAffected, nil
}
