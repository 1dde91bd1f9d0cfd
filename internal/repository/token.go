package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"echoverse/internal/models"
	"echoverse/internal/observability"

	"gorm.io/gorm"
)

// TokenRepository is the ledger of single-use auth tokens. A token is spent
// by deleting its row in the same transaction that reads it, so two
// concurrent consumers cannot both succeed.
type TokenRepository interface {
	Issue(ctx context.Context, userID uint, purpose, payload string, ttl time.Duration) (*models.AuthToken, error)
	Consume(ctx context.Context, token, purpose string) (*models.AuthToken, error)
	ConsumeEmailChange(ctx context.Context, token string) (*models.AuthToken, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository returns a new TokenRepository implementation.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// newTokenValue returns a 32-character hex token from a CSPRNG.
func newTokenValue() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// Issue creates a fresh token for the user and purpose. Outstanding tokens
// of the same purpose stay valid; each is an independent single-use link.
func (r *tokenRepository) Issue(ctx context.Context, userID uint, purpose, payload string, ttl time.Duration) (*models.AuthToken, error) {
	token := &models.AuthToken{
		UserID:    userID,
		Token:     newTokenValue(),
		Purpose:   purpose,
		Payload:   payload,
		ExpiresAt: time.Now().Add(ttl),
	}

	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.TokensIssued.WithLabelValues(purpose).Inc()
	return token, nil
}

// Consume spends the token. Missing, expired and already-spent tokens are
// indistinguishable to the caller.
func (r *tokenRepository) Consume(ctx context.Context, token, purpose string) (*models.AuthToken, error) {
	var row models.AuthToken

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("token = ? AND purpose = ? AND expires_at > ?", token, purpose, time.Now()).
			First(&row).Error
		if err != nil {
			return err
		}
		return tx.Delete(&models.AuthToken{}, row.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.TokensConsumed.WithLabelValues(purpose, "rejected").Inc()
			return nil, models.NewInvalidTokenError()
		}
		return nil, models.NewInternalError(err)
	}

	observability.TokensConsumed.WithLabelValues(purpose, "ok").Inc()
	return &row, nil
}

// ConsumeEmailChange spends an email-change token and applies the pending
// address in one transaction. The target address is re-checked for
// uniqueness at consumption time because another account may have claimed it
// since the token was issued; in that case the transaction rolls back and
// the token stays spendable.
func (r *tokenRepository) ConsumeEmailChange(ctx context.Context, token string) (*models.AuthToken, error) {
	var row models.AuthToken

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("token = ? AND purpose = ? AND expires_at > ?",
			token, models.TokenPurposeChangeEmail, time.Now()).
			First(&row).Error
		if err != nil {
			return err
		}

		newEmail := strings.ToLower(row.Payload)
		var taken int64
		if err := tx.Model(&models.User{}).Where("email = ?", newEmail).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return models.NewConflictError("Email is already registered")
		}

		if err := tx.Model(&models.User{}).Where("id = ?", row.UserID).
			Update("email", newEmail).Error; err != nil {
			return err
		}
		return tx.Delete(&models.AuthToken{}, row.ID).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			observability.TokensConsumed.WithLabelValues(models.TokenPurposeChangeEmail, "rejected").Inc()
			return nil, appErr
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.TokensConsumed.WithLabelValues(models.TokenPurposeChangeEmail, "rejected").Inc()
			return nil, models.NewInvalidTokenError()
		}
		return nil, models.NewInternalError(err)
	}

	observability.TokensConsumed.WithLabelValues(models.TokenPurposeChangeEmail, "ok").Inc()
	return &row, nil
}

// PurgeExpired removes tokens past their expiry. Expiry is otherwise lazy;
// an expired row that is never purged still cannot be consumed.
func (r *tokenRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&models.AuthToken{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
