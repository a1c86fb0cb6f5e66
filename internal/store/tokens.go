package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/serroba/shortlinks/internal/auth"
	"github.com/serroba/shortlinks/internal/tablestore"
)

const propExpiresAt = "expiresAt"

// RefreshTokenRepository stores refresh token records partitioned by user id.
type RefreshTokenRepository struct {
	table tablestore.Table
}

// NewRefreshTokenRepository creates a refresh token repository over table.
func NewRefreshTokenRepository(table tablestore.Table) *RefreshTokenRepository {
	return &RefreshTokenRepository{table: table}
}

func (r *RefreshTokenRepository) Save(ctx context.Context, record *auth.RefreshTokenRecord) error {
	props := tablestore.Properties{}
	props.SetTime(propCreatedAt, record.CreatedAt)
	props.SetTime(propExpiresAt, record.ExpiresAt)

	err := r.table.Create(ctx, tablestore.Entity{
		PartitionKey: record.UserID,
		RowKey:       record.TokenID,
		Properties:   props,
	})
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}

	return nil
}

func (r *RefreshTokenRepository) Get(ctx context.Context, userID, tokenID string) (*auth.RefreshTokenRecord, error) {
	e, err := r.table.Get(ctx, userID, tokenID)
	if errors.Is(err, tablestore.ErrNotFound) {
		return nil, auth.ErrTokenNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	return &auth.RefreshTokenRecord{
		UserID:    e.PartitionKey,
		TokenID:   e.RowKey,
		CreatedAt: e.Properties.Time(propCreatedAt),
		ExpiresAt: e.Properties.Time(propExpiresAt),
	}, nil
}

func (r *RefreshTokenRepository) Delete(ctx context.Context, userID, tokenID string) error {
	if err := r.table.Delete(ctx, userID, tokenID); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}

var _ auth.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
