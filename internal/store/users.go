package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/serroba/shortlinks/internal/auth"
	"github.com/serroba/shortlinks/internal/tablestore"
)

// UserPartition holds every account.
const UserPartition = "user"

const (
	propEmail        = "email"
	propName         = "name"
	propPasswordHash = "passwordHash"
)

// UserRepository stores accounts in a single partition keyed by user id.
type UserRepository struct {
	table tablestore.Table
}

// NewUserRepository creates a user repository over table.
func NewUserRepository(table tablestore.Table) *UserRepository {
	return &UserRepository{table: table}
}

func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	props := tablestore.Properties{
		propEmail:        user.Email,
		propName:         user.Name,
		propPasswordHash: user.PasswordHash,
	}
	props.SetTime(propCreatedAt, user.CreatedAt)

	err := r.table.Create(ctx, tablestore.Entity{
		PartitionKey: UserPartition,
		RowKey:       user.ID,
		Properties:   props,
	})
	if err != nil {
		return fmt.Errorf("create user %s: %w", user.ID, err)
	}

	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*auth.User, error) {
	e, err := r.table.Get(ctx, UserPartition, id)
	if errors.Is(err, tablestore.ErrNotFound) {
		return nil, auth.ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}

	return entityToUser(e), nil
}

// FindByEmail scans the user partition for an exact email match.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	q := tablestore.Query{
		Partition: UserPartition,
		Equals:    map[string]string{propEmail: email},
	}

	for e, err := range r.table.Query(ctx, q) {
		if err != nil {
			return nil, fmt.Errorf("find user by email: %w", err)
		}

		return entityToUser(e), nil
	}

	return nil, auth.ErrUserNotFound
}

func entityToUser(e tablestore.Entity) *auth.User {
	return &auth.User{
		ID:           e.RowKey,
		Email:        e.Properties[propEmail],
		Name:         e.Properties[propName],
		PasswordHash: e.Properties[propPasswordHash],
		CreatedAt:    e.Properties.Time(propCreatedAt),
	}
}

var _ auth.UserRepository = (*UserRepository)(nil)
