package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/spotdiff/internal/models"
	"github.com/desertthunder/spotdiff/internal/shared"
)

// UserCache memoizes user lookups in front of a [UserRepository].
//
// Entries are never evicted. Not safe for concurrent use; a single pass owns it.
type UserCache struct {
	repo  *UserRepository
	users map[string]models.User
}

// NewUserCache creates an empty cache backed by repo.
func NewUserCache(repo *UserRepository) *UserCache {
	return &UserCache{repo: repo, users: make(map[string]models.User)}
}

// Get returns the user for id, consulting memory first and then the store.
//
// A user absent from both returns nil with a nil error. An empty id is always absent.
func (c *UserCache) Get(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, nil
	}

	if user, ok := c.users[id]; ok {
		return &user, nil
	}

	user, err := c.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cached user: %w", err)
	}

	c.users[id] = *user
	return user, nil
}

// Add writes user through to the store, then records it in memory.
func (c *UserCache) Add(ctx context.Context, user models.User) error {
	if err := c.repo.Upsert(ctx, user); err != nil {
		return err
	}
	c.users[user.ID] = user
	return nil
}

// Len reports how many users are held in memory.
func (c *UserCache) Len() int {
	return len(c.users)
}
