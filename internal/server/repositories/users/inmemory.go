package users

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/taskvault/taskvault/internal/common"
	"github.com/taskvault/taskvault/internal/server/models"
)

// InMemoryRepository keeps users in a map, keyed by username.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]models.User)}
}

func (r *InMemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.UserName]; exists {
		return nil, fmt.Errorf("username taken: %s", user.UserName)
	}
	user.ID = uuid.NewString()
	r.users[user.UserName] = *user
	return user, nil
}

func (r *InMemoryRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &user, nil
}
