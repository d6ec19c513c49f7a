package repository

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"usersvc/api/internal/models"
	"usersvc/api/internal/pagination"
)

// MemoryUserRepository is an in-memory drop-in for UserRepository with
// the same window and probe semantics. It backs tests and local runs
// without a database.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[primitive.ObjectID]models.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return ErrEmailTaken
		}
	}

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			user := user
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepository) EmailInUse(_ context.Context, email string, exclude primitive.ObjectID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, user := range r.users {
		if user.Email == email && id != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryUserRepository) Replace(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	for id, existing := range r.users {
		if existing.Email == user.Email && id != user.ID {
			return ErrEmailTaken
		}
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

// Count supports the filters the service actually issues: empty, by
// role, and by verified flag.
func (r *MemoryUserRepository) Count(_ context.Context, filter bson.M) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, user := range r.users {
		if role, ok := filter["role"]; ok && user.Role != role {
			continue
		}
		if verified, ok := filter["verified"]; ok && user.Verified != verified {
			continue
		}
		count++
	}
	return count, nil
}

func (r *MemoryUserRepository) Window(_ context.Context, args pagination.Args) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	window := make([]models.User, 0, len(r.users))
	for _, user := range r.sortedDesc() {
		switch {
		case args.Before != nil:
			if idLess(*args.Before, user.ID) {
				window = append(window, user)
			}
		case args.After != nil:
			if idLess(user.ID, *args.After) {
				window = append(window, user)
			}
		default:
			window = append(window, user)
		}
	}

	if len(window) > args.Limit() {
		window = window[:args.Limit()]
	}
	return window, nil
}

func (r *MemoryUserRepository) ExistsNewer(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for other := range r.users {
		if idLess(id, other) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryUserRepository) ExistsOlder(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for other := range r.users {
		if idLess(other, id) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryUserRepository) sortedDesc() []models.User {
	sorted := make([]models.User, 0, len(r.users))
	for _, user := range r.users {
		sorted = append(sorted, user)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return idLess(sorted[j].ID, sorted[i].ID)
	})
	return sorted
}

func idLess(a, b primitive.ObjectID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
