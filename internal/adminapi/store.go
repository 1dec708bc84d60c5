package adminapi

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned for unknown user IDs.
var ErrUserNotFound = errors.New("user not found")

// User is a demo account served by the admin API.
type User struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email" yaml:"email"`
	Role      string    `json:"role" yaml:"role"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=80"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin editor viewer"`
}

// Store keeps users in memory, ordered by creation.
type Store struct {
	mu    sync.RWMutex
	users []User
	byID  map[string]int
	now   func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		byID: make(map[string]int),
		now:  time.Now,
	}
}

var demoRoles = []string{"admin", "editor", "viewer", "viewer"}

// Seed adds n generated users.
func (s *Store) Seed(n int) {
	for i := 1; i <= n; i++ {
		s.Create(CreateUserRequest{
			Name:  fmt.Sprintf("User %03d", i),
			Email: fmt.Sprintf("user%03d@example.com", i),
			Role:  demoRoles[i%len(demoRoles)],
		})
	}
}

// Create stores a new user. Role defaults to viewer.
func (s *Store) Create(req CreateUserRequest) User {
	role := req.Role
	if role == "" {
		role = "viewer"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Role:      role,
		CreatedAt: s.now().UTC(),
	}
	s.byID[u.ID] = len(s.users)
	s.users = append(s.users, u)
	return u
}

// Get returns the user with the given ID.
func (s *Store) Get(id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return s.users[i], nil
}

// Delete removes the user with the given ID and returns it.
func (s *Store) Delete(id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	u := s.users[i]
	s.users = append(s.users[:i], s.users[i+1:]...)

	delete(s.byID, id)
	for j := i; j < len(s.users); j++ {
		s.byID[s.users[j].ID] = j
	}
	return u, nil
}

// List returns one page of users and the total count. Pages past the end
// are empty.
func (s *Store) List(page, limit int) ([]User, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.users)
	start := (page - 1) * limit
	if start >= total {
		return []User{}, total
	}
	end := min(start+limit, total)

	out := make([]User, end-start)
	copy(out, s.users[start:end])
	return out, total
}

// Count returns the number of users.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Roles returns the number of users per role, sorted by role name.
func (s *Store) Roles() []RoleCount {
	s.mu.RLock()
	counts := make(map[string]int)
	for _, u := range s.users {
		counts[u.Role]++
	}
	s.mu.RUnlock()

	out := make([]RoleCount, 0, len(counts))
	for role, n := range counts {
		out = append(out, RoleCount{Role: role, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out
}

// RoleCount is one entry of Stats.Roles.
type RoleCount struct {
	Role  string `json:"role" yaml:"role"`
	Count int    `json:"count" yaml:"count"`
}
