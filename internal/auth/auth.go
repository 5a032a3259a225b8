// Package auth decides which Telegram users may talk to MindMate.
package auth

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName returns @username when known, otherwise the full name, otherwise
// the numeric id.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return fmt.Sprintf("%d", u.ID)
}

type Repository interface {
	LoadAll() ([]User, error)
	Upsert(user User) error
	Remove(userID int64) error
}

type Option func(*Service)

// WithOpenAccess lets every user in without approval.
func WithOpenAccess(open bool) Option {
	return func(s *Service) { s.open = open }
}

// WithAdmin always allows the admin user.
func WithAdmin(id int64) Option {
	return func(s *Service) { s.admin = id }
}

type Service struct {
	repo  Repository
	open  bool
	admin int64

	mu           sync.RWMutex
	allowedUsers map[int64]User
}

// NewWithRepo builds the allowlist from repo (when not nil) merged with the
// initial ids from configuration.
func NewWithRepo(repo Repository, initial []int64, opts ...Option) (*Service, error) {
	s := &Service{repo: repo, allowedUsers: make(map[int64]User)}
	for _, opt := range opts {
		opt(s)
	}
	if repo != nil {
		users, err := repo.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load allowlist: %w", err)
		}
		for _, u := range users {
			s.allowedUsers[u.ID] = u
		}
	}
	for _, id := range initial {
		if _, ok := s.allowedUsers[id]; !ok {
			s.allowedUsers[id] = User{ID: id}
		}
	}
	return s, nil
}

func (s *Service) OpenAccess() bool { return s.open }

func (s *Service) IsAdmin(userID int64) bool { return s.admin != 0 && userID == s.admin }

func (s *Service) IsAllowed(userID int64) bool {
	if s.open || s.IsAdmin(userID) {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.allowedUsers[userID]
	return ok
}

func (s *Service) Upsert(user User) error {
	s.mu.Lock()
	s.allowedUsers[user.ID] = user
	s.mu.Unlock()
	if s.repo != nil {
		return s.repo.Upsert(user)
	}
	return nil
}

func (s *Service) Remove(userID int64) error {
	s.mu.Lock()
	delete(s.allowedUsers, userID)
	s.mu.Unlock()
	if s.repo != nil {
		return s.repo.Remove(userID)
	}
	return nil
}

// List returns allowed users ordered by id.
func (s *Service) List() []User {
	s.mu.RLock()
	out := make([]User, 0, len(s.allowedUsers))
	for _, u := range s.allowedUsers {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
