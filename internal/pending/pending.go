// Package pending keeps access requests of users waiting for admin approval.
package pending

import (
	"fmt"
	"sort"
	"sync"

	"mindmate/internal/auth"
)

type Repository interface {
	LoadAll() ([]auth.User, error)
	Upsert(user auth.User) error
	Remove(userID int64) error
}

// Queue is the set of pending requests. repo may be nil for an in-memory
// queue.
type Queue struct {
	repo Repository

	mu    sync.Mutex
	users map[int64]auth.User
}

func NewQueue(repo Repository) (*Queue, error) {
	q := &Queue{repo: repo, users: make(map[int64]auth.User)}
	if repo != nil {
		users, err := repo.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load pending: %w", err)
		}
		for _, u := range users {
			q.users[u.ID] = u
		}
	}
	return q, nil
}

// Add records a request. It reports false when the user already waits.
func (q *Queue) Add(u auth.User) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.users[u.ID]; ok {
		return false, nil
	}
	q.users[u.ID] = u
	if q.repo != nil {
		if err := q.repo.Upsert(u); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Take removes and returns the request of userID.
func (q *Queue) Take(userID int64) (auth.User, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u, ok := q.users[userID]
	if !ok {
		return auth.User{}, false, nil
	}
	delete(q.users, userID)
	if q.repo != nil {
		if err := q.repo.Remove(userID); err != nil {
			return u, true, err
		}
	}
	return u, true, nil
}

func (q *Queue) Has(userID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.users[userID]
	return ok
}

// List returns pending users ordered by id.
func (q *Queue) List() []auth.User {
	q.mu.Lock()
	out := make([]auth.User, 0, len(q.users))
	for _, u := range q.users {
		out = append(out, u)
	}
	q.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
