package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sioms/sioms/internal/notifications"
	"github.com/sioms/sioms/internal/shared"
)

// Notifications implements notifications.RepositoryPort.
type Notifications struct {
	mu     sync.Mutex
	items  []notifications.Notification
	nextID int64
}

func NewNotifications() *Notifications {
	return &Notifications{}
}

func (s *Notifications) Snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append([]notifications.Notification(nil), s.items...)
	nextID := s.nextID
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items = items
		s.nextID = nextID
	}
}

// All returns a copy of every stored notification in insert order.
func (s *Notifications) All() []notifications.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notifications.Notification(nil), s.items...)
}

// Messages returns the messages of notifications of type t.
func (s *Notifications) Messages(t notifications.Type) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, n := range s.items {
		if n.Type == t {
			out = append(out, n.Message)
		}
	}
	return out
}

func (s *Notifications) Insert(_ context.Context, n notifications.Notification) (notifications.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	n.ID = s.nextID
	n.CreatedAt = time.Now()
	s.items = append(s.items, n)
	return n, nil
}

func (s *Notifications) Get(_ context.Context, id int64) (notifications.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID == id {
			return n, nil
		}
	}
	return notifications.Notification{}, &shared.NotFoundError{Entity: "notification", ID: id}
}

func (s *Notifications) List(_ context.Context, filter notifications.ListFilter) ([]notifications.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notifications.Notification
	for i := len(s.items) - 1; i >= 0 && len(out) < filter.Limit; i-- {
		n := s.items[i]
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		if filter.IsRead != nil && n.IsRead != *filter.IsRead {
			continue
		}
		if filter.UserID != 0 && n.UserID != nil && *n.UserID != filter.UserID {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Notifications) MarkRead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsRead = true
			return nil
		}
	}
	return &shared.NotFoundError{Entity: "notification", ID: id}
}

func (s *Notifications) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.items {
		if !s.items[i].IsRead && visibleTo(s.items[i], userID) {
			s.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *Notifications) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = slices.Delete(s.items, i, i+1)
			return nil
		}
	}
	return &shared.NotFoundError{Entity: "notification", ID: id}
}

func (s *Notifications) DeleteAllRead(_ context.Context, userID int64) (int64, error) {
	return s.deleteWhere(func(n notifications.Notification) bool {
		return n.IsRead && visibleTo(n, userID)
	}), nil
}

func (s *Notifications) UnreadCount(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if !n.IsRead && visibleTo(n, userID) {
			count++
		}
	}
	return count, nil
}

func (s *Notifications) DeleteByReference(_ context.Context, refID int64, types ...notifications.Type) error {
	s.deleteWhere(func(n notifications.Notification) bool {
		return n.ReferenceID != nil && *n.ReferenceID == refID && slices.Contains(types, n.Type)
	})
	return nil
}

func (s *Notifications) PurgeRead(_ context.Context, cutoff time.Time) (int64, error) {
	return s.deleteWhere(func(n notifications.Notification) bool {
		return n.IsRead && n.CreatedAt.Before(cutoff)
	}), nil
}

func (s *Notifications) deleteWhere(match func(notifications.Notification) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, match)
	return int64(before - len(s.items))
}

func visibleTo(n notifications.Notification, userID int64) bool {
	return userID == 0 || n.UserID == nil || *n.UserID == userID
}
