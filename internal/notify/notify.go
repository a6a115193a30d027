// Package notify delivers in-app notifications to travellers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rehla.tn/internal/ids"
)

var (
	// ErrNotFound indicates the addressed notification does not exist.
	ErrNotFound = errors.New("notify: not found")

	// ErrInvalidInput indicates the notification payload failed validation.
	ErrInvalidInput = errors.New("notify: invalid input")
)

// Notification is one message addressed to one traveller.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists notifications.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	Find(ctx context.Context, id string) (*Notification, error)
	ListByUser(ctx context.Context, userID string) ([]*Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// Service fans notifications out and serves the per-user inbox.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("notify: store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send delivers one notification to one traveller.
func (s *Service) Send(ctx context.Context, userID, title, body string) (*Notification, error) {
	title = strings.TrimSpace(title)
	if userID == "" || title == "" {
		return nil, fmt.Errorf("%w: user id and title are required", ErrInvalidInput)
	}
	n := &Notification{
		ID:        ids.New(),
		UserID:    userID,
		Title:     title,
		Body:      strings.TrimSpace(body),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Broadcast delivers the same notification to many travellers. Individual
// failures do not stop the fan-out; the first error is reported after.
func (s *Service) Broadcast(ctx context.Context, userIDs []string, title, body string) error {
	var firstErr error
	for _, id := range userIDs {
		if _, err := s.Send(ctx, id, title, body); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Get loads a notification.
func (s *Service) Get(ctx context.Context, id string) (*Notification, error) {
	return s.store.Find(ctx, id)
}

// Inbox returns a traveller's notifications, newest first.
func (s *Service) Inbox(ctx context.Context, userID string) ([]*Notification, error) {
	return s.store.ListByUser(ctx, userID)
}

// MarkRead marks one notification as read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.store.MarkRead(ctx, id)
}

// MarkAllRead marks a traveller's entire inbox as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.store.MarkAllRead(ctx, userID)
}

// UnreadCount returns the traveller's unread badge count.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// Delete removes one notification from the inbox.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
