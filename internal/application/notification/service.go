package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/kyc-ledger/internal/domain"
	"github.com/kyc-ledger/internal/pkg/id"
)

type Service interface {
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	Notify(ctx context.Context, n *domain.Notification) error
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListUnread(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
}

// unreadLimit caps how many unread notices one listing returns.
const unreadLimit = 50

type service struct {
	repo notificationStore
	now  func() time.Time
}

func NewService(repo notificationStore) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListUnread(ctx, userID, unreadLimit)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	if n.Readed == 1 {
		return n, nil
	}
	if err := s.repo.MarkAsRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.Readed = 1
	n.UpdatedAt = s.now().UTC()
	return n, nil
}

// Notify stores a new unread notification, filling in its id and timestamps.
func (s *service) Notify(ctx context.Context, n *domain.Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("notification without recipient: %w", domain.ErrBadRequest)
	}
	if n.Type == "" {
		n.Type = domain.NotificationInfo
	}
	now := s.now().UTC()
	n.NotificationID = id.New()
	n.Readed = 0
	n.CreatedAt = now
	n.UpdatedAt = now
	return s.repo.Put(ctx, n)
}
