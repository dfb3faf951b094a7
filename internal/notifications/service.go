package notifications

import (
	"context"
	"fmt"

	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Service exposes the notification read API consumed by controllers. All
// mutating operations are data-scoped: a user can only touch rows they own.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of the user's notifications.
func (s *Service) List(ctx context.Context, userID, tenantID string, filter ListFilter) ([]Notification, shared.Pagination, error) {
	rows, total, err := s.repo.List(ctx, userID, tenantID, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// UnreadCount returns the user's unread notification count.
func (s *Service) UnreadCount(ctx context.Context, userID, tenantID string) (int, error) {
	return s.repo.UnreadCount(ctx, userID, tenantID)
}

// MarkRead marks one notification as read after verifying ownership.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return fmt.Errorf("%w: notification %s", shared.ErrOwnership, id)
	}
	if n.Read {
		return nil
	}
	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead marks every unread notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID, tenantID string) error {
	return s.repo.MarkAllRead(ctx, userID, tenantID)
}

// Delete removes one notification after verifying ownership.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return fmt.Errorf("%w: notification %s", shared.ErrOwnership, id)
	}
	return s.repo.Delete(ctx, id)
}
