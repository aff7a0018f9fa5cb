package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/pagination"
)

// Service is the in-app inbox: list, count and acknowledge notifications.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
	// Type narrows the page to one category; empty lists everything.
	Type enums.NotificationType
}

// ListResult is one inbox page. UnreadCount covers the whole inbox, not just
// this page, so clients can badge without a second call.
type ListResult struct {
	Items       []models.Notification `json:"items"`
	Cursor      string                `json:"cursor"`
	UnreadCount int64                 `json:"unreadCount"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if params.Type != "" && !params.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type").
			WithDetails(map[string]any{"type": params.Type})
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, listNotificationsParams{
		UserID:     params.UserID,
		Limit:      pagination.NormalizeLimit(params.Limit),
		Cursor:     cursor,
		UnreadOnly: params.UnreadOnly,
		Type:       params.Type,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, params.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	out := &ListResult{Items: rows, UnreadCount: unread}
	if out.Items == nil {
		out.Items = []models.Notification{}
	}
	if next != nil {
		out.Cursor = next.Encode()
	}
	return out, nil
}

// MarkRead is idempotent: re-reading an already read notification succeeds.
func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := requireIDs(userID, notificationID); err != nil {
		return err
	}
	result, err := s.repo.MarkRead(ctx, userID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func requireIDs(userID, notificationID uuid.UUID) error {
	var missing []error
	if userID == uuid.Nil {
		missing = append(missing, errors.New("user id required"))
	}
	if notificationID == uuid.Nil {
		missing = append(missing, errors.New("notification id required"))
	}
	if len(missing) == 0 {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, errors.Join(missing...), "invalid notification reference")
}
