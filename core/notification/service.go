package notification

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var ErrNotFound = errors.New("notification not found")

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		GetNotification(ctx context.Context, id int) (Notification, error)
		// QueryNotifications returns the notifications of a user, newest first.
		QueryNotifications(ctx context.Context, userID int, page core.Page) ([]Notification, error)
		UpdateNotification(ctx context.Context, n Notification) (Notification, error)
	}

	// Service is the notification inbox of a user.
	Service struct {
		tx   core.Transactor
		repo Repository
	}
)

func NewService(tx core.Transactor, repo Repository) *Service {
	return &Service{tx: tx, repo: repo}
}

func (svc *Service) List(ctx context.Context, usr user.User, page core.Page) ([]Notification, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryNotifications(ctx, usr.ID, page)
}

// MarkRead returns ErrNotFound unless usr owns the notification.
func (svc *Service) MarkRead(ctx context.Context, usr user.User, id int) (Notification, error) {
	var n Notification
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if n, err = svc.repo.GetNotification(ctx, id); err != nil {
			return err
		}
		if n.UserID != usr.ID {
			return ErrNotFound
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		n, err = svc.repo.UpdateNotification(ctx, n)
		return err
	})
	if err != nil {
		return Notification{}, err
	}
	return n, nil
}
