package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
)

type notificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.t.notificationSeq++
	n.ID = repo.db.t.notificationSeq
	repo.db.t.notifications[n.ID] = n
	return n, nil
}

func (repo *notificationRepository) GetNotification(_ context.Context, id int) (notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n, ok := repo.db.t.notifications[id]; ok {
		return n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, userID int, page core.Page) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	notifications := make([]notification.Notification, 0)
	for _, n := range repo.db.t.notifications {
		if n.UserID == userID {
			notifications = append(notifications, n)
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		if !notifications[i].CreatedAt.Equal(notifications[j].CreatedAt) {
			return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
		}
		return notifications[i].ID > notifications[j].ID
	})
	return paginate(notifications, page), nil
}

func (repo *notificationRepository) UpdateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.t.notifications[n.ID]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	orig.IsRead = n.IsRead
	repo.db.t.notifications[n.ID] = orig
	return orig, nil
}
