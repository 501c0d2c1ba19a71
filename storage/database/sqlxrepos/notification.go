package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/storage/database"
)

const notificationColumns = "id, user_id, title, message, type, is_read, created_at, related_course_id, related_material_id"

type notificationRow struct {
	ID         int       `db:"id"`
	UserID     int       `db:"user_id"`
	Title      string    `db:"title"`
	Message    string    `db:"message"`
	Type       string    `db:"type"`
	IsRead     bool      `db:"is_read"`
	CreatedAt  time.Time `db:"created_at"`
	CourseID   null.Int  `db:"related_course_id"`
	MaterialID null.Int  `db:"related_material_id"`
}

func (r notificationRow) toNotification() notification.Notification {
	return notification.Notification{
		ID:         r.ID,
		UserID:     r.UserID,
		Title:      r.Title,
		Message:    r.Message,
		Type:       r.Type,
		IsRead:     r.IsRead,
		CreatedAt:  r.CreatedAt.UTC(),
		CourseID:   r.CourseID.Ptr(),
		MaterialID: r.MaterialID.Ptr(),
	}
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	var row notificationRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		`INSERT INTO notifications (user_id, title, message, type, is_read, created_at, related_course_id, related_material_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+notificationColumns,
		n.UserID, n.Title, n.Message, n.Type, n.IsRead, n.CreatedAt,
		null.IntFromPtr(n.CourseID), null.IntFromPtr(n.MaterialID),
	)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return row.toNotification(), nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id int) (notification.Notification, error) {
	var row notificationRow
	err := sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &row, "SELECT "+notificationColumns+" FROM notifications WHERE id = $1", id)
	if err != nil {
		if database.IsNoRows(err) {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "selecting notification")
	}
	return row.toNotification(), nil
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, userID int, page core.Page) ([]notification.Notification, error) {
	b := psql.Select(notificationColumns).From("notifications").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")

	var rows []notificationRow
	if err := selectAll(ctx, repo.db, &rows, paginate(b, page)); err != nil {
		return nil, errors.Wrap(err, "selecting notifications")
	}
	notifications := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, row.toNotification())
	}
	return notifications, nil
}

func (repo *notificationRepository) UpdateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	var row notificationRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		"UPDATE notifications SET is_read = $2 WHERE id = $1 RETURNING "+notificationColumns,
		n.ID, n.IsRead,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	}
	return row.toNotification(), nil
}
