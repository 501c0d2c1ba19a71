package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/message"
	"github.com/trezcool/academia/storage/database"
)

const messageColumns = "id, sender_id, receiver_id, content, location, content_type, is_read, created_at"

type messageRow struct {
	ID          int         `db:"id"`
	SenderID    int         `db:"sender_id"`
	ReceiverID  int         `db:"receiver_id"`
	Content     string      `db:"content"`
	Location    null.String `db:"location"`
	ContentType null.String `db:"content_type"`
	IsRead      bool        `db:"is_read"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r messageRow) toMessage() message.Message {
	return message.Message{
		ID:          r.ID,
		SenderID:    r.SenderID,
		ReceiverID:  r.ReceiverID,
		Content:     r.Content,
		Location:    r.Location.Ptr(),
		ContentType: r.ContentType.Ptr(),
		IsRead:      r.IsRead,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) message.Repository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, m message.Message) (message.Message, error) {
	var row messageRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		`INSERT INTO messages (sender_id, receiver_id, content, location, content_type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+messageColumns,
		m.SenderID, m.ReceiverID, m.Content,
		null.StringFromPtr(m.Location), null.StringFromPtr(m.ContentType), m.IsRead, m.CreatedAt,
	)
	if err != nil {
		return message.Message{}, errors.Wrap(err, "inserting message")
	}
	return row.toMessage(), nil
}

func (repo *messageRepository) GetMessage(ctx context.Context, id int) (message.Message, error) {
	var row messageRow
	err := sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &row, "SELECT "+messageColumns+" FROM messages WHERE id = $1", id)
	if err != nil {
		if database.IsNoRows(err) {
			return message.Message{}, message.ErrNotFound
		}
		return message.Message{}, errors.Wrap(err, "selecting message")
	}
	return row.toMessage(), nil
}

func (repo *messageRepository) QueryMessages(ctx context.Context, filter message.QueryFilter, page core.Page) ([]message.Message, error) {
	b := psql.Select(messageColumns).From("messages").OrderBy("created_at DESC", "id DESC")
	if filter.SenderID != nil {
		b = b.Where(sq.Eq{"sender_id": *filter.SenderID})
	}
	if filter.ReceiverID != nil {
		b = b.Where(sq.Eq{"receiver_id": *filter.ReceiverID})
	}

	var rows []messageRow
	if err := selectAll(ctx, repo.db, &rows, paginate(b, page)); err != nil {
		return nil, errors.Wrap(err, "selecting messages")
	}
	messages := make([]message.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.toMessage())
	}
	return messages, nil
}

func (repo *messageRepository) UpdateMessage(ctx context.Context, m message.Message) (message.Message, error) {
	var row messageRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		"UPDATE messages SET location = $2, content_type = $3, is_read = $4 WHERE id = $1 RETURNING "+messageColumns,
		m.ID, null.StringFromPtr(m.Location), null.StringFromPtr(m.ContentType), m.IsRead,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return message.Message{}, message.ErrNotFound
		}
		return message.Message{}, errors.Wrap(err, "updating message")
	}
	return row.toMessage(), nil
}

func (repo *messageRepository) DeleteMessage(ctx context.Context, id int) error {
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting message")
	}
	return database.CheckAffected(res, message.ErrNotFound)
}
