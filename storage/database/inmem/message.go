package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/message"
)

type messageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) message.Repository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(_ context.Context, m message.Message) (message.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.t.messageSeq++
	m.ID = repo.db.t.messageSeq
	repo.db.t.messages[m.ID] = m
	return m, nil
}

func (repo *messageRepository) GetMessage(_ context.Context, id int) (message.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.t.messages[id]; ok {
		return m, nil
	}
	return message.Message{}, message.ErrNotFound
}

func (repo *messageRepository) QueryMessages(_ context.Context, filter message.QueryFilter, page core.Page) ([]message.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	messages := make([]message.Message, 0)
	for _, m := range repo.db.t.messages {
		if filter.Match(m) {
			messages = append(messages, m)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.After(messages[j].CreatedAt)
		}
		return messages[i].ID > messages[j].ID
	})
	return paginate(messages, page), nil
}

func (repo *messageRepository) UpdateMessage(_ context.Context, m message.Message) (message.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.t.messages[m.ID]
	if !ok {
		return message.Message{}, message.ErrNotFound
	}
	orig.Location = m.Location
	orig.ContentType = m.ContentType
	orig.IsRead = m.IsRead
	repo.db.t.messages[m.ID] = orig
	return orig, nil
}

func (repo *messageRepository) DeleteMessage(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.t.messages[id]; !ok {
		return message.ErrNotFound
	}
	delete(repo.db.t.messages, id)
	return nil
}
