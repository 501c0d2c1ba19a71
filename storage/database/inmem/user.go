package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core/user"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) emailTaken(email string, exclID int) bool {
	for _, usr := range repo.db.t.users {
		if usr.Email == email && usr.ID != exclID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.emailTaken(usr.Email, 0) {
		return user.User{}, user.ErrEmailTaken
	}
	repo.db.t.userSeq++
	usr.ID = repo.db.t.userSeq
	repo.db.t.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID == 0 && filter.Email == "" {
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.t.users {
		if (filter.ID == 0 || usr.ID == filter.ID) && (filter.Email == "" || usr.Email == filter.Email) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0)
	for _, id := range sortedKeys(repo.db.t.users) {
		if usr := repo.db.t.users[id]; filter.Match(usr) {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.t.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.emailTaken(usr.Email, usr.ID) {
		return user.User{}, user.ErrEmailTaken
	}
	usr.CreatedAt = orig.CreatedAt
	repo.db.t.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.t.users[id]; !ok {
		return user.ErrNotFound
	}
	repo.db.t.deleteUser(id)
	return nil
}
