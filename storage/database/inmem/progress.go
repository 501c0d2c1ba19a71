package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core/progress"
)

type progressRepository struct {
	db *DB
}

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) find(userID, courseID int) (progress.Progress, bool) {
	for _, p := range repo.db.t.progress {
		if p.UserID == userID && p.CourseID == courseID {
			return p, true
		}
	}
	return progress.Progress{}, false
}

func (repo *progressRepository) CreateProgress(_ context.Context, p progress.Progress) (progress.Progress, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, exists := repo.find(p.UserID, p.CourseID); exists {
		return progress.Progress{}, progress.ErrAlreadyEnrolled
	}
	repo.db.t.progressSeq++
	p.ID = repo.db.t.progressSeq
	repo.db.t.progress[p.ID] = p
	return p, nil
}

func (repo *progressRepository) GetProgress(_ context.Context, userID, courseID int) (progress.Progress, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.find(userID, courseID); ok {
		return p, nil
	}
	return progress.Progress{}, progress.ErrNotEnrolled
}

func (repo *progressRepository) QueryProgress(_ context.Context, filter progress.QueryFilter) ([]progress.Progress, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]progress.Progress, 0)
	for _, id := range sortedKeys(repo.db.t.progress) {
		if p := repo.db.t.progress[id]; filter.Match(p) {
			records = append(records, p)
		}
	}
	return records, nil
}

func (repo *progressRepository) UpdateProgress(_ context.Context, p progress.Progress) (progress.Progress, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.t.progress[p.ID]
	if !ok {
		return progress.Progress{}, progress.ErrNotEnrolled
	}
	// identity and start date are immutable
	p.UserID, p.CourseID, p.StartDate = orig.UserID, orig.CourseID, orig.StartDate
	repo.db.t.progress[p.ID] = p
	return p, nil
}
