package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/storage/database"
)

const progressColumns = "id, user_id, course_id, progress, status, start_date, completion_date, last_accessed, is_completed"

type progressRow struct {
	ID             int       `db:"id"`
	UserID         int       `db:"user_id"`
	CourseID       int       `db:"course_id"`
	Value          float64   `db:"progress"`
	Status         string    `db:"status"`
	StartDate      time.Time `db:"start_date"`
	CompletionDate null.Time `db:"completion_date"`
	LastAccessed   time.Time `db:"last_accessed"`
	IsCompleted    bool      `db:"is_completed"`
}

func (r progressRow) toProgress() progress.Progress {
	p := progress.Progress{
		ID:           r.ID,
		UserID:       r.UserID,
		CourseID:     r.CourseID,
		Value:        r.Value,
		Status:       r.Status,
		StartDate:    r.StartDate.UTC(),
		LastAccessed: r.LastAccessed.UTC(),
		IsCompleted:  r.IsCompleted,
	}
	if r.CompletionDate.Valid {
		t := r.CompletionDate.Time.UTC()
		p.CompletionDate = &t
	}
	return p
}

type progressRepository struct {
	db *sqlx.DB
}

func NewProgressRepository(db *sqlx.DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) CreateProgress(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	var row progressRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		`INSERT INTO course_progress (user_id, course_id, progress, status, start_date, completion_date, last_accessed, is_completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+progressColumns,
		p.UserID, p.CourseID, p.Value, p.Status, p.StartDate, null.TimeFromPtr(p.CompletionDate), p.LastAccessed, p.IsCompleted,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return progress.Progress{}, progress.ErrAlreadyEnrolled
		}
		return progress.Progress{}, errors.Wrap(err, "inserting progress")
	}
	return row.toProgress(), nil
}

func (repo *progressRepository) GetProgress(ctx context.Context, userID, courseID int) (progress.Progress, error) {
	var row progressRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		"SELECT "+progressColumns+" FROM course_progress WHERE user_id = $1 AND course_id = $2",
		userID, courseID,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return progress.Progress{}, progress.ErrNotEnrolled
		}
		return progress.Progress{}, errors.Wrap(err, "selecting progress")
	}
	return row.toProgress(), nil
}

func (repo *progressRepository) QueryProgress(ctx context.Context, filter progress.QueryFilter) ([]progress.Progress, error) {
	b := psql.Select(progressColumns).From("course_progress").OrderBy("id")
	if filter.UserID != nil {
		b = b.Where(sq.Eq{"user_id": *filter.UserID})
	}
	if filter.CourseID != nil {
		b = b.Where(sq.Eq{"course_id": *filter.CourseID})
	}

	var rows []progressRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "selecting progress")
	}
	records := make([]progress.Progress, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toProgress())
	}
	return records, nil
}

func (repo *progressRepository) UpdateProgress(ctx context.Context, p progress.Progress) (progress.Progress, error) {
	var row progressRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		`UPDATE course_progress SET progress = $2, status = $3, completion_date = $4, last_accessed = $5, is_completed = $6
		WHERE id = $1
		RETURNING `+progressColumns,
		p.ID, p.Value, p.Status, null.TimeFromPtr(p.CompletionDate), p.LastAccessed, p.IsCompleted,
	)
	if err != nil {
		if database.IsNoRows(err) {
			return progress.Progress{}, progress.ErrNotEnrolled
		}
		return progress.Progress{}, errors.Wrap(err, "updating progress")
	}
	return row.toProgress(), nil
}
