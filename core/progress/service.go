package progress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	ErrNotEnrolled     = errors.New("not enrolled in this course")
)

type (
	Repository interface {
		// CreateProgress returns ErrAlreadyEnrolled when a record exists for the same user and course.
		CreateProgress(ctx context.Context, p Progress) (Progress, error)
		// GetProgress returns ErrNotEnrolled when no record exists.
		GetProgress(ctx context.Context, userID, courseID int) (Progress, error)
		// QueryProgress returns the matching records ordered by ID.
		QueryProgress(ctx context.Context, filter QueryFilter) ([]Progress, error)
		UpdateProgress(ctx context.Context, p Progress) (Progress, error)
	}

	// Notifier receives the progress events, inside the transaction of the triggering change.
	Notifier interface {
		ProgressUpdated(ctx context.Context, userID int, c course.Course, value float64) error
	}

	Service struct {
		tx       core.Transactor
		repo     Repository
		courses  course.Repository
		notifier Notifier
	}
)

func NewService(tx core.Transactor, repo Repository, courses course.Repository, notifier Notifier) *Service {
	return &Service{tx: tx, repo: repo, courses: courses, notifier: notifier}
}

// visibleCourse returns course.ErrNotFound when usr cannot see the course.
func (svc *Service) visibleCourse(ctx context.Context, usr user.User, courseID int) (course.Course, error) {
	c, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return course.Course{}, err
	}
	if !course.CanView(usr, c) {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

// Enroll starts tracking usr on a visible course.
func (svc *Service) Enroll(ctx context.Context, usr user.User, courseID int) (Progress, error) {
	var p Progress
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := svc.visibleCourse(ctx, usr, courseID)
		if err != nil {
			return err
		}
		now := NowFunc()
		p, err = svc.repo.CreateProgress(ctx, Progress{
			UserID:       usr.ID,
			CourseID:     c.ID,
			Value:        0,
			Status:       StatusInProgress,
			StartDate:    now,
			LastAccessed: now,
		})
		return err
	})
	if err != nil {
		return Progress{}, err
	}
	return p, nil
}

// Update stores the clamped value. Reaching 100 completes the record the first time only.
func (svc *Service) Update(ctx context.Context, usr user.User, courseID int, value float64) (Progress, error) {
	var p Progress
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = svc.repo.GetProgress(ctx, usr.ID, courseID); err != nil {
			return err
		}
		c, err := svc.courses.GetCourse(ctx, courseID)
		if err != nil {
			return err
		}

		p.setValue(value, NowFunc())
		if p, err = svc.repo.UpdateProgress(ctx, p); err != nil {
			return errors.Wrap(err, "updating progress")
		}
		return errors.Wrap(svc.notifier.ProgressUpdated(ctx, usr.ID, c, p.Value), "notifying progress update")
	})
	if err != nil {
		return Progress{}, err
	}
	return p, nil
}

// MarkCompleted forces completion. Unlike Update, it always refreshes the completion date.
func (svc *Service) MarkCompleted(ctx context.Context, usr user.User, courseID int) (Progress, error) {
	var p Progress
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = svc.repo.GetProgress(ctx, usr.ID, courseID); err != nil {
			return err
		}
		p.complete(NowFunc())
		p, err = svc.repo.UpdateProgress(ctx, p)
		return errors.Wrap(err, "updating progress")
	})
	if err != nil {
		return Progress{}, err
	}
	return p, nil
}

func (svc *Service) Get(ctx context.Context, usr user.User, courseID int) (Progress, error) {
	return svc.repo.GetProgress(ctx, usr.ID, courseID)
}

// Enrollment returns the progress record of usr on the course together with the course.
func (svc *Service) Enrollment(ctx context.Context, usr user.User, courseID int) (Enrollment, error) {
	p, err := svc.repo.GetProgress(ctx, usr.ID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	c, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrapf(err, "getting course %d", courseID)
	}
	return Enrollment{Progress: p, Course: c}, nil
}

// ListForUser returns the enrollments of usr with their courses.
func (svc *Service) ListForUser(ctx context.Context, usr user.User) ([]Enrollment, error) {
	uid := usr.ID
	records, err := svc.repo.QueryProgress(ctx, QueryFilter{UserID: &uid})
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}

	enrollments := make([]Enrollment, 0, len(records))
	for _, p := range records {
		c, err := svc.courses.GetCourse(ctx, p.CourseID)
		if err != nil {
			return nil, errors.Wrapf(err, "getting course %d", p.CourseID)
		}
		enrollments = append(enrollments, Enrollment{Progress: p, Course: c})
	}
	return enrollments, nil
}

func (svc *Service) Stats(ctx context.Context, usr user.User) (Stats, error) {
	uid := usr.ID
	records, err := svc.repo.QueryProgress(ctx, QueryFilter{UserID: &uid})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying progress")
	}
	return ComputeStats(records), nil
}

// Enrollments adapts a Repository into a course.EnrollmentLister.
type Enrollments struct {
	Repo Repository
}

func (e Enrollments) EnrolledUserIDs(ctx context.Context, courseID int) ([]int, error) {
	records, err := e.Repo.QueryProgress(ctx, QueryFilter{CourseID: &courseID})
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(records))
	for _, p := range records {
		ids = append(ids, p.UserID)
	}
	return ids, nil
}
