package course

import (
	"context"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("course not found")
	ErrMaterialNotFound = errors.New("material not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		// QueryCourses returns the courses matching filter, newest first.
		// A zero page limit returns every matching course.
		QueryCourses(ctx context.Context, filter QueryFilter, page core.Page) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		// DeleteCourse also deletes the course materials and progress records.
		DeleteCourse(ctx context.Context, id int) error

		CreateMaterial(ctx context.Context, m Material) (Material, error)
		GetMaterial(ctx context.Context, courseID, id int) (Material, error)
		// QueryMaterials returns the materials of a course, oldest first.
		QueryMaterials(ctx context.Context, courseID int) ([]Material, error)
		DeleteMaterial(ctx context.Context, id int) error
	}

	// EnrollmentLister lists the users enrolled in a course.
	EnrollmentLister interface {
		EnrolledUserIDs(ctx context.Context, courseID int) ([]int, error)
	}

	// Notifier receives the course lifecycle events, inside the transaction of the triggering change.
	Notifier interface {
		CourseCreated(ctx context.Context, c Course, instructor user.User) error
		CourseDeleted(ctx context.Context, c Course) error
		MaterialAdded(ctx context.Context, c Course, m Material, enrolledUserIDs []int) error
	}

	Service struct {
		tx          core.Transactor
		repo        Repository
		blobs       core.BlobStore
		enrollments EnrollmentLister
		notifier    Notifier
		validate    *validator.Validate
		logger      core.Logger
	}
)

func NewService(
	tx core.Transactor,
	repo Repository,
	blobs core.BlobStore,
	enrollments EnrollmentLister,
	notifier Notifier,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		tx:          tx,
		repo:        repo,
		blobs:       blobs,
		enrollments: enrollments,
		notifier:    notifier,
		validate:    validate,
		logger:      logger,
	}
}

// List returns the page of courses visible to usr, newest first.
func (svc *Service) List(ctx context.Context, usr user.User, page core.Page) ([]Course, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryCourses(ctx, VisibilityFilter(usr), page)
}

// ListByInstructor returns every course instructed by usr.
func (svc *Service) ListByInstructor(ctx context.Context, usr user.User) ([]Course, error) {
	if err := user.Authorize(usr, user.RoleProf); err != nil {
		return nil, err
	}
	id := usr.ID
	return svc.repo.QueryCourses(ctx, QueryFilter{InstructorID: &id}, core.Page{})
}

// ListVisible returns every course visible to usr.
func (svc *Service) ListVisible(ctx context.Context, usr user.User) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, VisibilityFilter(usr), core.Page{})
}

// Get returns ErrNotFound both for missing courses and for courses usr cannot see.
func (svc *Service) Get(ctx context.Context, usr user.User, id int) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !CanView(usr, c) {
		return Course{}, ErrNotFound
	}
	return c, nil
}

// getModifiable returns ErrNotFound when usr cannot see the course and core.ErrForbidden when usr cannot change it.
func (svc *Service) getModifiable(ctx context.Context, usr user.User, id int) (Course, error) {
	c, err := svc.Get(ctx, usr, id)
	if err != nil {
		return Course{}, err
	}
	if !CanModify(usr, c) {
		return Course{}, core.ErrForbidden
	}
	return c, nil
}

// Create is reserved to professors. The course inherits the instructor's department.
func (svc *Service) Create(ctx context.Context, usr user.User, nc NewCourse) (Course, error) {
	if err := user.Authorize(usr, user.RoleProf); err != nil {
		return Course{}, err
	}
	nc.Clean()
	if err := svc.validate.Struct(nc); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	c := Course{
		Title:        nc.Title,
		Description:  nc.Description,
		InstructorID: usr.ID,
		Department:   usr.Department,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if c, err = svc.repo.CreateCourse(ctx, c); err != nil {
			return errors.Wrap(err, "creating course")
		}
		return errors.Wrap(svc.notifier.CourseCreated(ctx, c, usr), "notifying course creation")
	})
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

func (svc *Service) Update(ctx context.Context, usr user.User, id int, uc UpdateCourse) (Course, error) {
	uc.Clean()
	if err := svc.validate.Struct(uc); err != nil {
		return Course{}, err
	}

	var c Course
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if c, err = svc.getModifiable(ctx, usr, id); err != nil {
			return err
		}
		if uc.Title != "" {
			c.Title = uc.Title
		}
		if uc.Description != "" {
			c.Description = uc.Description
		}
		c.UpdatedAt = time.Now().UTC()
		c, err = svc.repo.UpdateCourse(ctx, c)
		return err
	})
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

// Delete removes the course with its materials and enrollments.
// Material files are removed once the deletion is committed.
func (svc *Service) Delete(ctx context.Context, usr user.User, id int) error {
	var materials []Material
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := svc.getModifiable(ctx, usr, id)
		if err != nil {
			return err
		}
		if materials, err = svc.repo.QueryMaterials(ctx, c.ID); err != nil {
			return errors.Wrap(err, "querying materials")
		}
		if err = svc.repo.DeleteCourse(ctx, c.ID); err != nil {
			return err
		}
		return errors.Wrap(svc.notifier.CourseDeleted(ctx, c), "notifying course deletion")
	})
	if err != nil {
		return err
	}

	for _, m := range materials {
		if err := svc.blobs.Delete(ctx, m.Location); err != nil {
			svc.logger.Error("deleting material file", errors.Wrap(err, m.Location), usr)
		}
	}
	return nil
}

// AddMaterial stores up under the course and notifies the admins and the enrolled users.
func (svc *Service) AddMaterial(ctx context.Context, usr user.User, id int, up Upload) (Material, error) {
	up.FileName = core.CleanString(up.FileName)
	if up.FileName == "" || up.Content == nil {
		return Material{}, core.NewValidationError(
			errors.New("invalid upload"),
			core.FieldError{Field: "file", Error: "this field is required"},
		)
	}

	var (
		m   Material
		loc string
	)
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := svc.getModifiable(ctx, usr, id)
		if err != nil {
			return err
		}

		if loc, err = svc.blobs.Save(ctx, BlobOwner(c.ID), up.FileName, up.Content); err != nil {
			return errors.Wrap(err, "saving material file")
		}
		m = Material{
			CourseID:    c.ID,
			FileName:    up.FileName,
			Location:    loc,
			ContentType: up.ContentType,
			UploadedAt:  time.Now().UTC(),
		}
		if m, err = svc.repo.CreateMaterial(ctx, m); err != nil {
			return errors.Wrap(err, "creating material")
		}

		enrolled, err := svc.enrollments.EnrolledUserIDs(ctx, c.ID)
		if err != nil {
			return errors.Wrap(err, "listing enrolled users")
		}
		return errors.Wrap(svc.notifier.MaterialAdded(ctx, c, m, enrolled), "notifying material addition")
	})
	if err != nil {
		if loc != "" {
			if dErr := svc.blobs.Delete(ctx, loc); dErr != nil {
				svc.logger.Error("deleting orphan material file", errors.Wrap(dErr, loc), usr)
			}
		}
		return Material{}, err
	}
	return m, nil
}

// ListMaterials follows the read visibility of the course.
func (svc *Service) ListMaterials(ctx context.Context, usr user.User, id int) ([]Material, error) {
	c, err := svc.Get(ctx, usr, id)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryMaterials(ctx, c.ID)
}

func (svc *Service) GetMaterial(ctx context.Context, usr user.User, courseID, id int) (Material, error) {
	c, err := svc.Get(ctx, usr, courseID)
	if err != nil {
		return Material{}, err
	}
	return svc.repo.GetMaterial(ctx, c.ID, id)
}

// OpenMaterial returns the material with its content. The caller must close the reader.
func (svc *Service) OpenMaterial(ctx context.Context, usr user.User, courseID, id int) (Material, io.ReadCloser, error) {
	m, err := svc.GetMaterial(ctx, usr, courseID, id)
	if err != nil {
		return Material{}, nil, err
	}
	rc, err := svc.blobs.Open(ctx, m.Location)
	if err != nil {
		if errors.Is(err, core.ErrBlobNotFound) {
			return Material{}, nil, ErrMaterialNotFound
		}
		return Material{}, nil, errors.Wrap(err, "opening material file")
	}
	return m, rc, nil
}

// DeleteMaterial removes the material. Its file is removed once the deletion is committed.
func (svc *Service) DeleteMaterial(ctx context.Context, usr user.User, courseID, id int) error {
	var loc string
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := svc.getModifiable(ctx, usr, courseID)
		if err != nil {
			return err
		}
		m, err := svc.repo.GetMaterial(ctx, c.ID, id)
		if err != nil {
			return err
		}
		if err = svc.repo.DeleteMaterial(ctx, m.ID); err != nil {
			return err
		}
		loc = m.Location
		return nil
	})
	if err != nil {
		return err
	}

	if err = svc.blobs.Delete(ctx, loc); err != nil {
		svc.logger.Error("deleting material file", errors.Wrap(err, loc), usr)
	}
	return nil
}
