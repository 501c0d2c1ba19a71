package inmemdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
)

func TestDB_RunInTx_Rollback(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	users := NewUserRepository(db)

	errBoom := errors.New("boom")
	err := db.RunInTx(ctx, func(ctx context.Context) error {
		_, err := users.CreateUser(ctx, user.User{Email: "a@test.com"})
		require.NoError(t, err)
		return errBoom
	})
	assert.Equal(t, errBoom, err)

	all, err := users.QueryUsers(ctx, user.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	// the sequence is rolled back too
	usr, err := users.CreateUser(ctx, user.User{Email: "b@test.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, usr.ID)
}

func TestDB_RunInTx_Nested(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	users := NewUserRepository(db)

	err := db.RunInTx(ctx, func(ctx context.Context) error {
		return db.RunInTx(ctx, func(ctx context.Context) error {
			_, err := users.CreateUser(ctx, user.User{Email: "a@test.com"})
			return err
		})
	})
	require.NoError(t, err)

	_, err = users.GetUser(ctx, user.GetFilter{Email: "a@test.com"})
	assert.NoError(t, err)
}

func TestUserRepository_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(NewDB())

	_, err := users.CreateUser(ctx, user.User{Email: "a@test.com"})
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, user.User{Email: "a@test.com"})
	assert.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestProgressRepository_UniqueEnrollment(t *testing.T) {
	ctx := context.Background()
	repo := NewProgressRepository(NewDB())

	_, err := repo.CreateProgress(ctx, progress.Progress{UserID: 1, CourseID: 2})
	require.NoError(t, err)
	_, err = repo.CreateProgress(ctx, progress.Progress{UserID: 1, CourseID: 2})
	assert.ErrorIs(t, err, progress.ErrAlreadyEnrolled)

	_, err = repo.GetProgress(ctx, 2, 2)
	assert.ErrorIs(t, err, progress.ErrNotEnrolled)
}

func TestDeleteUser_Cascades(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	users := NewUserRepository(db)
	courses := NewCourseRepository(db)
	records := NewProgressRepository(db)

	prof, err := users.CreateUser(ctx, user.User{Email: "prof@test.com", Role: user.RoleProf})
	require.NoError(t, err)
	student, err := users.CreateUser(ctx, user.User{Email: "emp@test.com", Role: user.RoleEmployer})
	require.NoError(t, err)

	c, err := courses.CreateCourse(ctx, course.Course{Title: "Go", InstructorID: prof.ID})
	require.NoError(t, err)
	_, err = courses.CreateMaterial(ctx, course.Material{CourseID: c.ID, FileName: "a.pdf"})
	require.NoError(t, err)
	_, err = records.CreateProgress(ctx, progress.Progress{UserID: student.ID, CourseID: c.ID})
	require.NoError(t, err)

	require.NoError(t, users.DeleteUser(ctx, prof.ID))

	_, err = courses.GetCourse(ctx, c.ID)
	assert.ErrorIs(t, err, course.ErrNotFound)
	materials, err := courses.QueryMaterials(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, materials)
	_, err = records.GetProgress(ctx, student.ID, c.ID)
	assert.ErrorIs(t, err, progress.ErrNotEnrolled)

	assert.ErrorIs(t, users.DeleteUser(ctx, prof.ID), user.ErrNotFound)
}

func TestCourseRepository_QueryCourses(t *testing.T) {
	ctx := context.Background()
	courses := NewCourseRepository(NewDB())

	now := time.Now().UTC()
	for i, dept := range []string{"IT", "HR", "IT", "IT"} {
		_, err := courses.CreateCourse(ctx, course.Course{
			Title:        dept,
			InstructorID: 1,
			Department:   dept,
			CreatedAt:    now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	dept := "IT"
	got, err := courses.QueryCourses(ctx, course.QueryFilter{Department: &dept}, core.Page{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ID) // newest first: 4, 3, 1

	got, err = courses.QueryCourses(ctx, course.QueryFilter{Unrestricted: true}, core.Page{})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}
