package progress_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
	testutil "github.com/trezcool/academia/tests"
)

// freezeTime makes progress.NowFunc return the value pointed by now.
func freezeTime(t *testing.T, now *time.Time) {
	orig := progress.NowFunc
	progress.NowFunc = func() time.Time { return *now }
	t.Cleanup(func() { progress.NowFunc = orig })
}

func TestService_Enroll(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	prof := testutil.CreateUser(t, app.Users, user.RoleProf, "CS", "prof@academia.test")
	student := testutil.CreateUser(t, app.Users, user.RoleEmployer, "CS", "student@academia.test")
	outsider := testutil.CreateUser(t, app.Users, user.RoleEmployer, "HR", "hr@academia.test")
	c := testutil.CreateCourse(t, app.Courses, prof, "Go 101")

	p, err := app.ProgressSvc.Enroll(ctx, student, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Value)
	assert.Equal(t, progress.StatusInProgress, p.Status)
	assert.False(t, p.IsCompleted)
	assert.Nil(t, p.CompletionDate)

	_, err = app.ProgressSvc.Enroll(ctx, student, c.ID)
	assert.ErrorIs(t, err, progress.ErrAlreadyEnrolled)

	_, err = app.ProgressSvc.Enroll(ctx, outsider, c.ID)
	assert.ErrorIs(t, err, course.ErrNotFound)

	_, err = app.ProgressSvc.Enroll(ctx, student, 999)
	assert.ErrorIs(t, err, course.ErrNotFound)
}

func TestService_Enroll_Concurrent(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	prof := testutil.CreateUser(t, app.Users, user.RoleProf, "CS", "prof@academia.test")
	student := testutil.CreateUser(t, app.Users, user.RoleEmployer, "CS", "student@academia.test")
	c := testutil.CreateCourse(t, app.Courses, prof, "Go 101")

	const n = 20
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = app.ProgressSvc.Enroll(ctx, student, c.ID)
		}(i)
	}
	wg.Wait()

	var enrolled, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			enrolled++
		case errors.Is(err, progress.ErrAlreadyEnrolled):
			dup++
		default:
			t.Errorf("Enroll() unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, enrolled)
	assert.Equal(t, n-1, dup)

	uid := student.ID
	records, err := app.Progress.QueryProgress(ctx, progress.QueryFilter{UserID: &uid})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	prof := testutil.CreateUser(t, app.Users, user.RoleProf, "CS", "prof@academia.test")
	student := testutil.CreateUser(t, app.Users, user.RoleEmployer, "CS", "student@academia.test")
	c := testutil.CreateCourse(t, app.Courses, prof, "Go 101")

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	freezeTime(t, &now)

	_, err := app.ProgressSvc.Update(ctx, student, c.ID, 10)
	assert.ErrorIs(t, err, progress.ErrNotEnrolled)

	_, err = app.ProgressSvc.Enroll(ctx, student, c.ID)
	require.NoError(t, err)

	now = now.Add(24 * time.Hour)
	p, err := app.ProgressSvc.Update(ctx, student, c.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Value)

	now = now.Add(24 * time.Hour)
	completedAt := now
	p, err = app.ProgressSvc.Update(ctx, student, c.ID, 150)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Value)
	assert.True(t, p.IsCompleted)
	assert.Equal(t, progress.StatusCompleted, p.Status)
	require.NotNil(t, p.CompletionDate)
	assert.Equal(t, completedAt, *p.CompletionDate)

	now = now.Add(24 * time.Hour)
	p, err = app.ProgressSvc.Update(ctx, student, c.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, completedAt, *p.CompletionDate, "completion date is set once")

	now = now.Add(24 * time.Hour)
	p, err = app.ProgressSvc.MarkCompleted(ctx, student, c.ID)
	require.NoError(t, err)
	assert.Equal(t, now, *p.CompletionDate, "forced completion refreshes the date")
	assert.Equal(t, 4, p.Duration(now.Add(10*24*time.Hour)))

	got, err := app.ProgressSvc.Get(ctx, student, c.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	ns, err := app.NotificationSvc.List(ctx, student, core.Page{})
	require.NoError(t, err)
	require.Len(t, ns, 3, "one per Update, none for MarkCompleted")
	assert.Equal(t, "Votre progression dans le cours 'Go 101' est maintenant de 100%", ns[0].Message)
}

func TestService_ListForUserAndStats(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	prof := testutil.CreateUser(t, app.Users, user.RoleProf, "CS", "prof@academia.test")
	student := testutil.CreateUser(t, app.Users, user.RoleEmployer, "CS", "student@academia.test")
	c1 := testutil.CreateCourse(t, app.Courses, prof, "Go 101")
	c2 := testutil.CreateCourse(t, app.Courses, prof, "Go 102")

	stats, err := app.ProgressSvc.Stats(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, progress.Stats{}, stats)

	for _, c := range []course.Course{c1, c2} {
		_, err = app.ProgressSvc.Enroll(ctx, student, c.ID)
		require.NoError(t, err)
	}
	_, err = app.ProgressSvc.Update(ctx, student, c1.ID, 100)
	require.NoError(t, err)
	_, err = app.ProgressSvc.Update(ctx, student, c2.ID, 50)
	require.NoError(t, err)

	enrollments, err := app.ProgressSvc.ListForUser(ctx, student)
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	assert.Equal(t, "Go 101", enrollments[0].Course.Title)
	assert.Equal(t, 50.0, enrollments[1].Value)

	stats, err = app.ProgressSvc.Stats(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCourses)
	assert.Equal(t, 1, stats.CompletedCourses)
	assert.Equal(t, 75.0, stats.AverageProgress)
	assert.Equal(t, 0.0, stats.AverageCompletionDays)

	// deleting the course drops the enrollment
	require.NoError(t, app.CourseSvc.Delete(ctx, prof, c1.ID))
	enrollments, err = app.ProgressSvc.ListForUser(ctx, student)
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
}

func countType(ns []notification.Notification, typ string) int {
	n := 0
	for _, notif := range ns {
		if notif.Type == typ {
			n++
		}
	}
	return n
}

func TestScenario_CourseLifecycle(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	admin := testutil.CreateUser(t, app.Users, user.RoleAdmin, "Admin", "admin@academia.test")
	profA := testutil.CreateUser(t, app.Users, user.RoleProf, "CS", "a@academia.test")
	student := testutil.CreateUser(t, app.Users, user.RoleEmployer, "CS", "s@academia.test")

	x, err := app.CourseSvc.Create(ctx, profA, course.NewCourse{Title: "X"})
	require.NoError(t, err)
	adminInbox, err := app.NotificationSvc.List(ctx, admin, core.Page{})
	require.NoError(t, err)
	require.Len(t, adminInbox, 1)
	assert.Equal(t, notification.TypeCourseCreated, adminInbox[0].Type)
	assert.Equal(t, x.ID, *adminInbox[0].CourseID)

	p, err := app.ProgressSvc.Enroll(ctx, student, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Value)
	assert.Equal(t, progress.StatusInProgress, p.Status)

	p, err = app.ProgressSvc.Update(ctx, student, x.ID, 150)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Value)
	assert.True(t, p.IsCompleted)
	assert.NotNil(t, p.CompletionDate)

	_, err = app.CourseSvc.AddMaterial(ctx, profA, x.ID, course.Upload{FileName: "notes.txt", Content: strings.NewReader("notes")})
	require.NoError(t, err)

	adminInbox, err = app.NotificationSvc.List(ctx, admin, core.Page{})
	require.NoError(t, err)
	studentInbox, err := app.NotificationSvc.List(ctx, student, core.Page{})
	require.NoError(t, err)

	assert.Equal(t, 1, countType(adminInbox, notification.TypeCourseCreated))
	assert.Equal(t, 1, countType(adminInbox, notification.TypeMaterialAdded))
	assert.Equal(t, 1, countType(studentInbox, notification.TypeProgressUpdated))
	assert.Equal(t, 1, countType(studentInbox, notification.TypeMaterialAdded))
	assert.Len(t, adminInbox, 2)
	assert.Len(t, studentInbox, 2)
}
