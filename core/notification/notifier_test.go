package notification_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/user"
	testutil "github.com/trezcool/academia/tests"
)

func adminIDs(admins []user.User) []int {
	ids := make([]int, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestConfiguredAdmins(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	a1 := testutil.CreateUser(t, app.Users, user.RoleAdmin, "Admin", "a1@academia.test")
	prof := testutil.CreateUser(t, app.Users, user.RoleProf, "CS", "prof@academia.test")
	a2 := testutil.CreateUser(t, app.Users, user.RoleAdmin, "Admin", "a2@academia.test")

	tests := []struct {
		name   string
		emails []string
		want   []int
	}{
		{"every admin by default", nil, []int{a1.ID, a2.ID}},
		{"blank entries ignored", []string{" "}, []int{a1.ID, a2.ID}},
		{"configured admin only", []string{" A2@Academia.test "}, []int{a2.ID}},
		{"non admins and unknowns ignored", []string{prof.Email, "ghost@academia.test"}, []int{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			admins, err := notification.NewConfiguredAdmins(app.Users, tc.emails).Admins(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, adminIDs(admins))
		})
	}
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	a1 := testutil.CreateUser(t, app.Users, user.RoleAdmin, "Admin", "a1@academia.test")
	a2 := testutil.CreateUser(t, app.Users, user.RoleAdmin, "Admin", "a2@academia.test")
	student := testutil.CreateUser(t, app.Users, user.RoleEmployer, "CS", "s@academia.test")
	n := notification.NewNotifier(app.Notifications, notification.NewConfiguredAdmins(app.Users, []string{a1.Email}))

	c := course.Course{ID: 7, Title: "Go 101"}
	require.NoError(t, n.MaterialAdded(ctx, c, course.Material{ID: 3}, []int{student.ID}))
	require.NoError(t, n.ProgressUpdated(ctx, student.ID, c, 42.5))

	inbox := func(usr user.User) []notification.Notification {
		ns, err := app.Notifications.QueryNotifications(ctx, usr.ID, core.Page{})
		require.NoError(t, err)
		return ns
	}

	admin := inbox(a1)
	require.Len(t, admin, 1)
	assert.Equal(t, "Un nouveau matériel a été ajouté au cours 'Go 101'", admin[0].Message)
	assert.Equal(t, 7, *admin[0].CourseID)
	assert.Equal(t, 3, *admin[0].MaterialID)
	assert.False(t, admin[0].IsRead)

	assert.Empty(t, inbox(a2), "not a configured recipient")

	ns := inbox(student)
	require.Len(t, ns, 2)
	assert.Equal(t, notification.TypeProgressUpdated, ns[0].Type)
	assert.Equal(t, "Votre progression dans le cours 'Go 101' est maintenant de 42.5%", ns[0].Message)
	assert.Nil(t, ns[0].MaterialID)
	assert.Equal(t, "Un nouveau matériel est disponible dans le cours 'Go 101'", ns[1].Message)
}
