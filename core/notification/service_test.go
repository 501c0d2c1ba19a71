package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/user"
	testutil "github.com/trezcool/academia/tests"
)

func TestService_ListAndMarkRead(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	owner := testutil.CreateUser(t, app.Users, user.RoleEmployer, "CS", "owner@academia.test")
	other := testutil.CreateUser(t, app.Users, user.RoleEmployer, "CS", "other@academia.test")

	base := time.Now().UTC()
	var last notification.Notification
	for i := 0; i < 3; i++ {
		n, err := app.Notifications.CreateNotification(ctx, notification.Notification{
			UserID:    owner.ID,
			Title:     "t",
			Message:   "m",
			Type:      notification.TypeCourseCreated,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		last = n
	}

	ns, err := app.NotificationSvc.List(ctx, owner, core.Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.Equal(t, last.ID, ns[0].ID, "newest first")

	ns, err = app.NotificationSvc.List(ctx, other, core.Page{})
	require.NoError(t, err)
	assert.Empty(t, ns)

	_, err = app.NotificationSvc.MarkRead(ctx, other, last.ID)
	assert.ErrorIs(t, err, notification.ErrNotFound)
	_, err = app.NotificationSvc.MarkRead(ctx, owner, 999)
	assert.ErrorIs(t, err, notification.ErrNotFound)

	n, err := app.NotificationSvc.MarkRead(ctx, owner, last.ID)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	n, err = app.NotificationSvc.MarkRead(ctx, owner, last.ID)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
}
