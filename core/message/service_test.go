package message_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/message"
	"github.com/trezcool/academia/core/user"
	testutil "github.com/trezcool/academia/tests"
)

type fixtures struct {
	app                  *testutil.App
	alice, bob, intruder user.User
}

func setUp(t *testing.T) fixtures {
	app := testutil.NewApp(t)
	return fixtures{
		app:      app,
		alice:    testutil.CreateUser(t, app.Users, user.RoleProf, "CS", "alice@academia.test"),
		bob:      testutil.CreateUser(t, app.Users, user.RoleEmployer, "CS", "bob@academia.test"),
		intruder: testutil.CreateUser(t, app.Users, user.RoleEmployer, "HR", "eve@academia.test"),
	}
}

func TestService_Send(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)

	msg, err := f.app.MessageSvc.Send(ctx, f.alice, message.NewMessage{ReceiverID: f.bob.ID, Content: " hi "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)
	assert.False(t, msg.HasAttachment())
	assert.False(t, msg.IsRead)

	_, err = f.app.MessageSvc.Send(ctx, f.alice, message.NewMessage{ReceiverID: 999, Content: "hi"}, nil)
	assert.ErrorIs(t, err, message.ErrReceiverNotFound)

	_, err = f.app.MessageSvc.Send(ctx, f.alice, message.NewMessage{ReceiverID: f.bob.ID, Content: "  "}, nil)
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestService_Attachment(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)

	msg, err := f.app.MessageSvc.Send(ctx, f.alice, message.NewMessage{ReceiverID: f.bob.ID, Content: "see attached"}, &message.Attachment{
		FileName:    "report.pdf",
		ContentType: "application/pdf",
		Content:     strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)
	require.True(t, msg.HasAttachment())
	assert.True(t, strings.HasPrefix(*msg.Location, message.BlobOwner(msg.ID)+"/"))

	for _, usr := range []user.User{f.alice, f.bob} {
		rc, ct, err := f.app.MessageSvc.Attachment(ctx, usr, msg.ID)
		require.NoError(t, err)
		content, _ := io.ReadAll(rc)
		_ = rc.Close()
		assert.Equal(t, "%PDF-1.4", string(content))
		assert.Equal(t, "application/pdf", ct)
	}

	_, _, err = f.app.MessageSvc.Attachment(ctx, f.intruder, msg.ID)
	assert.ErrorIs(t, err, message.ErrNotFound)

	plain, err := f.app.MessageSvc.Send(ctx, f.alice, message.NewMessage{ReceiverID: f.bob.ID, Content: "no file"}, nil)
	require.NoError(t, err)
	_, _, err = f.app.MessageSvc.Attachment(ctx, f.bob, plain.ID)
	assert.ErrorIs(t, err, message.ErrNotFound)
}

func TestService_ReadAndMarkRead(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)

	msg, err := f.app.MessageSvc.Send(ctx, f.alice, message.NewMessage{ReceiverID: f.bob.ID, Content: "hi"}, nil)
	require.NoError(t, err)

	got, err := f.app.MessageSvc.Read(ctx, f.alice, msg.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRead, "the sender reading does not mark it read")

	_, err = f.app.MessageSvc.Read(ctx, f.intruder, msg.ID)
	assert.ErrorIs(t, err, message.ErrNotFound)

	got, err = f.app.MessageSvc.Read(ctx, f.bob, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	_, err = f.app.MessageSvc.MarkRead(ctx, f.alice, msg.ID)
	assert.ErrorIs(t, err, message.ErrNotFound, "reserved to the receiver")
	got, err = f.app.MessageSvc.MarkRead(ctx, f.bob, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	_, err = f.app.MessageSvc.Read(ctx, f.bob, 999)
	assert.ErrorIs(t, err, message.ErrNotFound)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)

	for i := 0; i < 3; i++ {
		_, err := f.app.MessageSvc.Send(ctx, f.alice, message.NewMessage{ReceiverID: f.bob.ID, Content: "ping " + strconv.Itoa(i)}, nil)
		require.NoError(t, err)
	}
	_, err := f.app.MessageSvc.Send(ctx, f.bob, message.NewMessage{ReceiverID: f.alice.ID, Content: "pong"}, nil)
	require.NoError(t, err)

	tests := []struct {
		usr  user.User
		box  string
		page core.Page
		want int
	}{
		{f.bob, "", core.Page{}, 3},
		{f.bob, message.BoxReceived, core.Page{Limit: 2}, 2},
		{f.bob, message.BoxReceived, core.Page{Skip: 2}, 1},
		{f.bob, message.BoxSent, core.Page{}, 1},
		{f.alice, message.BoxSent, core.Page{}, 3},
		{f.intruder, message.BoxReceived, core.Page{}, 0},
	}
	for _, tc := range tests {
		msgs, err := f.app.MessageSvc.List(ctx, tc.usr, tc.box, tc.page)
		require.NoError(t, err)
		assert.Len(t, msgs, tc.want, "%s %q %+v", tc.usr.Email, tc.box, tc.page)
	}

	msgs, err := f.app.MessageSvc.List(ctx, f.bob, "", core.Page{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, "ping 2", msgs[0].Content, "newest first")

	_, err = f.app.MessageSvc.List(ctx, f.bob, "archived", core.Page{})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "type", verr.Fields[0].Field)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)

	msg, err := f.app.MessageSvc.Send(ctx, f.alice, message.NewMessage{ReceiverID: f.bob.ID, Content: "bye"}, &message.Attachment{
		FileName: "a.txt",
		Content:  strings.NewReader("a"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.app.MessageSvc.Delete(ctx, f.intruder, msg.ID), message.ErrNotFound)
	require.NoError(t, f.app.MessageSvc.Delete(ctx, f.bob, msg.ID))

	_, err = f.app.MessageSvc.Read(ctx, f.alice, msg.ID)
	assert.ErrorIs(t, err, message.ErrNotFound)
	_, err = os.Stat(filepath.Join(f.app.Conf.Storage.UploadDir, "messages", strconv.Itoa(msg.ID)))
	assert.True(t, os.IsNotExist(err), "the attachment dir is removed")

	plain, err := f.app.MessageSvc.Send(ctx, f.alice, message.NewMessage{ReceiverID: f.bob.ID, Content: "plain"}, nil)
	require.NoError(t, err)
	require.NoError(t, f.app.MessageSvc.Delete(ctx, f.alice, plain.ID))
	assert.ErrorIs(t, f.app.MessageSvc.Delete(ctx, f.alice, plain.ID), message.ErrNotFound)
}

func TestService_Delete_KeepsAttachmentOnFailedCommit(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)
	msg, err := f.app.MessageSvc.Send(ctx, f.alice, message.NewMessage{ReceiverID: f.bob.ID, Content: "bye"}, &message.Attachment{
		FileName: "a.txt",
		Content:  strings.NewReader("a"),
	})
	require.NoError(t, err)

	svc := message.NewService(
		testutil.FailingCommit{Transactor: f.app.DB, Err: assert.AnError},
		f.app.Messages, f.app.Users, f.app.Blobs, f.app.Validate, testutil.NopLogger{},
	)
	assert.ErrorIs(t, svc.Delete(ctx, f.bob, msg.ID), assert.AnError)

	rc, err := f.app.Blobs.Open(ctx, *msg.Location)
	require.NoError(t, err, "the attachment outlives a failed commit")
	_ = rc.Close()
}
