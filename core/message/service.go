package message

import (
	"context"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("message not found")
	ErrReceiverNotFound = errors.New("receiver not found")
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, m Message) (Message, error)
		GetMessage(ctx context.Context, id int) (Message, error)
		// QueryMessages returns the matching messages, newest first.
		QueryMessages(ctx context.Context, filter QueryFilter, page core.Page) ([]Message, error)
		UpdateMessage(ctx context.Context, m Message) (Message, error)
		DeleteMessage(ctx context.Context, id int) error
	}

	Service struct {
		tx       core.Transactor
		repo     Repository
		users    user.Repository
		blobs    core.BlobStore
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(
	tx core.Transactor,
	repo Repository,
	users user.Repository,
	blobs core.BlobStore,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{tx: tx, repo: repo, users: users, blobs: blobs, validate: validate, logger: logger}
}

// Send stores the message first, then its attachment keyed by the message ID.
func (svc *Service) Send(ctx context.Context, sender user.User, nm NewMessage, at *Attachment) (Message, error) {
	nm.Clean()
	if err := svc.validate.Struct(nm); err != nil {
		return Message{}, err
	}

	var (
		msg Message
		loc string
	)
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		receiver, err := svc.users.GetUser(ctx, user.GetFilter{ID: nm.ReceiverID})
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return ErrReceiverNotFound
			}
			return errors.Wrap(err, "finding receiver")
		}

		msg, err = svc.repo.CreateMessage(ctx, Message{
			SenderID:   sender.ID,
			ReceiverID: receiver.ID,
			Content:    nm.Content,
			CreatedAt:  nowUTC(),
		})
		if err != nil {
			return errors.Wrap(err, "creating message")
		}
		if at == nil || at.Content == nil {
			return nil
		}

		if loc, err = svc.blobs.Save(ctx, BlobOwner(msg.ID), at.FileName, at.Content); err != nil {
			return errors.Wrap(err, "saving attachment")
		}
		msg.Location = core.StringPtr(loc)
		msg.ContentType = core.StringPtr(at.ContentType)
		msg, err = svc.repo.UpdateMessage(ctx, msg)
		return errors.Wrap(err, "updating message")
	})
	if err != nil {
		if loc != "" {
			if dErr := svc.blobs.Delete(ctx, loc); dErr != nil {
				svc.logger.Error("deleting orphan attachment", errors.Wrap(dErr, loc), sender)
			}
		}
		return Message{}, err
	}
	return msg, nil
}

// List returns a page of the received or sent box of usr.
func (svc *Service) List(ctx context.Context, usr user.User, box string, page core.Page) ([]Message, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}

	uid := usr.ID
	var filter QueryFilter
	switch box {
	case BoxReceived, "":
		filter.ReceiverID = &uid
	case BoxSent:
		filter.SenderID = &uid
	default:
		return nil, core.NewValidationError(
			errors.New("invalid message box"),
			core.FieldError{Field: "type", Error: "type must be one of [received sent]"},
		)
	}
	return svc.repo.QueryMessages(ctx, filter, page)
}

// get returns ErrNotFound both for missing messages and for messages usr is not a party of.
func (svc *Service) get(ctx context.Context, usr user.User, id int) (Message, error) {
	msg, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if !msg.IsParty(usr.ID) {
		return Message{}, ErrNotFound
	}
	return msg, nil
}

// Read returns the message, marking it read when usr is the receiver.
func (svc *Service) Read(ctx context.Context, usr user.User, id int) (Message, error) {
	var msg Message
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if msg, err = svc.get(ctx, usr, id); err != nil {
			return err
		}
		if msg.ReceiverID != usr.ID || msg.IsRead {
			return nil
		}
		msg.IsRead = true
		msg, err = svc.repo.UpdateMessage(ctx, msg)
		return err
	})
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

// MarkRead is reserved to the receiver.
func (svc *Service) MarkRead(ctx context.Context, usr user.User, id int) (Message, error) {
	var msg Message
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if msg, err = svc.repo.GetMessage(ctx, id); err != nil {
			return err
		}
		if msg.ReceiverID != usr.ID {
			return ErrNotFound
		}
		if msg.IsRead {
			return nil
		}
		msg.IsRead = true
		msg, err = svc.repo.UpdateMessage(ctx, msg)
		return err
	})
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Delete removes the message and its attachment. Either party may delete it.
// The attachment is removed once the deletion is committed.
func (svc *Service) Delete(ctx context.Context, usr user.User, id int) error {
	var loc string
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		msg, err := svc.get(ctx, usr, id)
		if err != nil {
			return err
		}
		if err = svc.repo.DeleteMessage(ctx, msg.ID); err != nil {
			return err
		}
		if msg.HasAttachment() {
			loc = *msg.Location
		}
		return nil
	})
	if err != nil || loc == "" {
		return err
	}

	if err = svc.blobs.Delete(ctx, loc); err != nil {
		svc.logger.Error("deleting attachment", errors.Wrap(err, loc), usr)
	}
	return nil
}

// Attachment opens the message attachment. The caller must close the reader.
func (svc *Service) Attachment(ctx context.Context, usr user.User, id int) (io.ReadCloser, string, error) {
	msg, err := svc.get(ctx, usr, id)
	if err != nil {
		return nil, "", err
	}
	if !msg.HasAttachment() {
		return nil, "", ErrNotFound
	}

	rc, err := svc.blobs.Open(ctx, *msg.Location)
	if err != nil {
		if errors.Is(err, core.ErrBlobNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", errors.Wrap(err, "opening attachment")
	}
	var ct string
	if msg.ContentType != nil {
		ct = *msg.ContentType
	}
	return rc, ct, nil
}
