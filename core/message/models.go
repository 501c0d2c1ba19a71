package message

import (
	"io"
	"strconv"
	"time"

	"github.com/trezcool/academia/core"
)

// Boxes
const (
	BoxReceived = "received"
	BoxSent     = "sent"
)

type Message struct {
	ID          int       `json:"id"`
	SenderID    int       `json:"sender_id"`
	ReceiverID  int       `json:"receiver_id"`
	Content     string    `json:"content"`
	Location    *string   `json:"-"`
	ContentType *string   `json:"content_type"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

func (m Message) HasAttachment() bool { return m.Location != nil && *m.Location != "" }

// IsParty reports whether userID sent or received m.
func (m Message) IsParty(userID int) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// NewMessage contains information needed to send a Message.
type NewMessage struct {
	ReceiverID int    `json:"receiver_id" validate:"required,min=1"`
	Content    string `json:"content" validate:"required"`
}

func (nm *NewMessage) Clean() {
	nm.Content = core.CleanString(nm.Content)
}

// Attachment is an optional file sent along a message.
type Attachment struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// QueryFilter selects the messages of a box.
type QueryFilter struct {
	SenderID   *int
	ReceiverID *int
}

func (qf QueryFilter) Match(m Message) bool {
	if qf.SenderID != nil && m.SenderID != *qf.SenderID {
		return false
	}
	return qf.ReceiverID == nil || m.ReceiverID == *qf.ReceiverID
}

// BlobOwner returns the blob container of the message `id`.
func BlobOwner(id int) string {
	return "messages/" + strconv.Itoa(id)
}

func nowUTC() time.Time { return time.Now().UTC() }
