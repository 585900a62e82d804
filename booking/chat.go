/*
chat.go - Per-booking chat transcript

A lightweight transcript attached to a confirmed booking. Only the two
parties may read or write it, and it disappears when the booking completes
(lifecycle.go). Delivery guarantees are explicitly out of scope — this is an
append-and-list store, nothing more.
*/
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var errEmptyMessage = errors.New("message text is empty")

// Chat manages booking transcripts.
type Chat struct {
	store Store
	now   func() time.Time
}

// NewChat creates the chat service.
func NewChat(store Store) *Chat {
	return &Chat{store: store, now: time.Now}
}

// Send appends a message to a booking's transcript. The sender must be a
// party of the booking, and the booking must still be confirmed.
func (c *Chat) Send(ctx context.Context, bookingID BookingID, senderID UserID, text string) (*ChatMessage, error) {
	if text == "" {
		return nil, errEmptyMessage
	}

	b, err := c.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	if !b.IsParty(senderID) {
		return nil, ErrPermissionDenied
	}
	if b.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}

	msg := ChatMessage{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: c.now().UTC(),
	}
	if err := c.store.AppendChatMessage(ctx, msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// List returns a booking's transcript in chronological order. Parties only.
func (c *Chat) List(ctx context.Context, bookingID BookingID, actorID UserID) ([]ChatMessage, error) {
	b, err := c.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	if !b.IsParty(actorID) {
		return nil, ErrPermissionDenied
	}
	return c.store.ListChatMessages(ctx, bookingID)
}
