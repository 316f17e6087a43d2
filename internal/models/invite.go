package models

import (
	"time"

	"github.com/google/uuid"
)

// Invite is a one-time "come meet me" proposal between accepted friends.
// Immutable once created.
type Invite struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Location   Location  `json:"location"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification is the receiver-facing record of an invite. ReadAt is nil until
// the recipient marks it read; it never reverts.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	InviteID    uuid.UUID  `json:"invite_id"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// UnreadNotification is the inbox projection returned to polling clients.
type UnreadNotification struct {
	ID             uuid.UUID `json:"id"`
	SenderUsername string    `json:"sender_username"`
	Location       Location  `json:"location"`
	Timestamp      time.Time `json:"timestamp"`
}
