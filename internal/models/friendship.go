package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
)

// Friendship is the single edge per unordered user pair. Only the addressee may
// accept or reject while the edge is pending; rejection deletes the row so the
// pair can be requested again.
type Friendship struct {
	ID          uuid.UUID        `json:"id"`
	RequesterID uuid.UUID        `json:"requester_id"`
	AddresseeID uuid.UUID        `json:"addressee_id"`
	Status      FriendshipStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Other returns the member of the edge that is not userID.
func (f *Friendship) Other(userID uuid.UUID) uuid.UUID {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

type FriendRequest struct {
	Friendship
	SenderUsername string `json:"sender_username"`
}

// Friend is one entry of a user's accepted-friends list.
type Friend struct {
	FriendshipID uuid.UUID `json:"friendship_id"`
	UserID       uuid.UUID `json:"id"`
	Username     string    `json:"username"`
}

// FriendPresence joins an accepted friend with their live free/busy status.
type FriendPresence struct {
	UserID   uuid.UUID `json:"id"`
	Username string    `json:"username"`
	IsFree   bool      `json:"is_free"`
	Status   string    `json:"status"`
}
