package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gelapp/gel/internal/models"
)

// UserServiceInterface defines the contract for user operations.
type UserServiceInterface interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthServiceInterface defines the contract for the token collaborator.
type AuthServiceInterface interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
	CreateSession(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateToken(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
	Login(ctx context.Context, username, password string) (*models.User, string, error)
}

// FriendServiceInterface defines the contract for the friend graph.
type FriendServiceInterface interface {
	RequestFriend(ctx context.Context, requesterID uuid.UUID, targetUsername string) (*models.Friendship, error)
	AcceptRequest(ctx context.Context, actorID, friendshipID uuid.UUID) (*models.Friendship, error)
	RejectRequest(ctx context.Context, actorID, friendshipID uuid.UUID) error
	ListPending(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error)
	ListAccepted(ctx context.Context, userID uuid.UUID) ([]models.Friend, error)
	IsFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error)
}

// FriendChecker is the slice of the friend graph the dispatcher needs.
type FriendChecker interface {
	IsFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error)
}

// ScheduleServiceInterface defines the contract for the schedule store.
type ScheduleServiceInterface interface {
	AddEntry(ctx context.Context, ownerID uuid.UUID, params models.CreateScheduleItemParams) (*models.ScheduleItem, error)
	DeleteEntry(ctx context.Context, ownerID, entryID uuid.UUID) error
	ListEntries(ctx context.Context, ownerID uuid.UUID) ([]models.ScheduleItem, error)
	IngestRows(ctx context.Context, ownerID uuid.UUID, rows []models.CreateScheduleItemParams) (*IngestResult, error)
}

// PresenceServiceInterface defines the contract for the presence evaluator.
type PresenceServiceInterface interface {
	IsFree(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)
	BatchFreeStatus(ctx context.Context, userIDs []uuid.UUID, now time.Time) (map[uuid.UUID]bool, error)
}

// InviteServiceInterface defines the contract for the dispatcher.
type InviteServiceInterface interface {
	CreateInvite(ctx context.Context, senderID, receiverID uuid.UUID, location models.Location) (*models.Invite, error)
	ListUnread(ctx context.Context, userID uuid.UUID) ([]models.UnreadNotification, error)
	MarkRead(ctx context.Context, actorID, notificationID uuid.UUID) error
}
