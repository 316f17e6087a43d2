package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gelapp/gel/internal/models"
)

var (
	ErrInviteForbidden          = errors.New("users are not accepted friends")
	ErrInvalidLocation          = errors.New("location is not in the allowed set")
	ErrNotificationNotFound     = errors.New("notification not found")
	ErrNotNotificationRecipient = errors.New("only the recipient can mark a notification read")
)

// InviteService creates invites between accepted friends and maintains each
// recipient's notification inbox. It never checks the receiver's presence:
// inviting a busy friend is the caller's decision.
type InviteService struct {
	db      DB
	friends FriendChecker
}

func NewInviteService(db DB, friends FriendChecker) *InviteService {
	return &InviteService{db: db, friends: friends}
}

// CreateInvite inserts the invite and its single notification in one
// statement, so no poll can observe an invite without its notification.
func (s *InviteService) CreateInvite(ctx context.Context, senderID, receiverID uuid.UUID, location models.Location) (*models.Invite, error) {
	if !location.Valid() {
		return nil, ErrInvalidLocation
	}

	isFriend, err := s.friends.IsFriend(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !isFriend {
		return nil, ErrInviteForbidden
	}

	invite := &models.Invite{}
	err = s.db.QueryRow(ctx,
		`WITH inv AS (
			INSERT INTO invites (sender_id, receiver_id, location)
			VALUES ($1, $2, $3)
			RETURNING id, sender_id, receiver_id, location, created_at
		), notif AS (
			INSERT INTO notifications (recipient_id, invite_id)
			SELECT receiver_id, id FROM inv
		)
		SELECT id, sender_id, receiver_id, location, created_at FROM inv`,
		senderID, receiverID, string(location),
	).Scan(&invite.ID, &invite.SenderID, &invite.ReceiverID, &invite.Location, &invite.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating invite: %w", err)
	}

	return invite, nil
}

// ListUnread returns every unread notification for the user, joined with the
// invite and sender. Reads go straight to storage, so a notification created
// before this call is always included.
func (s *InviteService) ListUnread(ctx context.Context, userID uuid.UUID) ([]models.UnreadNotification, error) {
	rows, err := s.db.Query(ctx,
		`SELECT n.id, u.username, i.location, n.created_at
		 FROM notifications n
		 JOIN invites i ON n.invite_id = i.id
		 JOIN users u ON i.sender_id = u.id
		 WHERE n.recipient_id = $1 AND n.read_at IS NULL
		 ORDER BY n.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing unread notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.UnreadNotification
	for rows.Next() {
		var n models.UnreadNotification
		if err := rows.Scan(&n.ID, &n.SenderUsername, &n.Location, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if notifications == nil {
		notifications = []models.UnreadNotification{}
	}

	return notifications, nil
}

// MarkRead sets read_at once. The update is a CAS on read_at IS NULL: the
// second of two racing calls loses and gets ErrNotificationNotFound, so read
// never reverts or double-applies.
func (s *InviteService) MarkRead(ctx context.Context, actorID, notificationID uuid.UUID) error {
	var recipientID uuid.UUID
	var read bool
	err := s.db.QueryRow(ctx,
		"SELECT recipient_id, read_at IS NOT NULL FROM notifications WHERE id = $1",
		notificationID,
	).Scan(&recipientID, &read)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotificationNotFound
	}
	if err != nil {
		return fmt.Errorf("getting notification: %w", err)
	}

	if recipientID != actorID {
		return ErrNotNotificationRecipient
	}
	if read {
		return ErrNotificationNotFound
	}

	tag, err := s.db.Exec(ctx,
		"UPDATE notifications SET read_at = NOW() WHERE id = $1 AND recipient_id = $2 AND read_at IS NULL",
		notificationID, actorID,
	)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}

	return nil
}
