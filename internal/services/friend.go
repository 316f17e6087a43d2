package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gelapp/gel/internal/models"
)

var (
	ErrUnknownUser      = errors.New("no user with that username")
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrDuplicateRequest = errors.New("a pending request already exists for this pair")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrNotAddressee     = errors.New("only the addressee can accept or reject")
	ErrNotFriends       = errors.New("users are not friends")
)

// FriendService owns the pairwise relationship state machine:
// none -> pending -> accepted, or pending -> deleted on reject. Transitions are
// single compare-and-set statements so racing accept/reject calls resolve to
// exactly one winner.
type FriendService struct {
	db DB
}

func NewFriendService(db DB) *FriendService {
	return &FriendService{db: db}
}

// RequestFriend resolves targetUsername and creates a pending edge with the
// caller recorded as requester.
func (s *FriendService) RequestFriend(ctx context.Context, requesterID uuid.UUID, targetUsername string) (*models.Friendship, error) {
	var targetID uuid.UUID
	err := s.db.QueryRow(ctx,
		"SELECT id FROM users WHERE username = $1",
		strings.TrimSpace(targetUsername),
	).Scan(&targetID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("resolving username: %w", err)
	}

	if targetID == requesterID {
		return nil, ErrSelfRequest
	}

	// Check for an existing edge in either direction.
	var status models.FriendshipStatus
	err = s.db.QueryRow(ctx,
		`SELECT status FROM friendships
		 WHERE (requester_id = $1 AND addressee_id = $2)
		    OR (requester_id = $2 AND addressee_id = $1)`,
		requesterID, targetID,
	).Scan(&status)
	if err == nil {
		if status == models.FriendshipStatusAccepted {
			return nil, ErrAlreadyFriends
		}
		return nil, ErrDuplicateRequest
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("checking existing edge: %w", err)
	}

	friendship := &models.Friendship{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO friendships (requester_id, addressee_id, status)
		 VALUES ($1, $2, 'pending')
		 RETURNING id, requester_id, addressee_id, status, created_at`,
		requesterID, targetID,
	).Scan(&friendship.ID, &friendship.RequesterID, &friendship.AddresseeID, &friendship.Status, &friendship.CreatedAt)
	if err != nil {
		// The pair index closes the race between two concurrent first requests;
		// the loser surfaces the same error as a sequential duplicate.
		if isUniqueViolation(err) {
			return nil, ErrDuplicateRequest
		}
		return nil, fmt.Errorf("creating friendship: %w", err)
	}

	return friendship, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// AcceptRequest transitions a pending edge to accepted. The update is a CAS on
// (id, status='pending'); a caller racing a concurrent accept or reject
// observes the edge already transitioned and gets ErrRequestNotFound.
func (s *FriendService) AcceptRequest(ctx context.Context, actorID, friendshipID uuid.UUID) (*models.Friendship, error) {
	friendship, err := s.getByID(ctx, friendshipID)
	if err != nil {
		return nil, err
	}

	if friendship.Status != models.FriendshipStatusPending {
		return nil, ErrRequestNotFound
	}
	if friendship.AddresseeID != actorID {
		return nil, ErrNotAddressee
	}

	tag, err := s.db.Exec(ctx,
		"UPDATE friendships SET status = 'accepted' WHERE id = $1 AND status = 'pending'",
		friendshipID,
	)
	if err != nil {
		return nil, fmt.Errorf("accepting friendship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrRequestNotFound
	}

	friendship.Status = models.FriendshipStatusAccepted
	return friendship, nil
}

// RejectRequest deletes a pending edge so the pair can be requested again.
// Same authorization and CAS shape as AcceptRequest.
func (s *FriendService) RejectRequest(ctx context.Context, actorID, friendshipID uuid.UUID) error {
	friendship, err := s.getByID(ctx, friendshipID)
	if err != nil {
		return err
	}

	if friendship.Status != models.FriendshipStatusPending {
		return ErrRequestNotFound
	}
	if friendship.AddresseeID != actorID {
		return ErrNotAddressee
	}

	tag, err := s.db.Exec(ctx,
		"DELETE FROM friendships WHERE id = $1 AND status = 'pending'",
		friendshipID,
	)
	if err != nil {
		return fmt.Errorf("rejecting friendship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}

	return nil
}

// ListPending returns the incoming pending requests for a user.
func (s *FriendService) ListPending(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.requester_id, f.addressee_id, f.status, f.created_at, u.username
		 FROM friendships f
		 JOIN users u ON f.requester_id = u.id
		 WHERE f.addressee_id = $1 AND f.status = 'pending'
		 ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		var r models.FriendRequest
		if err := rows.Scan(&r.ID, &r.RequesterID, &r.AddresseeID, &r.Status, &r.CreatedAt, &r.SenderUsername); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, r)
	}

	if requests == nil {
		requests = []models.FriendRequest{}
	}

	return requests, nil
}

// ListAccepted returns a user's accepted friends with usernames.
func (s *FriendService) ListAccepted(ctx context.Context, userID uuid.UUID) ([]models.Friend, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id,
		        CASE WHEN f.requester_id = $1 THEN f.addressee_id ELSE f.requester_id END,
		        CASE WHEN f.requester_id = $1 THEN u2.username ELSE u1.username END
		 FROM friendships f
		 JOIN users u1 ON f.requester_id = u1.id
		 JOIN users u2 ON f.addressee_id = u2.id
		 WHERE (f.requester_id = $1 OR f.addressee_id = $1) AND f.status = 'accepted'
		 ORDER BY CASE WHEN f.requester_id = $1 THEN u2.username ELSE u1.username END`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	defer rows.Close()

	var friends []models.Friend
	for rows.Next() {
		var f models.Friend
		if err := rows.Scan(&f.FriendshipID, &f.UserID, &f.Username); err != nil {
			return nil, fmt.Errorf("scanning friend: %w", err)
		}
		friends = append(friends, f)
	}

	if friends == nil {
		friends = []models.Friend{}
	}

	return friends, nil
}

// IsFriend reports whether an accepted edge exists between the two users.
func (s *FriendService) IsFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error) {
	var isFriend bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE ((requester_id = $1 AND addressee_id = $2) OR (requester_id = $2 AND addressee_id = $1))
			  AND status = 'accepted'
		)`,
		userID, otherUserID,
	).Scan(&isFriend)
	if err != nil {
		return false, fmt.Errorf("checking friendship: %w", err)
	}
	return isFriend, nil
}

func (s *FriendService) getByID(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error) {
	friendship := &models.Friendship{}
	err := s.db.QueryRow(ctx,
		`SELECT id, requester_id, addressee_id, status, created_at
		 FROM friendships WHERE id = $1`,
		friendshipID,
	).Scan(&friendship.ID, &friendship.RequesterID, &friendship.AddresseeID, &friendship.Status, &friendship.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting friendship: %w", err)
	}
	return friendship, nil
}
