package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gelapp/gel/internal/models"
	"github.com/gelapp/gel/internal/services"
	"github.com/gelapp/gel/internal/services/ai"
)

type mockUserService struct {
	CreateFunc        func(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
}

func (m *mockUserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return &models.User{ID: uuid.New(), Username: params.Username, Email: params.Email}, nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, services.ErrUserNotFound
}

func (m *mockUserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, services.ErrUserNotFound
}

type mockAuthService struct {
	HashPasswordFunc   func(password string) (string, error)
	VerifyPasswordFunc func(hash, password string) bool
	CreateSessionFunc  func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateTokenFunc  func(ctx context.Context, token string) (*models.User, error)
	DeleteSessionFunc  func(ctx context.Context, token string) error
	LoginFunc          func(ctx context.Context, username, password string) (*models.User, string, error)
}

func (m *mockAuthService) HashPassword(password string) (string, error) {
	if m.HashPasswordFunc != nil {
		return m.HashPasswordFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *mockAuthService) VerifyPassword(hash, password string) bool {
	if m.VerifyPasswordFunc != nil {
		return m.VerifyPasswordFunc(hash, password)
	}
	return hash == "hashed_"+password
}

func (m *mockAuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, userID)
	}
	return "token", nil
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx, token)
	}
	return nil, services.ErrSessionNotFound
}

func (m *mockAuthService) DeleteSession(ctx context.Context, token string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, token)
	}
	return nil
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return nil, "", services.ErrInvalidCredentials
}

type mockFriendService struct {
	RequestFriendFunc func(ctx context.Context, requesterID uuid.UUID, targetUsername string) (*models.Friendship, error)
	AcceptRequestFunc func(ctx context.Context, actorID, friendshipID uuid.UUID) (*models.Friendship, error)
	RejectRequestFunc func(ctx context.Context, actorID, friendshipID uuid.UUID) error
	ListPendingFunc   func(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error)
	ListAcceptedFunc  func(ctx context.Context, userID uuid.UUID) ([]models.Friend, error)
	IsFriendFunc      func(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error)
}

func (m *mockFriendService) RequestFriend(ctx context.Context, requesterID uuid.UUID, targetUsername string) (*models.Friendship, error) {
	if m.RequestFriendFunc != nil {
		return m.RequestFriendFunc(ctx, requesterID, targetUsername)
	}
	return &models.Friendship{}, nil
}

func (m *mockFriendService) AcceptRequest(ctx context.Context, actorID, friendshipID uuid.UUID) (*models.Friendship, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, actorID, friendshipID)
	}
	return &models.Friendship{}, nil
}

func (m *mockFriendService) RejectRequest(ctx context.Context, actorID, friendshipID uuid.UUID) error {
	if m.RejectRequestFunc != nil {
		return m.RejectRequestFunc(ctx, actorID, friendshipID)
	}
	return nil
}

func (m *mockFriendService) ListPending(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	if m.ListPendingFunc != nil {
		return m.ListPendingFunc(ctx, userID)
	}
	return []models.FriendRequest{}, nil
}

func (m *mockFriendService) ListAccepted(ctx context.Context, userID uuid.UUID) ([]models.Friend, error) {
	if m.ListAcceptedFunc != nil {
		return m.ListAcceptedFunc(ctx, userID)
	}
	return []models.Friend{}, nil
}

func (m *mockFriendService) IsFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error) {
	if m.IsFriendFunc != nil {
		return m.IsFriendFunc(ctx, userID, otherUserID)
	}
	return false, nil
}

type mockPresenceService struct {
	IsFreeFunc          func(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)
	BatchFreeStatusFunc func(ctx context.Context, userIDs []uuid.UUID, now time.Time) (map[uuid.UUID]bool, error)
}

func (m *mockPresenceService) IsFree(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	if m.IsFreeFunc != nil {
		return m.IsFreeFunc(ctx, userID, now)
	}
	return true, nil
}

func (m *mockPresenceService) BatchFreeStatus(ctx context.Context, userIDs []uuid.UUID, now time.Time) (map[uuid.UUID]bool, error) {
	if m.BatchFreeStatusFunc != nil {
		return m.BatchFreeStatusFunc(ctx, userIDs, now)
	}
	status := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		status[id] = true
	}
	return status, nil
}

type mockInviteService struct {
	CreateInviteFunc func(ctx context.Context, senderID, receiverID uuid.UUID, location models.Location) (*models.Invite, error)
	ListUnreadFunc   func(ctx context.Context, userID uuid.UUID) ([]models.UnreadNotification, error)
	MarkReadFunc     func(ctx context.Context, actorID, notificationID uuid.UUID) error
}

func (m *mockInviteService) CreateInvite(ctx context.Context, senderID, receiverID uuid.UUID, location models.Location) (*models.Invite, error) {
	if m.CreateInviteFunc != nil {
		return m.CreateInviteFunc(ctx, senderID, receiverID, location)
	}
	return &models.Invite{}, nil
}

func (m *mockInviteService) ListUnread(ctx context.Context, userID uuid.UUID) ([]models.UnreadNotification, error) {
	if m.ListUnreadFunc != nil {
		return m.ListUnreadFunc(ctx, userID)
	}
	return []models.UnreadNotification{}, nil
}

func (m *mockInviteService) MarkRead(ctx context.Context, actorID, notificationID uuid.UUID) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, actorID, notificationID)
	}
	return nil
}

type mockScheduleService struct {
	AddEntryFunc    func(ctx context.Context, ownerID uuid.UUID, params models.CreateScheduleItemParams) (*models.ScheduleItem, error)
	DeleteEntryFunc func(ctx context.Context, ownerID, entryID uuid.UUID) error
	ListEntriesFunc func(ctx context.Context, ownerID uuid.UUID) ([]models.ScheduleItem, error)
	IngestRowsFunc  func(ctx context.Context, ownerID uuid.UUID, rows []models.CreateScheduleItemParams) (*services.IngestResult, error)
}

func (m *mockScheduleService) AddEntry(ctx context.Context, ownerID uuid.UUID, params models.CreateScheduleItemParams) (*models.ScheduleItem, error) {
	if m.AddEntryFunc != nil {
		return m.AddEntryFunc(ctx, ownerID, params)
	}
	return &models.ScheduleItem{}, nil
}

func (m *mockScheduleService) DeleteEntry(ctx context.Context, ownerID, entryID uuid.UUID) error {
	if m.DeleteEntryFunc != nil {
		return m.DeleteEntryFunc(ctx, ownerID, entryID)
	}
	return nil
}

func (m *mockScheduleService) ListEntries(ctx context.Context, ownerID uuid.UUID) ([]models.ScheduleItem, error) {
	if m.ListEntriesFunc != nil {
		return m.ListEntriesFunc(ctx, ownerID)
	}
	return []models.ScheduleItem{}, nil
}

func (m *mockScheduleService) IngestRows(ctx context.Context, ownerID uuid.UUID, rows []models.CreateScheduleItemParams) (*services.IngestResult, error) {
	if m.IngestRowsFunc != nil {
		return m.IngestRowsFunc(ctx, ownerID, rows)
	}
	return &services.IngestResult{}, nil
}

type mockScheduleParser struct {
	ParseFunc func(ctx context.Context, image []byte, mimeType string) ([]ai.ParsedRow, error)
}

func (m *mockScheduleParser) ParseScheduleImage(ctx context.Context, image []byte, mimeType string) ([]ai.ParsedRow, error) {
	if m.ParseFunc != nil {
		return m.ParseFunc(ctx, image, mimeType)
	}
	return []ai.ParsedRow{}, nil
}

// authedRequest builds a request carrying user in its context.
func authedRequest(method, target string, body io.Reader, user *models.User) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(SetUserInContext(req.Context(), user))
}

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()

	if rr.Code != status {
		t.Fatalf("expected status %d, got %d", status, rr.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if resp.Error != message {
		t.Fatalf("expected error %q, got %q", message, resp.Error)
	}
}
