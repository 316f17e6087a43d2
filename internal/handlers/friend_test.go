package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gelapp/gel/internal/models"
	"github.com/gelapp/gel/internal/services"
)

func TestFriendHandler_Request_Unauthenticated(t *testing.T) {
	handler := NewFriendHandler(&mockFriendService{}, &mockPresenceService{})

	req := httptest.NewRequest(http.MethodPost, "/friends/request", bytes.NewBufferString(`{"username":"alice"}`))
	rr := httptest.NewRecorder()
	handler.Request(rr, req)
	assertErrorResponse(t, rr, http.StatusUnauthorized, "Authentication required")
}

func TestFriendHandler_Request_InvalidBody(t *testing.T) {
	handler := NewFriendHandler(&mockFriendService{RequestFriendFunc: func(ctx context.Context, requesterID uuid.UUID, targetUsername string) (*models.Friendship, error) {
		t.Fatal("RequestFriend should not be called for invalid body")
		return nil, nil
	}}, &mockPresenceService{})

	req := authedRequest(http.MethodPost, "/friends/request", bytes.NewBufferString("{"), &models.User{ID: uuid.New()})
	rr := httptest.NewRecorder()
	handler.Request(rr, req)
	assertErrorResponse(t, rr, http.StatusBadRequest, "Invalid request body")
}

func TestFriendHandler_Request_UnknownUser(t *testing.T) {
	handler := NewFriendHandler(&mockFriendService{RequestFriendFunc: func(ctx context.Context, requesterID uuid.UUID, targetUsername string) (*models.Friendship, error) {
		return nil, services.ErrUnknownUser
	}}, &mockPresenceService{})

	req := authedRequest(http.MethodPost, "/friends/request", bytes.NewBufferString(`{"username":"nobody"}`), &models.User{ID: uuid.New()})
	rr := httptest.NewRecorder()
	handler.Request(rr, req)
	assertErrorResponse(t, rr, http.StatusNotFound, "User not found")
}

func TestFriendHandler_Request_Self(t *testing.T) {
	handler := NewFriendHandler(&mockFriendService{RequestFriendFunc: func(ctx context.Context, requesterID uuid.UUID, targetUsername string) (*models.Friendship, error) {
		return nil, services.ErrSelfRequest
	}}, &mockPresenceService{})

	req := authedRequest(http.MethodPost, "/friends/request", bytes.NewBufferString(`{"username":"me"}`), &models.User{ID: uuid.New()})
	rr := httptest.NewRecorder()
	handler.Request(rr, req)
	assertErrorResponse(t, rr, http.StatusBadRequest, "Cannot send a friend request to yourself")
}

func TestFriendHandler_Request_Conflicts(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"already friends", services.ErrAlreadyFriends, "Already friends"},
		{"duplicate pending", services.ErrDuplicateRequest, "Friend request already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewFriendHandler(&mockFriendService{RequestFriendFunc: func(ctx context.Context, requesterID uuid.UUID, targetUsername string) (*models.Friendship, error) {
				return nil, tt.err
			}}, &mockPresenceService{})

			req := authedRequest(http.MethodPost, "/friends/request", bytes.NewBufferString(`{"username":"alice"}`), &models.User{ID: uuid.New()})
			rr := httptest.NewRecorder()
			handler.Request(rr, req)
			assertErrorResponse(t, rr, http.StatusConflict, tt.message)
		})
	}
}

func TestFriendHandler_Request_Success(t *testing.T) {
	handler := NewFriendHandler(&mockFriendService{}, &mockPresenceService{})

	req := authedRequest(http.MethodPost, "/friends/request", bytes.NewBufferString(`{"username":"alice"}`), &models.User{ID: uuid.New()})
	rr := httptest.NewRecorder()
	handler.Request(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestFriendHandler_Accept_InvalidRequestID(t *testing.T) {
	handler := NewFriendHandler(&mockFriendService{AcceptRequestFunc: func(ctx context.Context, actorID, friendshipID uuid.UUID) (*models.Friendship, error) {
		t.Fatal("AcceptRequest should not be called for invalid id")
		return nil, nil
	}}, &mockPresenceService{})

	req := authedRequest(http.MethodPost, "/friends/accept", bytes.NewBufferString(`{"request_id":"not-a-uuid"}`), &models.User{ID: uuid.New()})
	rr := httptest.NewRecorder()
	handler.Accept(rr, req)
	assertErrorResponse(t, rr, http.StatusBadRequest, "Invalid request ID")
}

func TestFriendHandler_Accept_NotFound(t *testing.T) {
	handler := NewFriendHandler(&mockFriendService{AcceptRequestFunc: func(ctx context.Context, actorID, friendshipID uuid.UUID) (*models.Friendship, error) {
		return nil, services.ErrRequestNotFound
	}}, &mockPresenceService{})

	payload := `{"request_id":"` + uuid.NewString() + `"}`
	req := authedRequest(http.MethodPost, "/friends/accept", bytes.NewBufferString(payload), &models.User{ID: uuid.New()})
	rr := httptest.NewRecorder()
	handler.Accept(rr, req)
	assertErrorResponse(t, rr, http.StatusNotFound, "Friend request not found")
}

func TestFriendHandler_Accept_NotAddressee(t *testing.T) {
	handler := NewFriendHandler(&mockFriendService{AcceptRequestFunc: func(ctx context.Context, actorID, friendshipID uuid.UUID) (*models.Friendship, error) {
		return nil, services.ErrNotAddressee
	}}, &mockPresenceService{})

	payload := `{"request_id":"` + uuid.NewString() + `"}`
	req := authedRequest(http.MethodPost, "/friends/accept", bytes.NewBufferString(payload), &models.User{ID: uuid.New()})
	rr := httptest.NewRecorder()
	handler.Accept(rr, req)
	assertErrorResponse(t, rr, http.StatusForbidden, "Only the addressee can decide this request")
}

func TestFriendHandler_Reject_Success(t *testing.T) {
	rejected := false
	handler := NewFriendHandler(&mockFriendService{RejectRequestFunc: func(ctx context.Context, actorID, friendshipID uuid.UUID) error {
		rejected = true
		return nil
	}}, &mockPresenceService{})

	payload := `{"request_id":"` + uuid.NewString() + `"}`
	req := authedRequest(http.MethodPost, "/friends/reject", bytes.NewBufferString(payload), &models.User{ID: uuid.New()})
	rr := httptest.NewRecorder()
	handler.Reject(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !rejected {
		t.Fatal("expected RejectRequest to be called")
	}
}

func TestFriendHandler_Status_JoinsPresence(t *testing.T) {
	freeFriend := uuid.New()
	busyFriend := uuid.New()
	handler := NewFriendHandler(&mockFriendService{ListAcceptedFunc: func(ctx context.Context, userID uuid.UUID) ([]models.Friend, error) {
		return []models.Friend{
			{FriendshipID: uuid.New(), UserID: freeFriend, Username: "alice"},
			{FriendshipID: uuid.New(), UserID: busyFriend, Username: "bob"},
		}, nil
	}}, &mockPresenceService{BatchFreeStatusFunc: func(ctx context.Context, userIDs []uuid.UUID, now time.Time) (map[uuid.UUID]bool, error) {
		return map[uuid.UUID]bool{freeFriend: true, busyFriend: false}, nil
	}})

	req := authedRequest(http.MethodGet, "/friends/status", nil, &models.User{ID: uuid.New()})
	rr := httptest.NewRecorder()
	handler.Status(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var result []models.FriendPresence
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 friends, got %d", len(result))
	}
	if !result[0].IsFree || result[0].Status != "Free" {
		t.Fatalf("expected alice free, got %+v", result[0])
	}
	if result[1].IsFree || result[1].Status != "In Class" {
		t.Fatalf("expected bob in class, got %+v", result[1])
	}
}

func TestFriendHandler_Status_EmptyFriendList(t *testing.T) {
	handler := NewFriendHandler(&mockFriendService{}, &mockPresenceService{})

	req := authedRequest(http.MethodGet, "/friends/status", nil, &models.User{ID: uuid.New()})
	rr := httptest.NewRecorder()
	handler.Status(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty JSON array, got %q", body)
	}
}

func TestFriendHandler_Requests_ReturnsPending(t *testing.T) {
	requestID := uuid.New()
	handler := NewFriendHandler(&mockFriendService{ListPendingFunc: func(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
		return []models.FriendRequest{
			{Friendship: models.Friendship{ID: requestID}, SenderUsername: "alice"},
		}, nil
	}}, &mockPresenceService{})

	req := authedRequest(http.MethodGet, "/friends/requests", nil, &models.User{ID: uuid.New()})
	rr := httptest.NewRecorder()
	handler.Requests(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var result []PendingRequestResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(result) != 1 || result[0].ID != requestID || result[0].SenderUsername != "alice" {
		t.Fatalf("unexpected result: %+v", result)
	}
}
