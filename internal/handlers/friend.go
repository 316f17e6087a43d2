package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gelapp/gel/internal/logging"
	"github.com/gelapp/gel/internal/models"
	"github.com/gelapp/gel/internal/services"
)

// FriendHandler exposes the friend graph plus the joined presence view that
// clients poll. Nothing is cached between polls; every call recomputes
// presence and re-reads relationship state.
type FriendHandler struct {
	friendService   services.FriendServiceInterface
	presenceService services.PresenceServiceInterface
}

func NewFriendHandler(friendService services.FriendServiceInterface, presenceService services.PresenceServiceInterface) *FriendHandler {
	return &FriendHandler{
		friendService:   friendService,
		presenceService: presenceService,
	}
}

type FriendRequestRequest struct {
	Username string `json:"username"`
}

type FriendDecisionRequest struct {
	RequestID string `json:"request_id"`
}

type PendingRequestResponse struct {
	ID             uuid.UUID `json:"id"`
	SenderUsername string    `json:"sender_username"`
}

func (h *FriendHandler) Request(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req FriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err := h.friendService.RequestFriend(r.Context(), user.ID, req.Username)
	if errors.Is(err, services.ErrUnknownUser) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if errors.Is(err, services.ErrSelfRequest) {
		writeError(w, http.StatusBadRequest, "Cannot send a friend request to yourself")
		return
	}
	if errors.Is(err, services.ErrAlreadyFriends) {
		writeError(w, http.StatusConflict, "Already friends")
		return
	}
	if errors.Is(err, services.ErrDuplicateRequest) {
		writeError(w, http.StatusConflict, "Friend request already exists")
		return
	}
	if err != nil {
		logging.Error("Failed to send friend request", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Friend request sent"})
}

func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(actor, requestID uuid.UUID) error {
		_, err := h.friendService.AcceptRequest(r.Context(), actor, requestID)
		return err
	}, "Friend request accepted")
}

func (h *FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(actor, requestID uuid.UUID) error {
		return h.friendService.RejectRequest(r.Context(), actor, requestID)
	}, "Friend request rejected")
}

func (h *FriendHandler) decide(w http.ResponseWriter, r *http.Request, op func(actor, requestID uuid.UUID) error, okMessage string) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req FriendDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	err = op(user.ID, requestID)
	if errors.Is(err, services.ErrRequestNotFound) {
		writeError(w, http.StatusNotFound, "Friend request not found")
		return
	}
	if errors.Is(err, services.ErrNotAddressee) {
		writeError(w, http.StatusForbidden, "Only the addressee can decide this request")
		return
	}
	if err != nil {
		logging.Error("Failed to decide friend request", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: okMessage})
}

// Status returns the accepted-friends list joined with live free/busy.
func (h *FriendHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friends, err := h.friendService.ListAccepted(r.Context(), user.ID)
	if err != nil {
		logging.Error("Failed to list friends", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ids := make([]uuid.UUID, len(friends))
	for i, f := range friends {
		ids[i] = f.UserID
	}

	freeStatus, err := h.presenceService.BatchFreeStatus(r.Context(), ids, time.Now())
	if err != nil {
		logging.Error("Failed to evaluate presence", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	result := make([]models.FriendPresence, len(friends))
	for i, f := range friends {
		isFree := freeStatus[f.UserID]
		status := "In Class"
		if isFree {
			status = "Free"
		}
		result[i] = models.FriendPresence{
			UserID:   f.UserID,
			Username: f.Username,
			IsFree:   isFree,
			Status:   status,
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// Requests returns the incoming pending friend requests.
func (h *FriendHandler) Requests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	pending, err := h.friendService.ListPending(r.Context(), user.ID)
	if err != nil {
		logging.Error("Failed to list pending requests", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	result := make([]PendingRequestResponse, len(pending))
	for i, p := range pending {
		result[i] = PendingRequestResponse{ID: p.ID, SenderUsername: p.SenderUsername}
	}

	writeJSON(w, http.StatusOK, result)
}
