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

type InviteHandler struct {
	inviteService services.InviteServiceInterface
}

func NewInviteHandler(inviteService services.InviteServiceInterface) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

type CreateInviteRequest struct {
	ReceiverID string `json:"receiver_id"`
	Location   string `json:"location"`
}

type MarkReadRequest struct {
	ID string `json:"id"`
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid receiver ID")
		return
	}

	_, err = h.inviteService.CreateInvite(r.Context(), user.ID, receiverID, models.Location(req.Location))
	if errors.Is(err, services.ErrInvalidLocation) {
		writeError(w, http.StatusBadRequest, "Invalid location")
		return
	}
	if errors.Is(err, services.ErrInviteForbidden) {
		writeError(w, http.StatusForbidden, "You can only invite accepted friends")
		return
	}
	if err != nil {
		logging.Error("Failed to create invite", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Invite sent"})
}

type NotificationResponse struct {
	ID             uuid.UUID `json:"id"`
	SenderUsername string    `json:"sender_username"`
	Location       string    `json:"location"`
	Timestamp      string    `json:"timestamp"`
}

func (h *InviteHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	unread, err := h.inviteService.ListUnread(r.Context(), user.ID)
	if err != nil {
		logging.Error("Failed to list notifications", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	result := make([]NotificationResponse, len(unread))
	for i, n := range unread {
		result[i] = NotificationResponse{
			ID:             n.ID,
			SenderUsername: n.SenderUsername,
			Location:       string(n.Location),
			Timestamp:      n.Timestamp.UTC().Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *InviteHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	notificationID, err := uuid.Parse(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	err = h.inviteService.MarkRead(r.Context(), user.ID, notificationID)
	if errors.Is(err, services.ErrNotificationNotFound) {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}
	if errors.Is(err, services.ErrNotNotificationRecipient) {
		writeError(w, http.StatusForbidden, "Only the recipient can mark this read")
		return
	}
	if err != nil {
		logging.Error("Failed to mark notification read", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Marked as read"})
}
