package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/gelapp/gel/internal/logging"
	"github.com/gelapp/gel/internal/models"
	"github.com/gelapp/gel/internal/services"
	"github.com/gelapp/gel/internal/services/ai"
)

// Uploaded screenshots are read fully into memory; anything past this is not
// a schedule image.
const maxUploadBytes = 8 << 20

// ScheduleParser is the image-parsing collaborator boundary.
type ScheduleParser interface {
	ParseScheduleImage(ctx context.Context, image []byte, mimeType string) ([]ai.ParsedRow, error)
}

type ScheduleHandler struct {
	scheduleService services.ScheduleServiceInterface
	friendService   services.FriendServiceInterface
	parser          ScheduleParser
}

func NewScheduleHandler(scheduleService services.ScheduleServiceInterface, friendService services.FriendServiceInterface, parser ScheduleParser) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
		friendService:   friendService,
		parser:          parser,
	}
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	items, err := h.scheduleService.ListEntries(r.Context(), user.ID)
	if err != nil {
		logging.Error("Failed to list schedule", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params models.CreateScheduleItemParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.scheduleService.AddEntry(r.Context(), user.ID, params)
	if errors.Is(err, services.ErrInvalidScheduleEntry) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logging.Error("Failed to add schedule entry", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	entryID, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry ID")
		return
	}

	err = h.scheduleService.DeleteEntry(r.Context(), user.ID, entryID)
	if errors.Is(err, services.ErrEntryNotFound) {
		writeError(w, http.StatusNotFound, "Schedule entry not found")
		return
	}
	if err != nil {
		logging.Error("Failed to delete schedule entry", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Deleted"})
}

// Upload accepts a multipart schedule screenshot, parses it through the AI
// collaborator and ingests the rows one by one. Bad rows are reported back;
// good rows commit regardless.
func (h *ScheduleHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read file")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, "Empty file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/png"
	}

	rows, err := h.parser.ParseScheduleImage(r.Context(), image, mimeType)
	if errors.Is(err, ai.ErrUnparsableSchedule) {
		writeError(w, http.StatusUnprocessableEntity, "Could not extract a schedule from the image")
		return
	}
	if errors.Is(err, ai.ErrRateLimitExceeded) {
		writeError(w, http.StatusTooManyRequests, "Too many uploads; try again later")
		return
	}
	if err != nil {
		logging.Error("Schedule parsing failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusServiceUnavailable, "Schedule parsing is unavailable")
		return
	}

	params := make([]models.CreateScheduleItemParams, len(rows))
	for i, row := range rows {
		params[i] = models.CreateScheduleItemParams{
			DayOfWeek:  row.Day,
			StartTime:  row.StartTime,
			EndTime:    row.EndTime,
			CourseName: row.CourseName,
		}
	}

	result, err := h.scheduleService.IngestRows(r.Context(), user.ID, params)
	if err != nil {
		logging.Error("Failed to ingest parsed schedule", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// FriendSchedule returns a friend's entries. Accepted friends only.
func (h *ScheduleHandler) FriendSchedule(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friendID, err := uuid.Parse(r.PathValue("friendId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friend ID")
		return
	}

	isFriend, err := h.friendService.IsFriend(r.Context(), user.ID, friendID)
	if err != nil {
		logging.Error("Failed to check friendship", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !isFriend {
		writeError(w, http.StatusForbidden, "You are not friends with this user")
		return
	}

	items, err := h.scheduleService.ListEntries(r.Context(), friendID)
	if err != nil {
		logging.Error("Failed to list friend schedule", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, items)
}
