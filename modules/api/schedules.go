package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/publora/publora/modules/publish"
)

// ScheduleService exposes schedule creation and cancellation.
type ScheduleService struct {
	store publish.ScheduleStore
	log   *slog.Logger
}

// NewScheduleService creates the service.
func NewScheduleService(store publish.ScheduleStore, logger *slog.Logger) (*ScheduleService, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleService{store: store, log: logger}, nil
}

type createScheduleRequest struct {
	ContentItemID  string `json:"content_item_id"`
	Platform       string `json:"platform"`
	ScheduledAt    string `json:"scheduled_at"`
	OrganizationID string `json:"organization_id"`
}

func (s *ScheduleService) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contentItemID, err := uuid.Parse(req.ContentItemID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "content_item_id must be a uuid")
		return
	}
	organizationID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "organization_id must be a uuid")
		return
	}
	platform := publish.Platform(req.Platform)
	if !platform.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "unsupported platform")
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "scheduled_at must be RFC3339")
		return
	}

	schedule := &publish.Schedule{
		ID:             uuid.New(),
		ContentItemID:  contentItemID,
		Platform:       platform,
		ScheduledAt:    scheduledAt,
		OrganizationID: organizationID,
		Status:         publish.StatusPending,
	}

	if err := s.store.CreateSchedule(r.Context(), schedule); err != nil {
		s.log.ErrorContext(r.Context(), "failed to create schedule",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create schedule")
		return
	}

	writeJSON(w, http.StatusCreated, schedule)
}

func (s *ScheduleService) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "schedule id must be a uuid")
		return
	}

	switch err := s.store.CancelSchedule(r.Context(), id); {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, publish.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, "schedule not found")
	case errors.Is(err, publish.ErrScheduleNotPending):
		writeError(w, http.StatusConflict, "schedule already reached a terminal state")
	default:
		s.log.ErrorContext(r.Context(), "failed to cancel schedule",
			slog.String("schedule_id", id.String()),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to cancel schedule")
	}
}

func (s *ScheduleService) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "schedule id must be a uuid")
		return
	}

	schedule, err := s.store.GetSchedule(r.Context(), id)
	if err != nil {
		if errors.Is(err, publish.ErrScheduleNotFound) {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}

	writeJSON(w, http.StatusOK, schedule)
}
