package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/publora/publora/pkg/queue"
)

const (
	defaultDLQLimit = 50
	maxDLQLimit     = 500
)

// DLQService exposes dead-lettered jobs for manual triage.
type DLQService struct {
	repo queue.DLQRepository
	log  *slog.Logger
}

// NewDLQService creates the service.
func NewDLQService(repo queue.DLQRepository, logger *slog.Logger) (*DLQService, error) {
	if repo == nil {
		return nil, ErrStoreNil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DLQService{repo: repo, log: logger}, nil
}

type dlqListResponse struct {
	DeadLetters []*queue.DeadLetter `json:"dead_letters"`
}

func (s *DLQService) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultDLQLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxDLQLimit)
	}

	entries, err := s.repo.ListDeadLetters(r.Context(), limit)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to list dead letters", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list dead letters")
		return
	}
	if entries == nil {
		entries = []*queue.DeadLetter{}
	}

	writeJSON(w, http.StatusOK, dlqListResponse{DeadLetters: entries})
}
