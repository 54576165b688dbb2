package publish

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory ScheduleStore and ContentStore for tests
// and single-process setups.
type MemoryStore struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]*Schedule
	content   map[uuid.UUID]*ContentItem
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schedules: make(map[uuid.UUID]*Schedule),
		content:   make(map[uuid.UUID]*ContentItem),
	}
}

func (s *MemoryStore) CreateSchedule(ctx context.Context, schedule *Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	clone := *schedule
	if clone.Status == "" {
		clone.Status = StatusPending
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now
	s.schedules[clone.ID] = &clone
	return nil
}

func (s *MemoryStore) GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, exists := s.schedules[id]
	if !exists {
		return nil, ErrScheduleNotFound
	}
	clone := *schedule
	return &clone, nil
}

func (s *MemoryStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*Schedule, 0)
	for _, schedule := range s.schedules {
		if schedule.Status == StatusPending && !schedule.ScheduledAt.After(now) {
			clone := *schedule
			due = append(due, &clone)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) MarkQueued(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, exists := s.schedules[id]
	if !exists {
		return ErrScheduleNotFound
	}
	if schedule.Status != StatusPending {
		return nil
	}
	schedule.Status = StatusQueued
	schedule.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CancelSchedule(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, exists := s.schedules[id]
	if !exists {
		return ErrScheduleNotFound
	}
	switch schedule.Status {
	case StatusCancelled:
		return nil
	case StatusPending, StatusQueued:
		schedule.Status = StatusCancelled
		schedule.UpdatedAt = time.Now()
		return nil
	default:
		return ErrScheduleNotPending
	}
}

func (s *MemoryStore) RecordOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, exists := s.schedules[id]
	if !exists {
		return ErrScheduleNotFound
	}

	if outcome.Success {
		schedule.Status = StatusPublished
		if outcome.ProviderID != "" {
			providerID := outcome.ProviderID
			schedule.ProviderID = &providerID
		}
		schedule.LastError = nil
	} else {
		schedule.Status = StatusFailed
		if outcome.Error != "" {
			lastError := outcome.Error
			schedule.LastError = &lastError
		}
	}
	schedule.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) GetContentItem(ctx context.Context, id uuid.UUID) (*ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.content[id]
	if !exists {
		return nil, ErrContentNotFound
	}
	clone := *item
	return &clone, nil
}

// PutContentItem stores a content item. Used by tests and seeds.
func (s *MemoryStore) PutContentItem(item *ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *item
	s.content[clone.ID] = &clone
}
