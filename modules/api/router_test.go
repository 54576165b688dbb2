package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/publora/publora/modules/api"
	"github.com/publora/publora/modules/publish"
	"github.com/publora/publora/pkg/idempotency"
	"github.com/publora/publora/pkg/queue"
	"github.com/publora/publora/pkg/ratelimit"
)

type fixture struct {
	handler   http.Handler
	schedules *publish.MemoryStore
	users     *api.MemoryUserStore
	jobs      *queue.MemoryStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	schedules := publish.NewMemoryStore()
	users := api.NewMemoryUserStore()

	jobs := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = jobs.Close() })

	guardStore := ratelimit.NewMemoryStore()
	t.Cleanup(func() { _ = guardStore.Close() })
	guard, err := ratelimit.NewGuard(guardStore, ratelimit.DefaultConfig())
	require.NoError(t, err)

	idemStore := idempotency.NewMemoryStore()
	t.Cleanup(func() { _ = idemStore.Close() })

	scheduleSvc, err := api.NewScheduleService(schedules, nil)
	require.NoError(t, err)
	authSvc, err := api.NewAuthService(users, guard, nil)
	require.NoError(t, err)
	dlqSvc, err := api.NewDLQService(jobs, nil)
	require.NoError(t, err)

	router := api.Router(api.RouterOptions{
		Schedules:        scheduleSvc,
		Auth:             authSvc,
		IdempotencyStore: idemStore,
		LoginGuard:       guard,
		DeadLetters:      dlqSvc,
		Healthchecks: []func(context.Context) error{
			func(context.Context) error { return nil },
		},
	})

	return &fixture{handler: router, schedules: schedules, users: users, jobs: jobs}
}

func (f *fixture) post(t *testing.T, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.RemoteAddr = "203.0.113.7:4567"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func validScheduleBody() map[string]string {
	return map[string]string{
		"content_item_id": uuid.NewString(),
		"platform":        "telegram",
		"scheduled_at":    time.Now().Add(time.Hour).Format(time.RFC3339),
		"organization_id": uuid.NewString(),
	}
}

func TestCreateSchedule(t *testing.T) {
	t.Parallel()

	t.Run("creates pending schedule", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		rec := f.post(t, "/schedules", validScheduleBody(), nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created publish.Schedule
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, publish.StatusPending, created.Status)

		stored, err := f.schedules.GetSchedule(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, publish.PlatformTelegram, stored.Platform)
	})

	t.Run("rejects unknown platform", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		body := validScheduleBody()
		body["platform"] = "myspace"
		rec := f.post(t, "/schedules", body, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("idempotency key replays without duplicating", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		body := validScheduleBody()
		headers := map[string]string{idempotency.HeaderKey: "create-1"}

		first := f.post(t, "/schedules", body, headers)
		require.Equal(t, http.StatusCreated, first.Code)

		second := f.post(t, "/schedules", body, headers)
		require.Equal(t, http.StatusCreated, second.Code)
		assert.Equal(t, "true", second.Header().Get(idempotency.HeaderReplay))
		assert.Equal(t, first.Body.String(), second.Body.String())

		// Only one schedule was actually created.
		var created publish.Schedule
		require.NoError(t, json.Unmarshal(first.Body.Bytes(), &created))
		due, err := f.schedules.ListDue(context.Background(), time.Now().Add(2*time.Hour), 10)
		require.NoError(t, err)
		assert.Len(t, due, 1)
	})
}

func TestCancelSchedule(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	schedule := &publish.Schedule{
		ID:             uuid.New(),
		ContentItemID:  uuid.New(),
		Platform:       publish.PlatformNewsletter,
		ScheduledAt:    time.Now().Add(time.Hour),
		OrganizationID: uuid.New(),
		Status:         publish.StatusPending,
	}
	require.NoError(t, f.schedules.CreateSchedule(context.Background(), schedule))

	rec := f.post(t, fmt.Sprintf("/schedules/%s/cancel", schedule.ID), nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Idempotent.
	rec = f.post(t, fmt.Sprintf("/schedules/%s/cancel", schedule.ID), nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.post(t, fmt.Sprintf("/schedules/%s/cancel", uuid.New()), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	published := &publish.Schedule{
		ID:            uuid.New(),
		ContentItemID: uuid.New(),
		Platform:      publish.PlatformNewsletter,
		ScheduledAt:   time.Now(),
		Status:        publish.StatusPending,
	}
	require.NoError(t, f.schedules.CreateSchedule(context.Background(), published))
	require.NoError(t, f.schedules.RecordOutcome(context.Background(), published.ID, publish.Outcome{Success: true}))

	rec = f.post(t, fmt.Sprintf("/schedules/%s/cancel", published.ID), nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func seedUser(t *testing.T, f *fixture, email, password string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	f.users.PutUser(&api.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials succeed", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		seedUser(t, f, "owner@example.com", "hunter2hunter2")

		rec := f.post(t, "/auth/login", map[string]string{
			"email": "owner@example.com", "password": "hunter2hunter2",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("wrong password and unknown user are indistinguishable", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		seedUser(t, f, "owner@example.com", "hunter2hunter2")

		wrongPassword := f.post(t, "/auth/login", map[string]string{
			"email": "owner@example.com", "password": "nope",
		}, nil)
		unknownUser := f.post(t, "/auth/login", map[string]string{
			"email": "ghost@example.com", "password": "nope",
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
		assert.JSONEq(t, wrongPassword.Body.String(), unknownUser.Body.String())
	})

	t.Run("sixth attempt locks out with retry-after", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		seedUser(t, f, "owner@example.com", "hunter2hunter2")

		body := map[string]string{"email": "owner@example.com", "password": "wrong"}
		for i := 0; i < 5; i++ {
			rec := f.post(t, "/auth/login", body, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
		}

		rec := f.post(t, "/auth/login", body, nil)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))

		// Correct credentials are rejected too while locked out.
		rec = f.post(t, "/auth/login", map[string]string{
			"email": "owner@example.com", "password": "hunter2hunter2",
		}, nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("successful login resets the budget", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		seedUser(t, f, "owner@example.com", "hunter2hunter2")

		wrong := map[string]string{"email": "owner@example.com", "password": "wrong"}
		for i := 0; i < 3; i++ {
			f.post(t, "/auth/login", wrong, nil)
		}

		ok := f.post(t, "/auth/login", map[string]string{
			"email": "owner@example.com", "password": "hunter2hunter2",
		}, nil)
		require.Equal(t, http.StatusOK, ok.Code)

		// The window starts fresh afterwards.
		for i := 0; i < 5; i++ {
			rec := f.post(t, "/auth/login", wrong, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d after reset", i+1)
		}
	})
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	t.Run("ok when checks pass", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("503 when a check fails", func(t *testing.T) {
		t.Parallel()

		scheduleSvc, err := api.NewScheduleService(publish.NewMemoryStore(), nil)
		require.NoError(t, err)
		authSvc, err := api.NewAuthService(api.NewMemoryUserStore(), nil, nil)
		require.NoError(t, err)

		router := api.Router(api.RouterOptions{
			Schedules: scheduleSvc,
			Auth:      authSvc,
			Healthchecks: []func(context.Context) error{
				func(context.Context) error { return errors.New("postgres unreachable") },
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestDeadLetterListing(t *testing.T) {
	t.Parallel()

	seedDeadLetter := func(t *testing.T, f *fixture, jobID string) {
		t.Helper()
		ctx := context.Background()
		require.NoError(t, f.jobs.CreateJob(ctx, &queue.Job{
			ID:          jobID,
			Name:        publish.JobName,
			Payload:     []byte(`{}`),
			Status:      queue.StatusPending,
			MaxAttempts: 5,
			ScheduledAt: time.Now().Add(-time.Minute),
			CreatedAt:   time.Now().Add(-time.Minute),
		}))
		_, err := f.jobs.ClaimJob(ctx, uuid.New(), time.Minute)
		require.NoError(t, err)
		require.NoError(t, f.jobs.MoveToDLQ(ctx, jobID, "provider rejected"))
	}

	t.Run("lists dead lettered jobs", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		jobID := publish.JobID(uuid.New(), publish.PlatformTelegram)
		seedDeadLetter(t, f, jobID)

		req := httptest.NewRequest(http.MethodGet, "/dlq", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			DeadLetters []struct {
				JobID string `json:"job_id"`
				Error string `json:"error"`
			} `json:"dead_letters"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.DeadLetters, 1)
		assert.Equal(t, jobID, resp.DeadLetters[0].JobID)
		assert.Equal(t, "provider rejected", resp.DeadLetters[0].Error)
	})

	t.Run("empty store returns empty list", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/dlq", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"dead_letters":[]}`, rec.Body.String())
	})

	t.Run("rejects invalid limit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/dlq?limit=zero", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
