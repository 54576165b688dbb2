package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/publora/publora/pkg/clientip"
	"github.com/publora/publora/pkg/ratelimit"
)

// AuthService authenticates users behind the lockout guard. The guard
// keys on the credential identifier; the router additionally guards the
// endpoint per client IP.
type AuthService struct {
	users UserStore
	guard *ratelimit.Guard
	log   *slog.Logger
}

// NewAuthService creates the service. guard may be nil to disable the
// per-identifier budget.
func NewAuthService(users UserStore, guard *ratelimit.Guard, logger *slog.Logger) (*AuthService, error) {
	if users == nil {
		return nil, ErrStoreNil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, guard: guard, log: logger}, nil
}

// Authenticate verifies the credentials. Any failure surfaces as
// ErrInvalidCredentials so responses cannot be used to enumerate users.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (s *AuthService) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	identKey := ratelimit.IdentifierKey(req.Email)
	if !s.allowIdentifier(w, r, identKey) {
		return
	}

	user, err := s.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// Earlier failures stop counting against the account once the owner
	// signs in.
	if s.guard != nil {
		if err := s.guard.Reset(r.Context(), identKey); err != nil {
			s.log.Warn("failed to reset login budget",
				slog.String("error", err.Error()))
		}
		if ip := clientip.GetIP(r); ip != "" {
			if err := s.guard.Reset(r.Context(), ip); err != nil {
				s.log.Warn("failed to reset login budget",
					slog.String("error", err.Error()))
			}
		}
	}

	writeJSON(w, http.StatusOK, loginResponse{UserID: user.ID.String(), Email: user.Email})
}

// allowIdentifier applies the per-identifier budget. Guard errors fail
// open; a locked identifier gets 429 with the remaining lockout.
func (s *AuthService) allowIdentifier(w http.ResponseWriter, r *http.Request, key string) bool {
	if s.guard == nil {
		return true
	}

	result, err := s.guard.Allow(r.Context(), key)
	if err != nil {
		s.log.Warn("login guard unavailable, failing open",
			slog.String("error", err.Error()))
		return true
	}
	if result.Allowed {
		return true
	}

	retryAfter := result.RetryAfter().Seconds()
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)))
	writeError(w, http.StatusTooManyRequests, "too many login attempts")
	return false
}
