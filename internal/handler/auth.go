package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/snipvault/snipvault/internal/auth"
	"github.com/snipvault/snipvault/internal/handler/dto"
	"github.com/snipvault/snipvault/internal/model"
)

// Credentials registers and verifies accounts.
type Credentials interface {
	Register(ctx context.Context, email, rawPassword, name string) (*model.User, error)
	VerifyCredentials(ctx context.Context, email, rawPassword string) (*model.User, error)
}

// SessionIssuer mints session tokens.
type SessionIssuer interface {
	Issue(userID string, ttl time.Duration) (string, time.Time, error)
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// AuthHandler handles account and session endpoints.
type AuthHandler struct {
	creds  Credentials
	tokens SessionIssuer
	cookie CookieConfig
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(creds Credentials, tokens SessionIssuer, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "auth-token"
	}
	if cookie.TTL <= 0 {
		cookie.TTL = auth.DefaultSessionTTL
	}
	return &AuthHandler{creds: creds, tokens: tokens, cookie: cookie, logger: logger}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	user, err := h.creds.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user_registered", "user_id", user.ID)
	h.startSession(w, r, http.StatusCreated, user)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	user, err := h.creds.VerifyCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.startSession(w, r, http.StatusOK, user)
}

// Logout handles POST /api/auth/logout. Tokens are not revoked server-side;
// the cookie is cleared and the client drops its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.UserResponse{User: auth.MustUserFromContext(r.Context())})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	token, expiresAt, err := h.tokens.Issue(user.ID, h.cookie.TTL)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookie.TTL.Seconds()),
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, status, dto.SessionResponse{
		User:      user.Public(),
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
