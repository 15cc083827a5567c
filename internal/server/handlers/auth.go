package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/adsmirror/adsmirror/internal/core"
	"github.com/adsmirror/adsmirror/internal/core/auth"
)

// Authenticator registers users and issues tokens.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (*core.User, error)
	Login(ctx context.Context, email, password string) (*core.User, auth.Token, error)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string     `json:"message"`
	User    *core.User `json:"user"`
}

type loginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   string     `json:"expires_at"`
	User        *core.User `json:"user"`
}

// AuthHandlers serves /api/register and /api/login.
type AuthHandlers struct {
	Auth Authenticator
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		respondWithError(w, r, err)
		return
	}

	user, err := h.Auth.Register(r.Context(), in.Email, in.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{Message: "User registered successfully", User: user})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		respondWithError(w, r, err)
		return
	}

	user, token, err := h.Auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   token.ExpiresAt.UTC().Format(time.RFC3339),
		User:        user,
	})
}
