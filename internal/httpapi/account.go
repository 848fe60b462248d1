package httpapi

import (
	"errors"
	"net/http"

	"github.com/amezzi/chatterbox/internal/auth"
	"github.com/amezzi/chatterbox/internal/store"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  store.User `json:"user"`
}

type profileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	u, err := s.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUser):
			respondError(w, http.StatusConflict, "user_exists", "Username already exists. Please choose another one.")
		case errors.Is(err, auth.ErrWeakPassword),
			errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrMissingFields):
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "registration_failed", "Registration failed.")
		}
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	u, token, err := s.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password.")
			return
		}
		respondError(w, http.StatusInternalServerError, "login_failed", "An error occurred during login. Please try again later.")
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token, User: u})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	err := s.authService.UpdateProfile(r.Context(), userIDFrom(r), req.Username, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUser):
			respondError(w, http.StatusConflict, "user_exists", "Username or email already taken.")
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrMissingFields):
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, store.ErrNotFound):
			respondError(w, http.StatusNotFound, "user_not_found", "user not found")
		default:
			respondError(w, http.StatusInternalServerError, "profile_update_failed", "Profile update failed.")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}
