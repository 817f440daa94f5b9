package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"era-vendors-api/internal/auth"
	"era-vendors-api/internal/models"
	"era-vendors-api/internal/store"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// validationMessage turns validator errors into a short client message
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}
	e := verrs[0]
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return e.Field() + " must be a valid email address"
	default:
		return e.Field() + " is invalid"
	}
}

// loginUser handles user authentication
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	user, err := s.Users.FindUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrUserNotFound) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.Logger.Error("find user", zap.Error(err))
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := s.Users.RecordLogin(r.Context(), user.ID); err != nil {
		s.Logger.Warn("record login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	token, err := s.JWTManager.GenerateToken(user.ID, user.GetDisplayName(), user.Roles)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token: token,
		User:  user.Redacted(),
	})
}

// profileResponse is the identity carried by the caller's token
type profileResponse struct {
	UserID    int64      `json:"user_id"`
	Name      string     `json:"name"`
	Roles     []string   `json:"roles"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// getUserProfile returns who the API will record as the actor of changes
func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	resp := profileResponse{
		UserID: claims.UserID,
		Name:   actor(r),
		Roles:  claims.Roles,
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		resp.ExpiresAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}
