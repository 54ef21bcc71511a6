package upstream

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"vogue/db"
	"vogue/models"
	"vogue/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Login checks email and password and answers with a bearer token.
func (s *Server) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var input models.Credentials
	if err := utils.DecodeJSON(w, r, &input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := s.Repo.UserByEmail(ctx, input.Email)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		s.Log.Error("login lookup", zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	now := s.Now()
	token, err := s.JWT.Issue(user.UserID, user.Email, now)
	if err != nil {
		s.Log.Error("issue token", zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	if err := s.Repo.TouchLogin(ctx, user.UserID, now.UTC()); err != nil {
		s.Log.Warn("last login not recorded", zap.String("user_id", user.UserID), zap.Error(err))
	}
	user.LastLogin = now.UTC()

	s.Log.Info("user logged in", zap.String("user_id", user.UserID))
	utils.RespondWithJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: user})
}

// Logout acknowledges a sign-out; tokens are stateless and simply dropped by
// the client.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.Log.Info("user logged out", zap.String("user_id", utils.GetUserIDFromRequest(r)))
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
}

// AuthCheck returns the signed-in user.
func (s *Server) AuthCheck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := s.Repo.UserByID(ctx, utils.GetUserIDFromRequest(r))
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.Log.Error("auth check", zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

// StoreEvent is the mq worker's handler: it writes events to the repository.
func (s *Server) StoreEvent(ctx context.Context, ev models.AnalyticsEvent) error {
	return s.Repo.RecordEvent(ctx, ev)
}
