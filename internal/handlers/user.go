package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/DOYOUNG-0314/kissingyou/internal/auth"
	"github.com/DOYOUNG-0314/kissingyou/internal/database"
	"github.com/DOYOUNG-0314/kissingyou/internal/models"
)

// EnsureEphemeralUser returns the caller's account. A caller without a valid token
// gets a new guest account and a cookie for it, so anyone with an invite link can play.
// It must run before the response is written.
func (gs *GameServer) EnsureEphemeralUser(w http.ResponseWriter, r *http.Request) (*models.User, error) {
	if token, err := auth.TokenFromRequest(r); err == nil {
		userID, authErr := auth.AuthenticateJWT(token)
		if authErr == nil {
			user, lookupErr := gs.Users.GetUserByID(r.Context(), userID)
			if lookupErr == nil {
				return user, nil
			}
			gs.Logger.WithField("user", userID).Warnf("token for unknown user: %v", lookupErr)
		} else {
			gs.Logger.Debugf("discarding bad token: %v", authErr)
		}
	}

	guest := &models.User{
		Username:    guestName(r),
		IsEphemeral: true,
	}
	if err := gs.Users.CreateUser(r.Context(), guest); err != nil {
		return nil, fmt.Errorf("failed to create ephemeral user: %w", err)
	}
	token, err := auth.CreateJWT(guest.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create ephemeral JWT: %w", err)
	}
	auth.SetCookie(w, token)
	return guest, nil
}

// guestName uses ?name= when given, otherwise "Guest".
func guestName(r *http.Request) string {
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		if len([]rune(name)) > 24 {
			name = string([]rune(name)[:24])
		}
		return name
	}
	return "Guest"
}

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// CreateUserHandler registers a full account.
func CreateUserHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if req.Email == "" || req.Password == "" || req.Username == "" {
			http.Error(w, "email, password and username are required", http.StatusBadRequest)
			return
		}

		user := models.User{
			Email:     req.Email,
			Password:  req.Password,
			Username:  req.Username,
			AvatarURL: req.AvatarURL,
		}
		if err := gs.Users.CreateUser(r.Context(), &user); err != nil {
			if errors.Is(err, database.ErrEmailTaken) {
				http.Error(w, "email already exists", http.StatusConflict)
				return
			}
			gs.Logger.Errorf("error creating user: %v", err)
			http.Error(w, "error creating user", http.StatusInternalServerError)
			return
		}
		user.Password = ""
		writeJSON(w, http.StatusCreated, user)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// LoginHandler checks credentials and returns a token, also set as a cookie.
//
// Request payload:
//
//	{
//	  "email": "someone@example.com",
//	  "password": "password"
//	}
func LoginHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request payload", http.StatusBadRequest)
			return
		}

		user, err := gs.Users.AuthenticateUser(r.Context(), req.Email, req.Password)
		if err != nil {
			gs.Logger.Infof("failed to authenticate user: %v", err)
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}
		token, err := auth.CreateJWT(user.ID)
		if err != nil {
			http.Error(w, "failed to create token", http.StatusInternalServerError)
			return
		}

		auth.SetCookie(w, token)
		user.Password = ""
		writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
	}
}

// ClaimGuestHandler upgrades the caller's guest account to a full one.
func ClaimGuestHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromRequest(r)
		if err != nil {
			http.Error(w, "missing auth token", http.StatusUnauthorized)
			return
		}
		userID, err := auth.AuthenticateJWT(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		var req createUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid claim payload", http.StatusBadRequest)
			return
		}
		if req.Email == "" || req.Password == "" {
			http.Error(w, "email and password are required", http.StatusBadRequest)
			return
		}

		user, err := gs.Users.ClaimGuest(r.Context(), userID, req.Email, req.Password, req.Username)
		switch {
		case errors.Is(err, database.ErrEmailTaken):
			http.Error(w, "email already exists", http.StatusConflict)
			return
		case errors.Is(err, database.ErrNotEphemeral):
			http.Error(w, "user is not a guest", http.StatusBadRequest)
			return
		case errors.Is(err, database.ErrUserNotFound):
			http.Error(w, "user not found", http.StatusNotFound)
			return
		case err != nil:
			gs.Logger.Errorf("failed to claim guest %s: %v", userID, err)
			http.Error(w, "failed to finalize guest user", http.StatusInternalServerError)
			return
		}
		user.Password = ""
		writeJSON(w, http.StatusOK, user)
	}
}
