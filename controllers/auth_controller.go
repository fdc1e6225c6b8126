package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"stickyboard/data"
	"stickyboard/middleware"
	"stickyboard/models"

	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

const (
	maxEmailLen     = 100
	maxEmailLocal   = 64
	minPasswordLen  = 6
	tokenTypeBearer = "Bearer"
)

func validateRegister(req models.RegisterRequest) map[string]string {
	details := map[string]string{}

	email := strings.TrimSpace(req.Email)
	switch {
	case email == "":
		details["email"] = "Email is required"
	case len(email) > maxEmailLen:
		details["email"] = "Email must not exceed 100 characters"
	case strings.Index(email, "@") > maxEmailLocal:
		details["email"] = "Email local part must not exceed 64 characters"
	case !emailPattern.MatchString(email):
		details["email"] = "Please provide a valid email address"
	}

	var hasUpper, hasDigit bool
	for _, c := range req.Password {
		hasUpper = hasUpper || unicode.IsUpper(c)
		hasDigit = hasDigit || unicode.IsDigit(c)
	}
	switch {
	case req.Password == "":
		details["password"] = "Password is required"
	case len([]rune(req.Password)) < minPasswordLen:
		details["password"] = "Password must be at least 6 characters long"
	case !hasUpper || !hasDigit:
		details["password"] = "Password must contain at least one uppercase letter and one number"
	}

	if req.ConfirmPassword != req.Password {
		details["confirmPassword"] = "Passwords do not match"
	}
	return details
}

// Register creates an account and seeds its "Main Board".
// POST /api/auth/register
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	log := a.logger(r)

	var req models.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if details := validateRegister(req); len(details) > 0 {
		respondValidation(w, details)
		return
	}
	email := strings.TrimSpace(req.Email)

	user, err := a.DB.CreateUser(r.Context(), email, req.Password)
	if errors.Is(err, data.ErrEmailTaken) {
		respondJSON(w, http.StatusConflict, models.RegisterResponse{
			Success: false,
			Message: "User with this email already exists",
		})
		return
	}
	if err != nil {
		log.Error("register failed", zap.String("email", email), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	if _, err := a.DB.SeedDefaultBoard(r.Context(), user.ID); err != nil {
		// the account exists; a missing starter board is not worth failing the request
		log.Warn("could not seed default board", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	log.Info("user registered", zap.Int64("user_id", user.ID))
	respondJSON(w, http.StatusCreated, models.RegisterResponse{
		Success: true,
		Message: "User registered successfully",
		Email:   user.Email,
	})
}

// Login checks credentials and issues a token.
// POST /api/auth/login
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	log := a.logger(r)

	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		details := map[string]string{}
		if email == "" {
			details["email"] = "Email is required"
		}
		if req.Password == "" {
			details["password"] = "Password is required"
		}
		respondValidation(w, details)
		return
	}

	user, err := a.DB.GetUserByEmail(r.Context(), email)
	if err != nil {
		log.Error("login lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if user == nil || !data.CheckPasswordHash(req.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if a.isDemo(user.Email) {
		if _, err := a.DB.SeedDefaultBoard(r.Context(), user.ID); err != nil {
			log.Warn("could not seed demo board", zap.Error(err))
		}
	}

	token, _, err := a.Tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		log.Error("token generation failed", zap.Int64("user_id", user.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, models.LoginResponse{
		Token:   token,
		Type:    tokenTypeBearer,
		Email:   user.Email,
		Message: "Login successful",
	})
}

// Logout revokes the presented token. The demo account also loses its boards.
// POST /api/auth/logout
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	log := a.logger(r)

	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := a.DB.RevokeToken(r.Context(), claims.ID, claims.UserID, expiresAt); err != nil {
		log.Error("revoke failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	if a.isDemo(claims.Email) {
		if err := a.DB.DeleteAllBoardsForOwner(r.Context(), claims.UserID); err != nil {
			log.Warn("could not wipe demo data", zap.Error(err))
		} else {
			log.Info("demo data wiped", zap.Int64("user_id", claims.UserID))
		}
	}

	respondJSON(w, http.StatusOK, models.MessageResponse{Message: "Logout successful"})
}
