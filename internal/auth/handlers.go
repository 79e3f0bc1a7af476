package auth

import (
	"LinkLoom-Backend/internal/domain"
	"LinkLoom-Backend/internal/repository"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Handlers implements the authentication collaborator's HTTP surface. The
// resolution core only consumes the principal identity these handlers
// establish.
type Handlers struct {
	storage         repository.Storage
	jwtService      *JWTService
	passwordService *PasswordService
	log             *zap.Logger
}

// NewHandlers creates the authentication handlers.
func NewHandlers(storage repository.Storage, jwtService *JWTService, passwordService *PasswordService, log *zap.Logger) *Handlers {
	return &Handlers{
		storage:         storage,
		jwtService:      jwtService,
		passwordService: passwordService,
		log:             log,
	}
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the token refresh payload.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse carries a fresh token pair.
type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         UserInfo `json:"user"`
}

// UserInfo is the public view of a principal.
type UserInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register creates a new user account.
//
//	@Summary		Register a new user
//	@Description	Create a new user account
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"Registration request"
//	@Success		201		{object}	AuthResponse		"User registered successfully"
//	@Failure		400		{object}	ErrorResponse		"Invalid request data"
//	@Failure		409		{object}	ErrorResponse		"User already exists"
//	@Router			/api/auth/register [post]
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !isValidEmail(req.Email) {
		h.writeError(w, "Invalid email format", http.StatusBadRequest)
		return
	}

	if err := IsValidPassword(req.Password); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.storage.GetUserByEmail(r.Context(), req.Email); err == nil {
		h.writeError(w, "User with this email already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		h.log.Error("failed to check existing user", zap.String("email", req.Email), zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	hashedPassword, err := h.passwordService.HashPassword(req.Password)
	if err != nil {
		h.log.Error("failed to hash password", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: hashedPassword,
	}
	if err := h.storage.CreateUser(r.Context(), user); err != nil {
		h.log.Error("failed to create user", zap.String("email", req.Email), zap.Error(err))
		h.writeError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	h.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("email", req.Email))
	h.respondWithTokens(w, user, http.StatusCreated)
}

// Login authenticates a user and issues a token pair.
//
//	@Summary		Login user
//	@Description	Authenticate user and receive JWT tokens
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Login request"
//	@Success		200		{object}	AuthResponse	"Login successful"
//	@Failure		400		{object}	ErrorResponse	"Invalid request data"
//	@Failure		401		{object}	ErrorResponse	"Invalid credentials"
//	@Router			/api/auth/login [post]
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.storage.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		h.log.Debug("user not found for login", zap.String("email", req.Email))
		h.writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if err := h.passwordService.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		h.log.Debug("invalid password for user", zap.String("email", req.Email))
		h.writeError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if err := h.storage.UpdateUserLastLogin(r.Context(), user.ID, time.Now()); err != nil {
		h.log.Warn("failed to update last login time", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	h.log.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("email", req.Email))
	h.respondWithTokens(w, user, http.StatusOK)
}

// Refresh exchanges a valid refresh token for a fresh token pair.
//
//	@Summary		Refresh tokens
//	@Description	Exchange a refresh token for a new token pair
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RefreshRequest	true	"Refresh request"
//	@Success		200		{object}	AuthResponse	"Tokens refreshed"
//	@Failure		401		{object}	ErrorResponse	"Invalid refresh token"
//	@Router			/api/auth/refresh [post]
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	claims, err := h.jwtService.ValidateToken(req.RefreshToken)
	if err != nil {
		h.writeError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	// Re-check the account still exists and is active before re-issuing.
	user, err := h.storage.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		h.writeError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	h.respondWithTokens(w, user, http.StatusOK)
}

func (h *Handlers) respondWithTokens(w http.ResponseWriter, user *domain.User, statusCode int) {
	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		h.log.Error("failed to generate access token", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		h.log.Error("failed to generate refresh token", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         UserInfo{ID: user.ID, Email: user.Email},
	}, statusCode)
}

// Helper methods

func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func isValidEmail(email string) bool {
	return strings.Contains(email, "@") && len(email) > 3 && len(email) < 255
}
