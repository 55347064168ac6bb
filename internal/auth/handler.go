package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgsphere/backend/internal/models"
	"github.com/orgsphere/backend/pkg/response"
	"github.com/orgsphere/backend/pkg/utils"
)

// UserStore is the persistence surface the auth handlers need.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Register(ctx context.Context, p RegisterParams) (*models.User, *models.Organisation, error)
	SharesOrganisation(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required,alpha"`
	LastName  string `json:"lastName" binding:"required,alpha"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6,max=72"`
	Phone     string `json:"phone" binding:"omitempty,max=20"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	AccessToken string            `json:"accessToken"`
	User        models.UserPublic `json:"user"`
}

// Handler handles auth and user HTTP endpoints.
type Handler struct {
	store  UserStore
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(store UserStore, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{store: store, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register. Creates the user, their default
// organisation, and the membership linking them atomically.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, response.BindingErrors(err))
		return
	}

	existing, err := h.store.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("lookup email", zap.Error(err))
		response.Internal(c, "Registration unsuccessful")
		return
	}
	if existing != nil {
		response.ValidationFailed(c, []response.FieldError{
			{Field: "email", Message: "Email already in use. Try another email"},
		})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		response.Internal(c, "Registration unsuccessful")
		return
	}

	user, _, err := h.store.Register(c.Request.Context(), RegisterParams{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		OrgName:      fmt.Sprintf("%s's Organisation", req.FirstName),
	})
	if err != nil {
		// Concurrent register with the same email loses the race on the
		// unique index and gets the same conflict as the precheck.
		if errors.Is(err, models.ErrDuplicateEmail) {
			response.ValidationFailed(c, []response.FieldError{
				{Field: "email", Message: "Email already in use. Try another email"},
			})
			return
		}
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "Registration unsuccessful")
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		response.Internal(c, "Registration unsuccessful")
		return
	}

	response.Created(c, "Registration successful", TokenResponse{AccessToken: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, response.BindingErrors(err))
		return
	}

	user, err := h.store.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("lookup email", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	if user == nil {
		response.NotFound(c, "User not found")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "Authentication failed")
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	response.OK(c, "Login successful", TokenResponse{AccessToken: token, User: user.ToPublic()})
}

// GetUser handles GET /api/users/:id. A caller may fetch their own profile or
// that of any user sharing an organisation with them; everyone else is
// indistinguishable from a non-existent user.
func (h *Handler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid user id")
		return
	}
	callerID := CurrentUserID(c)

	if id != callerID {
		shares, err := h.store.SharesOrganisation(c.Request.Context(), callerID, id)
		if err != nil {
			h.logger.Error("shared organisation lookup", zap.Error(err))
			response.Internal(c, "Internal server error")
			return
		}
		if !shares {
			response.NotFound(c, "User not found")
			return
		}
	}

	user, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("lookup user", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	if user == nil {
		response.NotFound(c, "User not found")
		return
	}

	response.OK(c, "User details retrieved successfully", user.ToPublic())
}
