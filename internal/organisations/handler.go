package organisations

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgsphere/backend/internal/auth"
	"github.com/orgsphere/backend/internal/models"
	"github.com/orgsphere/backend/pkg/response"
)

// Store is the persistence surface the organisation handlers need.
type Store interface {
	Create(ctx context.Context, org *models.Organisation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organisation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organisation, error)
	AddMember(ctx context.Context, orgID, userID uuid.UUID) error
	IsMemberOrOwner(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// UserDirectory resolves user existence for add-member; satisfied by
// auth.Repository.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Handler handles organisation HTTP endpoints.
type Handler struct {
	store  Store
	users  UserDirectory
	logger *zap.Logger
}

// NewHandler creates an organisations handler.
func NewHandler(store Store, users UserDirectory, logger *zap.Logger) *Handler {
	return &Handler{store: store, users: users, logger: logger}
}

// CreateRequest is the body for POST /api/organisations.
type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

// AddMemberRequest is the body for POST /api/organisations/:orgId/users.
type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
}

// Create handles POST /api/organisations. The caller becomes the owner and a
// member of the new organisation.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, response.BindingErrors(err))
		return
	}
	org := &models.Organisation{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     auth.CurrentUserID(c),
	}
	if err := h.store.Create(c.Request.Context(), org); err != nil {
		h.logger.Error("create organisation", zap.Error(err))
		response.Internal(c, "Client error")
		return
	}
	response.Created(c, "Organisation created successfully", org)
}

// List handles GET /api/organisations. Returns every organisation the caller
// owns or belongs to.
func (h *Handler) List(c *gin.Context) {
	orgs, err := h.store.ListForUser(c.Request.Context(), auth.CurrentUserID(c))
	if err != nil {
		h.logger.Error("list organisations", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	if orgs == nil {
		orgs = []*models.Organisation{}
	}
	response.OK(c, "Organisations retrieved successfully", gin.H{"organisations": orgs})
}

// GetByID handles GET /api/organisations/:orgId. Only the owner or a member
// may fetch an organisation; anyone else sees not-found.
func (h *Handler) GetByID(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		response.BadRequest(c, "Invalid organisation id")
		return
	}
	userID := auth.CurrentUserID(c)

	ok, err := h.store.IsMemberOrOwner(c.Request.Context(), orgID, userID)
	if err != nil {
		h.logger.Error("organisation access check", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	if !ok {
		response.NotFound(c, "Organisation not found")
		return
	}

	org, err := h.store.GetByID(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("lookup organisation", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	if org == nil {
		response.NotFound(c, "Organisation not found")
		return
	}
	response.OK(c, "Organisation details retrieved successfully", org)
}

// AddMember handles POST /api/organisations/:orgId/users. Only the
// organisation's creator may add members.
func (h *Handler) AddMember(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		response.BadRequest(c, "Invalid organisation id")
		return
	}
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, response.BindingErrors(err))
		return
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.ValidationFailed(c, []response.FieldError{
			{Field: "userId", Message: "userId must be a valid id"},
		})
		return
	}

	org, err := h.store.GetByID(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("lookup organisation", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	if org == nil {
		response.NotFound(c, "Organisation not found")
		return
	}

	if org.OwnerID != auth.CurrentUserID(c) {
		response.Forbidden(c, "You are not authorized to perform this action")
		return
	}

	target, err := h.users.GetByID(c.Request.Context(), targetID)
	if err != nil {
		h.logger.Error("lookup user", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	if target == nil {
		response.NotFound(c, "User not found")
		return
	}

	if err := h.store.AddMember(c.Request.Context(), orgID, targetID); err != nil {
		if errors.Is(err, models.ErrAlreadyMember) {
			response.Conflict(c, "User already belongs to this organisation")
			return
		}
		h.logger.Error("add member", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	response.OK(c, "User added to organisation successfully", nil)
}
