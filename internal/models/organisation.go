package models

import (
	"time"

	"github.com/google/uuid"
)

// Organisation represents a tenant. OwnerID is the creating user and is
// immutable after creation.
type Organisation struct {
	ID          uuid.UUID `json:"orgId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     uuid.UUID `json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// OrganisationUser links a user to an organisation. Rows are created on
// registration, organisation creation, and explicit add-member; never revoked.
type OrganisationUser struct {
	ID             uuid.UUID `json:"id"`
	OrganisationID uuid.UUID `json:"orgId"`
	UserID         uuid.UUID `json:"userId"`
	CreatedAt      time.Time `json:"addedAt"`
}
