package service

import (
	"github.com/google/uuid"

	"github.com/flicky/go-marketplace-api/internal/model"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }
