package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is a production order owned by a user.
type Order struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
