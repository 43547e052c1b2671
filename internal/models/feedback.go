package models

import (
	"time"

	"github.com/google/uuid"
)

type Feedback struct {
	ID        uuid.UUID `json:"id" db:"id"`
	User      string    `json:"user" db:"user_name"`
	Message   string    `json:"message" db:"message"`
	Rating    *int      `json:"rating,omitempty" db:"rating"`
	Intent    string    `json:"intent,omitempty" db:"intent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
