package user

import "github.com/google/uuid"

// User is the consumed view of an account: enough to attribute an order and
// address its confirmation.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}
