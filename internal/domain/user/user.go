package user

import (
	"time"

	"github.com/workboxhq/workbox/internal/pkg/errs"
)

// Kind is the entity kind reported by not-found errors.
const Kind = "user"

// User identifies an order owner. Credential checks happen in the external
// authentication collaborator; this service trusts verified identifiers.
type User struct {
	ID        string
	Username  string
	FullName  string
	CreatedAt time.Time
}

func New(id, username, fullName string) (*User, error) {
	if id == "" {
		return nil, errs.NewValidation("user: id is required")
	}
	if username == "" {
		return nil, errs.NewValidation("user: username is required")
	}
	return &User{
		ID:        id,
		Username:  username,
		FullName:  fullName,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
