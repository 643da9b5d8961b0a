package tasklock

import "context"

type User interface {
	GetName() string
	GetEmail() string

	// GetPublicKey returns the user's public key material exactly as it was
	// registered (PEM or OpenSSH format).
	GetPublicKey() string

	Update(UserUpdate) error
	Erase() error
}

// UserUpdate carries the mutable fields of a user; nil fields are untouched.
type UserUpdate struct {
	Email     *string
	PublicKey *string
}

type UserService interface {
	GetUserNamed(context.Context, string) (User, error)
	CreateUser(context.Context, string, UserUpdate) (User, error)
	UserExists(context.Context, string) (bool, error)
}
