package superadmin

import (
	"errors"
	"fmt"
)

// ErrNotSuperadmin is returned when an email has no active superadmin account
var ErrNotSuperadmin = errors.New("not a superadmin")

// ErrAccountNotFound is returned when an account does not exist
var ErrAccountNotFound = errors.New("superadmin account not found")

// ErrEmailAlreadyExists is returned when creating an account with a registered email
type ErrEmailAlreadyExists struct {
	Email string
}

func (e ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("superadmin account already exists: %s", e.Email)
}
