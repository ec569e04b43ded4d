// Package identity manages authentication credentials in a SQLite
// database separate from the document store. Credential creation is not
// transactional with the store; signup compensates by deleting the
// credential when the store side fails.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrCredentialNotFound is returned when no credential exists for the
	// given ID or email.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrEmailInUse is returned when a credential already exists for the email.
	ErrEmailInUse = errors.New("email already in use")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Credential is an authentication record. The ID doubles as the user
// document ID in the store.
type Credential struct {
	ID          string
	Email       string
	DisplayName string
}

// Provider is the credential backend interface. Production uses the
// SQLite implementation; tests substitute stubs to exercise the signup
// compensation path.
type Provider interface {
	// CreateCredential stores a new credential with a hashed password.
	CreateCredential(ctx context.Context, id, email, password string) (*Credential, error)

	// DeleteCredential removes a credential. Deleting a missing
	// credential is a no-op so compensation can run blindly.
	DeleteCredential(ctx context.Context, id string) error

	// UpdateDisplayName sets the display name on an existing credential.
	UpdateDisplayName(ctx context.Context, id, displayName string) error

	// Verify checks an email and password pair, returning the credential
	// on success and ErrInvalidCredentials on mismatch.
	Verify(ctx context.Context, email, password string) (*Credential, error)
}
