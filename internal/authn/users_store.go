package authn

import "context"

// UsersStore is an interface for components that implement User persistence.
type UsersStore interface {
	// Create stores the provided User. Implementations MUST return a
	// *meta.ErrConflict if a User having the same ID already exists.
	Create(context.Context, User) error
	// Get returns the User with the specified ID. Implementations MUST return
	// a *meta.ErrNotFound if no such User exists.
	Get(context.Context, string) (User, error)
	// GetByProviderSubject returns the User bound to the specified federated
	// subject identifier. Implementations MUST return a *meta.ErrNotFound if
	// no such User exists.
	GetByProviderSubject(context.Context, string) (User, error)
	// UpdatePassword replaces the credential material of the User with the
	// specified ID. Implementations MUST return a *meta.ErrNotFound if no
	// such User exists.
	UpdatePassword(
		ctx context.Context,
		id string,
		hashedPassword string,
		passwordScheme string,
	) error
}
