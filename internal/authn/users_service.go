package authn

import (
	"context"
	"time"

	"github.com/kestrelworks/portcullis/internal/lib/crypto"
	"github.com/pkg/errors"
)

// UsersService is the specialized interface for managing Users. It's
// decoupled from underlying technology choices (e.g. data store) to keep
// business logic reusable and consistent while the underlying tech stack
// remains free to change.
type UsersService interface {
	// Register creates a new User with locally stored credentials. The
	// cleartext password is hashed immediately and never persisted.
	Register(context.Context, UserRegistration) (User, error)
	// Get retrieves a single User specified by their identifier.
	Get(context.Context, string) (User, error)
	// UpdatePassword rotates the credential material of a single User
	// specified by their identifier. All of that User's outstanding Sessions
	// are destroyed as a side effect.
	UpdatePassword(ctx context.Context, id string, newPassword string) error
}

type usersService struct {
	usersStore    UsersStore
	sessionsStore SessionsStore
	hasher        crypto.PasswordHasher
}

// NewUsersService returns a specialized interface for managing Users.
func NewUsersService(
	usersStore UsersStore,
	sessionsStore SessionsStore,
) UsersService {
	return &usersService{
		usersStore:    usersStore,
		sessionsStore: sessionsStore,
		hasher:        crypto.BcryptHasher{},
	}
}

func (u *usersService) Register(
	ctx context.Context,
	registration UserRegistration,
) (User, error) {
	hashedPassword, err := u.hasher.Hash(registration.Password)
	if err != nil {
		return User{}, errors.Wrap(err, "error hashing password")
	}
	now := time.Now()
	user := User{
		Name:           registration.Name,
		HashedPassword: hashedPassword,
		PasswordScheme: PasswordSchemeBcrypt,
	}
	user.ID = registration.ID
	user.Created = &now
	if err := u.usersStore.Create(ctx, user); err != nil {
		return User{}, errors.Wrapf(err, "error storing new user %q", user.ID)
	}
	return user, nil
}

func (u *usersService) Get(ctx context.Context, id string) (User, error) {
	user, err := u.usersStore.Get(ctx, id)
	if err != nil {
		return user, errors.Wrapf(
			err,
			"error retrieving user %q from store",
			id,
		)
	}
	return user, nil
}

func (u *usersService) UpdatePassword(
	ctx context.Context,
	id string,
	newPassword string,
) error {
	hashedPassword, err := u.hasher.Hash(newPassword)
	if err != nil {
		return errors.Wrap(err, "error hashing password")
	}
	// Rotation always writes the current default scheme, so legacy records
	// are upgraded here as well.
	if err := u.usersStore.UpdatePassword(
		ctx,
		id,
		hashedPassword,
		PasswordSchemeBcrypt,
	); err != nil {
		return errors.Wrapf(err, "error updating password for user %q", id)
	}
	if err := u.sessionsStore.DeleteByUser(ctx, id); err != nil {
		return errors.Wrapf(err, "error deleting sessions for user %q", id)
	}
	return nil
}
