package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelworks/portcullis/internal/authn"
	"github.com/kestrelworks/portcullis/internal/meta"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type usersStore struct {
	collection *mongo.Collection
}

// NewUsersStore returns a MongoDB-based implementation of the
// authn.UsersStore interface.
func NewUsersStore(database *mongo.Database) (authn.UsersStore, error) {
	ctx, cancel :=
		context.WithTimeout(context.Background(), createIndexTimeout)
	defer cancel()
	unique := true
	sparse := true
	collection := database.Collection("users")
	if _, err := collection.Indexes().CreateMany(
		ctx,
		[]mongo.IndexModel{
			{
				Keys: bson.M{
					"id": 1,
				},
				Options: &options.IndexOptions{
					Unique: &unique,
				},
			},
			// One user per federated subject; sparse because local users
			// carry no subject at all.
			{
				Keys: bson.M{
					"providerSubject": 1,
				},
				Options: &options.IndexOptions{
					Unique: &unique,
					Sparse: &sparse,
				},
			},
		},
	); err != nil {
		return nil, errors.Wrap(err, "error adding indexes to users collection")
	}
	return &usersStore{
		collection: collection,
	}, nil
}

func (u *usersStore) Create(ctx context.Context, user authn.User) error {
	if _, err := u.collection.InsertOne(ctx, user); err != nil {
		if writeException, ok := err.(mongo.WriteException); ok {
			if len(writeException.WriteErrors) == 1 &&
				writeException.WriteErrors[0].Code == 11000 {
				return &meta.ErrConflict{
					Type: "User",
					ID:   user.ID,
					Reason: fmt.Sprintf(
						"A user with the ID %q already exists.",
						user.ID,
					),
				}
			}
		}
		return errors.Wrapf(err, "error inserting new user %q", user.ID)
	}
	return nil
}

func (u *usersStore) Get(
	ctx context.Context,
	id string,
) (authn.User, error) {
	user := authn.User{}
	res := u.collection.FindOne(ctx, bson.M{"id": id})
	if res.Err() == mongo.ErrNoDocuments {
		return user, &meta.ErrNotFound{
			Type: "User",
			ID:   id,
		}
	}
	if res.Err() != nil {
		return user, errors.Wrapf(res.Err(), "error finding user %q", id)
	}
	if err := res.Decode(&user); err != nil {
		return user, errors.Wrapf(err, "error decoding user %q", id)
	}
	return user, nil
}

func (u *usersStore) GetByProviderSubject(
	ctx context.Context,
	subject string,
) (authn.User, error) {
	user := authn.User{}
	res := u.collection.FindOne(ctx, bson.M{"providerSubject": subject})
	if res.Err() == mongo.ErrNoDocuments {
		return user, &meta.ErrNotFound{
			Type: "User",
		}
	}
	if res.Err() != nil {
		return user, errors.Wrap(
			res.Err(),
			"error finding user by provider subject",
		)
	}
	if err := res.Decode(&user); err != nil {
		return user, errors.Wrap(err, "error decoding user")
	}
	return user, nil
}

func (u *usersStore) UpdatePassword(
	ctx context.Context,
	id string,
	hashedPassword string,
	passwordScheme string,
) error {
	res, err := u.collection.UpdateOne(
		ctx,
		bson.M{
			"id": id,
		},
		bson.M{
			"$set": bson.M{
				"hashedPassword": hashedPassword,
				"passwordScheme": passwordScheme,
				"lastUpdated":    time.Now(),
			},
		},
	)
	if err != nil {
		return errors.Wrapf(err, "error updating user %q", id)
	}
	if res.MatchedCount == 0 {
		return &meta.ErrNotFound{
			Type: "User",
			ID:   id,
		}
	}
	return nil
}
