package repository

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"meaktask-api/internal/entities"
)

// UsersCollection is the MongoDB collection holding user documents
const UsersCollection = "users"

type mongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a MongoDB user repository.
// EnsureUserIndexes must have been run against the database.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{coll: db.Collection(UsersCollection)}
}

// EnsureUserIndexes creates the unique email index the repository relies on
func EnsureUserIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_key"),
	})
	if err != nil {
		return oops.Code("USER_INDEX_FAILED").
			With("operation", "create unique email index").
			Wrap(err)
	}
	return nil
}

// withoutPasswordHash projects the hash out of read results
func withoutPasswordHash() *options.FindOneOptionsBuilder {
	return options.FindOne().SetProjection(bson.M{"password_hash": 0})
}

func (r *mongoUserRepository) Create(ctx context.Context, user *entities.User) error {
	_, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user document").
			With("id", user.ID).
			Wrap(err)
	}
	return nil
}

// FindByEmail expects a normalized email; documents store the lowercased form
func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string, includePasswordHash bool) (*entities.User, error) {
	opts := withoutPasswordHash()
	if includePasswordHash {
		opts = options.FindOne()
	}

	var user entities.User
	err := r.coll.FindOne(ctx, bson.M{"email": email}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}
	return &user, nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}, withoutPasswordHash()).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "find user by id").
			With("id", id).
			Wrap(err)
	}
	return &user, nil
}

func (r *mongoUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, oops.Code("USER_EXISTS_FAILED").
			With("operation", "count user documents").
			With("id", id).
			Wrap(err)
	}
	return n > 0, nil
}

func (r *mongoUserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "delete user document").
			With("id", id).
			Wrap(err)
	}
	if result.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
