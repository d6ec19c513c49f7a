package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"usersvc/api/internal/models"
	"usersvc/api/internal/pagination"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type UserRepository struct {
	store *Store[models.User]
}

// NewUserRepository wraps the users collection and ensures the unique
// email index. The index is the backstop behind the check-then-write
// uniqueness probe in the registration pipeline.
func NewUserRepository(ctx context.Context, db *mongo.Database) (*UserRepository, error) {
	coll := db.Collection("users")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create email index: %w", err)
	}

	return &UserRepository{store: NewStore[models.User](coll)}, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	if _, err := r.store.InsertOne(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := r.store.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.store.FindOne(ctx, bson.M{"email": email})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) EmailInUse(ctx context.Context, email string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{"email": email}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	return r.store.Exists(ctx, filter)
}

func (r *UserRepository) Replace(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	err := r.store.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, ErrDuplicate):
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.store.DeleteOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) Count(ctx context.Context, filter bson.M) (int64, error) {
	return r.store.Count(ctx, filter)
}

// Window returns one page of users ordered by descending identifier,
// bounded by the cursor arguments.
func (r *UserRepository) Window(ctx context.Context, args pagination.Args) ([]models.User, error) {
	return r.store.Find(ctx, windowFilter(args), windowOptions(args))
}

// ExistsNewer reports whether any user has an identifier greater than
// id; it backs the hasPreviousPage probe.
func (r *UserRepository) ExistsNewer(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.store.Exists(ctx, bson.M{"_id": bson.M{"$gt": id}})
}

// ExistsOlder reports whether any user has an identifier less than id;
// it backs the hasNextPage probe.
func (r *UserRepository) ExistsOlder(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.store.Exists(ctx, bson.M{"_id": bson.M{"$lt": id}})
}

// windowFilter selects records strictly older than the after cursor or
// strictly newer than the before cursor; before takes precedence when
// both are supplied.
func windowFilter(args pagination.Args) bson.M {
	switch {
	case args.Before != nil:
		return bson.M{"_id": bson.M{"$gt": *args.Before}}
	case args.After != nil:
		return bson.M{"_id": bson.M{"$lt": *args.After}}
	}
	return bson.M{}
}

func windowOptions(args pagination.Args) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(args.Limit()))
}
