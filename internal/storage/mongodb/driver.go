// Package mongodb stores users as documents with the address embedded inline.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	customerrors "github.com/akashipov/userdirectory/internal/errors"
	"github.com/akashipov/userdirectory/internal/storage"
	"github.com/akashipov/userdirectory/internal/storage/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const collection = "users"

var _ storage.Store = (*Store)(nil)

type document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	Phone        string             `bson:"phone"`
	Company      string             `bson:"company"`
	Address      user.Address       `bson:"address"`
	Confirmation string             `bson:"confirmation,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func fromUser(u *user.User) document {
	return document{
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		Company:      u.Company,
		Address:      u.Address,
		Confirmation: u.Confirmation,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d document) user() user.User {
	return user.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		Phone:        d.Phone,
		Company:      d.Company,
		Address:      d.Address,
		Confirmation: d.Confirmation,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	log    *zap.SugaredLogger
	now    func() time.Time
}

func Connect(ctx context.Context, uri, database string, log *zap.SugaredLogger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("Problem with connecting to mongo: %w", err)
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("Problem with pinging mongo: %w", err)
	}
	return &Store{
		client: client,
		coll:   client.Database(database).Collection(collection),
		log:    log,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}, nil
}

// CreateIndexes enforces email uniqueness and indexes name for lookups.
func (s *Store) CreateIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("Problem with creating indexes: %w", err)
	}
	return nil
}

// SearchFilter matches search literally and case-insensitively in name,
// email or company. An empty search matches everything.
func SearchFilter(search string) bson.M {
	if search == "" {
		return bson.M{}
	}
	re := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"name": re},
		bson.M{"email": re},
		bson.M{"company": re},
	}}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, customerrors.ErrInvalidID
	}
	return oid, nil
}

func (s *Store) List(ctx context.Context, q storage.ListQuery) ([]user.User, int64, error) {
	filter := SearchFilter(q.Search)
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("Problem with counting users: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("Problem with listing users: %w", err)
	}
	var docs []document
	if err = cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("Problem with decoding users: %w", err)
	}
	users := make([]user.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, total, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d document
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, customerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Problem with getting user '%s': %w", id, err)
	}
	u := d.user()
	return &u, nil
}

func (s *Store) Create(ctx context.Context, u *user.User) error {
	now := s.now()
	d := fromUser(u)
	d.ID = primitive.NewObjectID()
	d.CreatedAt = now
	d.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, d)
	if mongo.IsDuplicateKeyError(err) {
		return customerrors.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("Problem with inserting user: %w", err)
	}
	*u = d.user()
	return nil
}

func (s *Store) Update(ctx context.Context, id string, u *user.User) (*user.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{
		"name":         u.Name,
		"email":        u.Email,
		"phone":        u.Phone,
		"company":      u.Company,
		"address":      u.Address,
		"confirmation": u.Confirmation,
		"updatedAt":    s.now(),
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d document
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&d)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, customerrors.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, customerrors.ErrDuplicateEmail
	case err != nil:
		return nil, fmt.Errorf("Problem with updating user '%s': %w", id, err)
	}
	updated := d.user()
	return &updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("Problem with deleting user '%s': %w", id, err)
	}
	if res.DeletedCount == 0 {
		return customerrors.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	s.log.Infoln("Closing mongo connection")
	return s.client.Disconnect(ctx)
}
