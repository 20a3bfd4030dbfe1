package mongodb

import (
	"context"
	"testing"
	"time"

	customerrors "github.com/akashipov/userdirectory/internal/errors"
	"github.com/akashipov/userdirectory/internal/storage"
	"github.com/akashipov/userdirectory/internal/storage/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
)

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(mt *mtest.T) *Store {
	return &Store{
		coll: mt.Coll,
		log:  zap.NewNop().Sugar(),
		now:  func() time.Time { return created },
	}
}

func userDoc(id primitive.ObjectID, name, company string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "email", Value: "john.doe@example.com"},
		{Key: "phone", Value: "+1234567890"},
		{Key: "company", Value: company},
		{Key: "address", Value: bson.D{
			{Key: "street", Value: "123 Main Street"},
			{Key: "city", Value: "New York"},
			{Key: "zipcode", Value: "10001"},
			{Key: "geo", Value: bson.D{{Key: "lat", Value: 40.7128}, {Key: "lng", Value: -74.006}}},
		}},
		{Key: "createdAt", Value: created},
		{Key: "updatedAt", Value: created},
	}
}

func TestSearchFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, SearchFilter(""))

	f := SearchFilter("a.c+me")
	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 3)
	want := primitive.Regex{Pattern: `a\.c\+me`, Options: "i"}
	assert.Equal(t, bson.M{"name": want}, or[0])
	assert.Equal(t, bson.M{"email": want}, or[1])
	assert.Equal(t, bson.M{"company": want}, or[2])
}

func TestStore_MalformedID(t *testing.T) {
	s := &Store{}
	ctx := context.Background()
	_, err := s.GetByID(ctx, "not-an-object-id")
	assert.ErrorIs(t, err, customerrors.ErrInvalidID)
	_, err = s.Update(ctx, "123", &user.User{})
	assert.ErrorIs(t, err, customerrors.ErrInvalidID)
	assert.ErrorIs(t, s.Delete(ctx, ""), customerrors.ErrInvalidID)
}

func TestStore_WithMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "db.users"

	mt.Run("get_found", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, userDoc(id, "John Doe", "Acme Corporation")))
		got, err := newStore(mt).GetByID(context.Background(), id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), got.ID)
		assert.Equal(mt, "New York", got.Address.City)
		assert.Equal(mt, 40.7128, got.Address.Geo.Lat)
		assert.True(mt, created.Equal(got.CreatedAt))
	})

	mt.Run("get_not_found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		_, err := newStore(mt).GetByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, customerrors.ErrNotFound)
	})

	mt.Run("create", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		u := user.User{Name: "John Doe", Email: "john.doe@example.com"}
		require.NoError(mt, newStore(mt).Create(context.Background(), &u))
		assert.Len(mt, u.ID, 24)
		assert.Equal(mt, created, u.CreatedAt)
		assert.Equal(mt, created, u.UpdatedAt)
	})

	mt.Run("create_duplicate_email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: db.users index: email_1",
		}))
		u := user.User{Name: "John Doe", Email: "john.doe@example.com"}
		err := newStore(mt).Create(context.Background(), &u)
		assert.ErrorIs(mt, err, customerrors.ErrDuplicateEmail)
	})

	mt.Run("update", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: userDoc(id, "Johnny Doe", "Acme Corporation")},
		})
		u := user.User{Name: "Johnny Doe", Email: "john.doe@example.com"}
		got, err := newStore(mt).Update(context.Background(), id.Hex(), &u)
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), got.ID)
		assert.Equal(mt, "Johnny Doe", got.Name)
	})

	mt.Run("update_not_found", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})
		u := user.User{Name: "Johnny Doe", Email: "john.doe@example.com"}
		_, err := newStore(mt).Update(context.Background(), primitive.NewObjectID().Hex(), &u)
		assert.ErrorIs(mt, err, customerrors.ErrNotFound)
	})

	mt.Run("update_duplicate_email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Name:    "DuplicateKey",
			Message: "E11000 duplicate key error collection: db.users index: email_1",
		}))
		u := user.User{Name: "Johnny Doe", Email: "jane.smith@example.com"}
		_, err := newStore(mt).Update(context.Background(), primitive.NewObjectID().Hex(), &u)
		assert.ErrorIs(mt, err, customerrors.ErrDuplicateEmail)
	})

	mt.Run("update_fails", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad value",
		}))
		u := user.User{Name: "Johnny Doe", Email: "john.doe@example.com"}
		_, err := newStore(mt).Update(context.Background(), primitive.NewObjectID().Hex(), &u)
		assert.ErrorContains(mt, err, "Problem with updating user")
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}})
		assert.NoError(mt, newStore(mt).Delete(context.Background(), primitive.NewObjectID().Hex()))
	})

	mt.Run("delete_missing", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})
		err := newStore(mt).Delete(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, customerrors.ErrNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(12)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				userDoc(primitive.NewObjectID(), "John Doe", "Acme Corporation"),
				userDoc(primitive.NewObjectID(), "Jane Smith", "acme labs"),
			),
		)
		users, total, err := newStore(mt).List(context.Background(), storage.ListQuery{Page: 2, Limit: 10, Search: "acme"})
		require.NoError(mt, err)
		assert.Equal(mt, int64(12), total)
		require.Len(mt, users, 2)
		assert.Equal(mt, "Jane Smith", users[1].Name)
	})
}
