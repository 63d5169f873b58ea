package registrations

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/angelmondragon/regpay-backend/pkg/enums"
)

func TestMongoStoreApplyPayment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	target := Target{Collection: enums.CollectionUpdateCertificates, RegistrationID: "reg-1"}
	payment := Payment{OrderID: "ORDER_1", Amount: decimal.NewFromInt(1531), PaidAt: time.Now(), WebhookConfirmed: true}

	mt.Run("matched", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		matched, err := NewMongoStore(mt.DB).ApplyPayment(context.Background(), target, payment)
		require.NoError(t, err)
		assert.True(t, matched)
	})

	mt.Run("missing document", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		matched, err := NewMongoStore(mt.DB).ApplyPayment(context.Background(), target, payment)
		require.NoError(t, err)
		assert.False(t, matched)
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value", Name: "BadValue"}))
		_, err := NewMongoStore(mt.DB).ApplyPayment(context.Background(), target, payment)
		require.Error(t, err)
	})
}

func TestDocumentIDFilter(t *testing.T) {
	assert.Equal(t, bson.M{"_id": "reg-1"}, documentIDFilter("reg-1"))

	hex := "65f1c2a9e4b0a1b2c3d4e5f6"
	oid, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"_id": bson.M{"$in": bson.A{oid, hex}}}, documentIDFilter(hex))
}
