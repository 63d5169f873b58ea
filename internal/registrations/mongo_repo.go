package registrations

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/angelmondragon/regpay-backend/pkg/enums"
)

type mongoStore struct {
	db  *mongo.Database
	now func() time.Time
}

// NewMongoStore writes registration payments to the document collections.
func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{db: db, now: time.Now}
}

func (s *mongoStore) ApplyPayment(ctx context.Context, target Target, payment Payment) (bool, error) {
	if err := target.validate(); err != nil {
		return false, err
	}

	set := bson.M{
		"paymentStatus": enums.RegistrationPaidStatus,
		"paymentId":     payment.OrderID,
		"paymentAmount": payment.Amount.InexactFloat64(),
		"paymentDate":   payment.PaidAt.UTC(),
		"updatedAt":     s.now().UTC(),
	}
	if payment.TransactionID != nil {
		set["transactionId"] = *payment.TransactionID
	}
	if payment.Method != nil {
		set["paymentMethod"] = *payment.Method
	}
	if payment.WebhookConfirmed {
		set["webhookConfirmed"] = true
	}

	res, err := s.db.Collection(string(target.Collection)).
		UpdateOne(ctx, documentIDFilter(target.RegistrationID), bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// documentIDFilter matches string ids and, when the id is valid hex, ObjectIDs.
func documentIDFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}
