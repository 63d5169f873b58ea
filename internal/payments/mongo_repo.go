package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/angelmondragon/regpay-backend/pkg/db/models"
	"github.com/angelmondragon/regpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/regpay-backend/pkg/errors"
)

// TransactionsCollection holds transaction documents keyed by order id.
const TransactionsCollection = "payment_transactions"

type transactionDocument struct {
	OrderID          string     `bson:"_id"`
	Amount           int64      `bson:"amount"`
	Currency         string     `bson:"currency"`
	Status           string     `bson:"status"`
	CustomerName     string     `bson:"customerName"`
	CustomerEmail    string     `bson:"customerEmail"`
	CustomerPhone    string     `bson:"customerPhone"`
	RegistrationType string     `bson:"registrationType"`
	RegistrationID   *string    `bson:"registrationId,omitempty"`
	CollectionName   string     `bson:"collectionName"`
	PaymentSessionID string     `bson:"paymentSessionId,omitempty"`
	GatewayResponse  bson.M     `bson:"cashfreeResponse,omitempty"`
	TransactionID    *string    `bson:"transactionId,omitempty"`
	PaymentMethod    *string    `bson:"paymentMethod,omitempty"`
	CreatedAt        time.Time  `bson:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt"`
	LinkedAt         *time.Time `bson:"linkedAt,omitempty"`
	PaymentDate      *time.Time `bson:"paymentDate,omitempty"`
	LastChecked      *time.Time `bson:"lastChecked,omitempty"`
}

type mongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository builds a transaction repository over the document store.
func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(TransactionsCollection)}
}

func (r *mongoRepository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	if _, err := r.coll.InsertOne(ctx, toDocument(txn)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order id already exists")
		}
		return err
	}
	return nil
}

func (r *mongoRepository) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	var doc transactionDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": orderID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *mongoRepository) ApplyStatus(ctx context.Context, orderID string, update StatusUpdate) (bool, error) {
	set := bson.M{
		"status":    string(update.Status),
		"updatedAt": update.UpdatedAt,
	}
	if update.TransactionID != nil {
		set["transactionId"] = *update.TransactionID
	}
	if update.PaymentMethod != nil {
		set["paymentMethod"] = *update.PaymentMethod
	}
	if raw := rawToDocument(update.GatewayResponse); raw != nil {
		set["cashfreeResponse"] = raw
	}
	if update.PaymentDate != nil {
		set["paymentDate"] = *update.PaymentDate
	}
	if update.LastChecked != nil {
		set["lastChecked"] = *update.LastChecked
	}
	return r.update(ctx, orderID, set)
}

func (r *mongoRepository) Link(ctx context.Context, orderID string, link LinkUpdate) (bool, error) {
	return r.update(ctx, orderID, bson.M{
		"registrationId": link.RegistrationID,
		"collectionName": string(link.Collection),
		"linkedAt":       link.LinkedAt,
		"updatedAt":      link.LinkedAt,
	})
}

func (r *mongoRepository) ListUnsettled(ctx context.Context, q UnsettledQuery) ([]string, error) {
	statuses := make([]string, 0, 2)
	for _, status := range unsettledStatuses() {
		statuses = append(statuses, string(status))
	}
	filter := bson.M{
		"status":    bson.M{"$in": statuses},
		"createdAt": bson.M{"$gte": q.CreatedAfter, "$lt": q.CreatedBefore},
		"$or": bson.A{
			bson.M{"lastChecked": bson.M{"$exists": false}},
			bson.M{"lastChecked": bson.M{"$lt": q.CheckedBefore}},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetProjection(bson.M{"_id": 1}).
		SetLimit(int64(q.Limit))
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var row struct {
			OrderID string `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.OrderID)
	}
	return ids, cursor.Err()
}

func (r *mongoRepository) update(ctx context.Context, orderID string, set bson.M) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func toDocument(txn *models.PaymentTransaction) transactionDocument {
	return transactionDocument{
		OrderID:          txn.OrderID,
		Amount:           txn.Amount,
		Currency:         string(txn.Currency),
		Status:           string(txn.Status),
		CustomerName:     txn.CustomerName,
		CustomerEmail:    txn.CustomerEmail,
		CustomerPhone:    txn.CustomerPhone,
		RegistrationType: string(txn.RegistrationType),
		RegistrationID:   txn.RegistrationID,
		CollectionName:   txn.CollectionName,
		PaymentSessionID: txn.PaymentSessionID,
		GatewayResponse:  rawToDocument(txn.GatewayResponse),
		TransactionID:    txn.TransactionID,
		PaymentMethod:    txn.PaymentMethod,
		CreatedAt:        txn.CreatedAt,
		UpdatedAt:        txn.UpdatedAt,
		LinkedAt:         txn.LinkedAt,
		PaymentDate:      txn.PaymentDate,
		LastChecked:      txn.LastChecked,
	}
}

func (d transactionDocument) toModel() *models.PaymentTransaction {
	return &models.PaymentTransaction{
		OrderID:          d.OrderID,
		Amount:           d.Amount,
		Currency:         enums.Currency(d.Currency),
		Status:           enums.PaymentStatus(d.Status),
		CustomerName:     d.CustomerName,
		CustomerEmail:    d.CustomerEmail,
		CustomerPhone:    d.CustomerPhone,
		RegistrationType: enums.RegistrationType(d.RegistrationType),
		RegistrationID:   d.RegistrationID,
		CollectionName:   d.CollectionName,
		PaymentSessionID: d.PaymentSessionID,
		GatewayResponse:  documentToRaw(d.GatewayResponse),
		TransactionID:    d.TransactionID,
		PaymentMethod:    d.PaymentMethod,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		LinkedAt:         d.LinkedAt,
		PaymentDate:      d.PaymentDate,
		LastChecked:      d.LastChecked,
	}
}

// rawToDocument stores gateway JSON as a nested document; non-object payloads are dropped.
func rawToDocument(raw json.RawMessage) bson.M {
	if len(raw) == 0 {
		return nil
	}
	var doc bson.M
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil
	}
	return doc
}

func documentToRaw(doc bson.M) json.RawMessage {
	if doc == nil {
		return nil
	}
	raw, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil
	}
	return raw
}
