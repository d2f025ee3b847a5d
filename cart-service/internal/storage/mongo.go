package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tomoca-dev/Tomo-web/cart-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cartsCollection = "carts"

type cartDocument struct {
	Key       string      `bson:"_id"`
	Items     []mongoItem `bson:"items"`
	UpdatedAt time.Time   `bson:"updated_at"`
}

// mongoItem stores prices as decimal strings; the driver has no codec for
// decimal.Decimal.
type mongoItem struct {
	ProductID   string `bson:"product_id"`
	VariantID   string `bson:"variant_id,omitempty"`
	Name        string `bson:"name"`
	ImageURL    string `bson:"image_url,omitempty"`
	UnitPrice   string `bson:"unit_price"`
	Quantity    int    `bson:"quantity"`
	VariantName string `bson:"variant_name,omitempty"`
}

func toMongoItems(items []domain.LineItem) []mongoItem {
	out := make([]mongoItem, 0, len(items))
	for _, it := range items {
		out = append(out, mongoItem{
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			Name:        it.Name,
			ImageURL:    it.ImageURL,
			UnitPrice:   it.UnitPrice.String(),
			Quantity:    it.Quantity,
			VariantName: it.VariantName,
		})
	}
	return out
}

func fromMongoItems(items []mongoItem) ([]domain.LineItem, error) {
	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid unit price %q: %w", ErrCorrupt, it.UnitPrice, err)
		}
		out = append(out, domain.LineItem{
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			Name:        it.Name,
			ImageURL:    it.ImageURL,
			UnitPrice:   price,
			Quantity:    it.Quantity,
			VariantName: it.VariantName,
		})
	}
	return out, nil
}

type MongoStorage struct {
	collection *mongo.Collection
}

func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{collection: db.Collection(cartsCollection)}
}

func (m *MongoStorage) Load(ctx context.Context, key string) ([]domain.LineItem, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return fromMongoItems(doc.Items)
}

func (m *MongoStorage) Save(ctx context.Context, key string, items []domain.LineItem) error {
	doc := cartDocument{Key: key, Items: toMongoItems(items), UpdatedAt: time.Now()}
	opts := options.Replace().SetUpsert(true)

	if _, err := m.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (m *MongoStorage) Delete(ctx context.Context, key string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}
