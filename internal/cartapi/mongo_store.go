package cartapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cartsync/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	cartsCollection = "carts"
	cartRetention   = 30 * 24 * time.Hour
)

type cartDocument struct {
	ID        string         `bson:"_id"`
	SessionID string         `bson:"session_id"`
	Items     []itemDocument `bson:"items"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type itemDocument struct {
	ID         string               `bson:"id"`
	ProductID  string               `bson:"product_id"`
	Quantity   int                  `bson:"quantity"`
	PriceAtAdd primitive.Decimal128 `bson:"price_at_add"`
	Currency   string               `bson:"currency"`
}

type MongoStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection(cartsCollection),
		now:        time.Now,
	}
}

func (s *MongoStore) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var doc cartDocument

	err := s.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return doc.toDomain()
}

func (s *MongoStore) Save(ctx context.Context, cart *domain.Cart) error {
	items, err := itemDocuments(cart)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	filter := bson.M{"session_id": cart.SessionID()}
	update := bson.M{
		"$set": bson.M{
			"items":      items,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        cart.ID(),
			"created_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

// CreateIndexes makes session_id unique and expires carts untouched for cartRetention.
func (s *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cartRetention.Seconds())),
		},
	}

	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func itemDocuments(cart *domain.Cart) ([]itemDocument, error) {
	items := make([]itemDocument, 0, len(cart.Items()))
	for _, item := range cart.Items() {
		price, err := primitive.ParseDecimal128(item.PriceAtAdd().String())
		if err != nil {
			return nil, fmt.Errorf("failed to encode price of item %s: %w", item.ID(), err)
		}
		items = append(items, itemDocument{
			ID:         item.ID(),
			ProductID:  item.ProductID(),
			Quantity:   item.Quantity(),
			PriceAtAdd: price,
			Currency:   item.Currency(),
		})
	}
	return items, nil
}

func (d cartDocument) toDomain() (*domain.Cart, error) {
	dto := domain.CartDTO{
		ID:        d.ID,
		SessionID: d.SessionID,
		Items:     make([]domain.CartItemDTO, 0, len(d.Items)),
	}
	for _, item := range d.Items {
		price, err := decimal.NewFromString(item.PriceAtAdd.String())
		if err != nil {
			return nil, fmt.Errorf("failed to decode price of item %s: %w", item.ID, err)
		}
		dto.Items = append(dto.Items, domain.CartItemDTO{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			PriceAtAdd: domain.NewAmount(price),
			Currency:   item.Currency,
		})
	}

	cart, err := domain.FromAPI(dto)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return cart, nil
}
