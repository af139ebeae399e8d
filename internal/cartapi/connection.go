package cartapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOptions describes how the cart API reaches its MongoDB store.
type MongoOptions struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	// Timeout bounds connect and server selection; zero means 5s.
	Timeout time.Duration
}

func (o MongoOptions) client() *options.ClientOptions {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts := options.Client().
		ApplyURI(o.URI).
		SetAppName("cartsync").
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if o.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(o.MaxPoolSize)
	}
	return opts
}

// ConnectMongoDB connects, pings the primary and returns the named database.
// The caller owns the client and disconnects it through db.Client().
func ConnectMongoDB(ctx context.Context, o MongoOptions) (*mongo.Database, error) {
	if strings.TrimSpace(o.Database) == "" {
		return nil, errors.New("mongo database name is empty")
	}

	client, err := mongo.Connect(ctx, o.client())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(o.Database), nil
}
