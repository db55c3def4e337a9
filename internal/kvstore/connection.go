package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultMongoConnectTimeout = 10 * time.Second

// MongoOptions configure the client behind MongoStore. Zero pool sizes keep
// the driver defaults.
type MongoOptions struct {
	URI            string
	Database       string
	MaxPoolSize    uint64
	MinPoolSize    uint64
	ConnectTimeout time.Duration
}

func (o MongoOptions) clientOptions() *options.ClientOptions {
	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultMongoConnectTimeout
	}
	opts := options.Client().
		ApplyURI(o.URI).
		SetAppName("storefront").
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if o.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		opts.SetMinPoolSize(o.MinPoolSize)
	}
	return opts
}

// ConnectMongoDB opens the client and waits for the primary to answer. A
// client that cannot reach it is disconnected before returning.
func ConnectMongoDB(ctx context.Context, o MongoOptions) (*mongo.Database, error) {
	if o.Database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if o.MaxPoolSize > 0 && o.MinPoolSize > o.MaxPoolSize {
		return nil, fmt.Errorf("mongo min pool size %d exceeds max %d", o.MinPoolSize, o.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, o.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(o.Database), nil
}
