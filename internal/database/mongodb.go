package database

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/courrier-mf/courrier/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectAttempts bounds startup connection retries.
const ConnectAttempts = 5

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectMongoWithRetry retries ConnectMongo with exponential backoff to
// tolerate the database starting after this service.
func ConnectMongoWithRetry(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	var client *mongo.Client
	err := retry.Do(
		func() error {
			var err error
			client, err = ConnectMongo(ctx, uri, timeout)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(ConnectAttempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", n+1, ConnectAttempts, err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}
