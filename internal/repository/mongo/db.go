package mongo

import (
	"context"
	"fmt"
	"time"

	"alcyxob/health-tracker/internal/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

// Open connects to the configured server, verifies it answers a ping and
// returns the client together with the tracker database handle.
func Open(ctx context.Context, cfg config.MongoConfig, log logrus.FieldLogger) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetAppName("health-tracker"))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	// Connect is lazy; an unreachable server only shows up on ping.
	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		if derr := Close(client); derr != nil {
			log.WithError(derr).Warn("mongo disconnect after failed ping")
		}
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.WithField("database", cfg.Name).Debug("mongo connected")
	return client, client.Database(cfg.Name), nil
}

// Close disconnects the client.
func Close(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}
