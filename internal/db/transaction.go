// Package db runs groups of settlement writes atomically.
package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

type TxFunc func(txCtx context.Context) error

type TransactionManager interface {
	// InTransaction commits everything fn writes through txCtx, or nothing. fn may run again
	// after a transient server error.
	InTransaction(ctx context.Context, fn TxFunc) error
}

// MongoTransactionManager needs a replica set.
type MongoTransactionManager struct {
	client *mongo.Client
	opts   *options.TransactionOptions
}

func NewMongoTransactionManager(client *mongo.Client) *MongoTransactionManager {
	return &MongoTransactionManager{
		client: client,
		opts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()).
			SetReadPreference(readpref.Primary()),
	}
}

func (m *MongoTransactionManager) InTransaction(ctx context.Context, fn TxFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, m.opts)
	return err
}

// LocalTransactionManager runs fn directly. Dev and test deployments may use a standalone
// mongod, which has no transactions; the invoice and coupon locks still serialize writers.
type LocalTransactionManager struct{}

func NewLocalTransactionManager() LocalTransactionManager {
	return LocalTransactionManager{}
}

func (LocalTransactionManager) InTransaction(ctx context.Context, fn TxFunc) error {
	return fn(ctx)
}
