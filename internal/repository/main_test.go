package repository_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/Dias221467/connections-chat/internal/database"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var testClient *mongo.Client

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	container, err := startMongo(ctx)
	if err != nil {
		log.Printf("MongoDB container unavailable, integration tests will be skipped: %v", err)
		return m.Run()
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}()

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		log.Printf("failed to get connection string: %v", err)
		return 1
	}
	testClient, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Printf("failed to connect: %v", err)
		return 1
	}
	defer testClient.Disconnect(ctx)

	return m.Run()
}

// startMongo converts a panic from a missing docker daemon into an error.
func startMongo(ctx context.Context) (container *mongodb.MongoDBContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()
	return mongodb.Run(ctx, "mongo:7")
}

// newDB returns a fresh database with indexes applied.
func newDB(t *testing.T) *mongo.Database {
	t.Helper()
	if testClient == nil {
		t.Skip("MongoDB container not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := testClient.Database("test_" + primitive.NewObjectID().Hex())
	if err := database.EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("failed to ensure indexes: %v", err)
	}
	t.Cleanup(func() { _ = db.Drop(context.Background()) })
	return db
}
