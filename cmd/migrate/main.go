package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoRepo "github.com/inventory-platform/ledger-service/internal/infrastructure/mongodb"
	outboxMongo "github.com/inventory-platform/ledger-service/pkg/outbox/mongodb"
)

// Index bootstrap tool. Run once per environment before starting the API so
// the unique SKU constraint and the query indexes exist ahead of traffic.

var (
	mongoURI = flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	dbName   = flag.String("db", "ledger", "Database name")
)

func main() {
	flag.Parse()

	log.Printf("Creating ledger indexes...")
	log.Printf("MongoDB URI: %s", *mongoURI)
	log.Printf("Database: %s", *dbName)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB successfully")

	db := client.Database(*dbName)

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"products", mongoRepo.NewProductRepository(db).EnsureIndexes},
		{"batches", mongoRepo.NewBatchRepository(db).EnsureIndexes},
		{"operation_logs", mongoRepo.NewOperationLogRepository(db).EnsureIndexes},
		{"outbox_events", outboxMongo.NewRepository(db).EnsureIndexes},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			log.Fatalf("Failed to create indexes for %s: %v", step.name, err)
		}
		log.Printf("Indexes ready: %s", step.name)
	}

	log.Println("All indexes created successfully")
}
