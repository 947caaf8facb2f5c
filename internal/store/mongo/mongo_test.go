package mongo_test

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"

	"medwise-api/internal/store/mongo"
	"medwise-api/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	_ = godotenv.Load("../../../.env")
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	db := os.Getenv("MONGODB_DATABASE")
	if db == "" {
		db = "medwise_test"
	}
	st, err := mongo.New(context.Background(), uri, db)
	if err != nil {
		t.Fatalf("mongo: %v", err)
	}
	t.Cleanup(st.Close)
	storetest.Run(t, st)
}
