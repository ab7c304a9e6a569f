package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// TestContext returns a context bounded the way handler code bounds store calls.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// SetupTestDB connects to the MongoDB at SOLARHUB_TEST_MONGO_URI (default
// localhost) and returns a fresh database dropped at test cleanup. The test
// is skipped when no server answers.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("SOLARHUB_TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		t.Skipf("mongo unavailable: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("mongo unavailable: %v", err)
	}

	name := "solarhub_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	db := client.Database(name)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

// Fixtures provides helper methods for creating test data in any docstore.
type Fixtures struct {
	store docstore.Store
	t     *testing.T
}

// NewFixtures creates a new Fixtures instance writing through store.
func NewFixtures(t *testing.T, store docstore.Store) *Fixtures {
	t.Helper()
	return &Fixtures{store: store, t: t}
}

// CreateUser creates a profile with the given role and returns it with its ID.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		FullName:  fullName,
		Email:     strings.ToLower(strings.ReplaceAll(fullName, " ", ".")) + "@test.com",
		Role:      role,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.store.AddRecord(ctx, "users", u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateBuyer creates a buyer profile.
func (f *Fixtures) CreateBuyer(ctx context.Context, fullName string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, "buyer")
}

// CreateSeller creates a seller profile.
func (f *Fixtures) CreateSeller(ctx context.Context, fullName string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, "seller")
}

// CreateProject lists a project owned by ownerID, created at createdAt.
func (f *Fixtures) CreateProject(ctx context.Context, ownerID, name string, createdAt time.Time) models.Project {
	f.t.Helper()

	p := models.Project{
		ID:          primitive.NewObjectID(),
		OwnerID:     ownerID,
		Name:        name,
		Location:    "Test Valley",
		CapacityKW:  250,
		TokenPrice:  12.5,
		TokensTotal: 1000,
		Status:      "listed",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if _, err := f.store.AddRecord(ctx, "projects", p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// CreateTransaction records buyerID purchasing tokens of p at createdAt.
func (f *Fixtures) CreateTransaction(ctx context.Context, p models.Project, buyerID string, tokens int64, createdAt time.Time) models.Transaction {
	f.t.Helper()

	tx := models.Transaction{
		ID:          primitive.NewObjectID(),
		ProjectID:   p.ID.Hex(),
		ProjectName: p.Name,
		BuyerID:     buyerID,
		SellerID:    p.OwnerID,
		Tokens:      tokens,
		Amount:      float64(tokens) * p.TokenPrice,
		CreatedAt:   createdAt,
	}
	if _, err := f.store.AddRecord(ctx, "transactions", tx); err != nil {
		f.t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
