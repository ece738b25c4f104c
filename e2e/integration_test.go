//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/loam/dynamo"
	"github.com/jacentio/loam/entity"
	"github.com/jacentio/loam/event"
)

// Test configuration
const (
	awsProfile = "jacent-alpha-cp"

	// Table names - unique per test run to avoid conflicts
	tablePrefix = "loam-e2e-test"
)

var (
	testID string
	prefix string

	ddbClient *dynamodb.Client
)

// --- Test Entity Types ---

var (
	userType = entity.Define(entity.Definition{Name: "user"})

	postType = entity.Define(entity.Definition{
		Name:     "post",
		Fillable: []string{"title", "body"},
	})

	commentType = entity.Define(entity.Definition{Name: "comment"})

	tagType = entity.Define(entity.Definition{Name: "tag"})
)

func init() {
	userType.Relation("posts", func(e *entity.Entity) *entity.Relation {
		return e.HasMany(postType)
	})

	postType.
		Relation("author", func(e *entity.Entity) *entity.Relation {
			return e.BelongsTo(userType, "author", "user_id")
		}).
		Relation("comments", func(e *entity.Entity) *entity.Relation {
			return e.HasMany(commentType)
		}).
		Relation("tags", func(e *entity.Entity) *entity.Relation {
			return e.BelongsToMany(tagType, "", "", "")
		})

	commentType.Relation("post", func(e *entity.Entity) *entity.Relation {
		return e.BelongsTo(postType, "post")
	})
}

// Collections backed by test tables.
var collections = []string{"users", "posts", "comments", "tags", "post_tag"}

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	// Generate unique test ID
	testID = uuid.New().String()[:8]
	prefix = fmt.Sprintf("%s-%s-", tablePrefix, testID)

	fmt.Printf("Test ID: %s\n", testID)
	fmt.Printf("Table prefix: %s\n", prefix)

	// Initialize AWS client (uses region from profile config)
	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithSharedConfigProfile(awsProfile),
	)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}

	ddbClient = dynamodb.NewFromConfig(cfg)

	// Create tables
	if err := createTables(ctx); err != nil {
		fmt.Printf("Failed to create tables: %v\n", err)
		os.Exit(1)
	}

	// Wire the mapping layer to the test tables.
	conn := dynamo.New(ddbClient, dynamo.Config{TablePrefix: prefix})
	entity.SetResolver(dynamo.NewResolver(conn))
	entity.SetDispatcher(event.New())

	// Run tests
	code := m.Run()

	// Cleanup tables
	if err := deleteTables(ctx); err != nil {
		fmt.Printf("Failed to delete tables: %v\n", err)
	}

	os.Exit(code)
}

func createTables(ctx context.Context) error {
	fmt.Println("Creating test tables...")

	for _, collection := range collections {
		tableName := prefix + collection
		_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(tableName),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			},
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		if err != nil {
			return fmt.Errorf("create table %s: %w", tableName, err)
		}
	}

	// Wait for all tables to be active
	for _, collection := range collections {
		waiter := dynamodb.NewTableExistsWaiter(ddbClient)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(prefix + collection),
		}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for table %s: %w", prefix+collection, err)
		}
	}

	fmt.Println("All tables created and active")
	return nil
}

func deleteTables(ctx context.Context) error {
	fmt.Println("Deleting test tables...")

	for _, collection := range collections {
		_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(prefix + collection),
		})
		if err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", prefix+collection, err)
		}
	}

	fmt.Println("Tables deleted")
	return nil
}

// --- CRUD Tests ---

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()

	post, err := postType.Create(ctx, entity.Document{
		"title": "Integration",
		"body":  "end to end",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !post.Exists() {
		t.Fatal("created post should be persisted")
	}
	if post.Key() == nil {
		t.Fatal("created post should carry a generated identity")
	}

	found, err := postType.Find(ctx, post.Key())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found == nil {
		t.Fatal("Find returned nil for a just-created post")
	}
	if v, _ := found.Field("title"); v != "Integration" {
		t.Errorf("title = %v, want Integration", v)
	}
	created, _ := found.Field("created_at")
	updated, _ := found.Field("updated_at")
	if created == nil || created != updated {
		t.Errorf("first save timestamps: created=%v updated=%v, want equal", created, updated)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()

	post, err := postType.Create(ctx, entity.Document{"title": "before"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	post.Set("title", "after")
	if !post.IsDirty("title") {
		t.Fatal("title should be dirty before save")
	}
	if _, err := post.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if post.IsDirty() {
		t.Error("save should sync the snapshot")
	}

	found, err := postType.Find(ctx, post.Key())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if v, _ := found.Field("title"); v != "after" {
		t.Errorf("title = %v, want after", v)
	}
}

func TestHasManyAndBelongsTo(t *testing.T) {
	ctx := context.Background()

	user, err := userType.Create(ctx, entity.Document{"name": "Ada"})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	for i := 0; i < 2; i++ {
		post := postType.New().Fill(entity.Document{"title": fmt.Sprintf("post %d", i)})
		post.SetField("user_id", user.Key())
		if _, err := post.Save(ctx); err != nil {
			t.Fatalf("Save post: %v", err)
		}
	}

	got, err := user.Get(ctx, "posts")
	if err != nil {
		t.Fatalf("Get(posts): %v", err)
	}
	posts := got.(entity.Collection)
	if len(posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(posts))
	}

	owner, err := posts[0].Get(ctx, "author")
	if err != nil {
		t.Fatalf("Get(author): %v", err)
	}
	author := owner.(*entity.Entity)
	if author.Key() != user.Key() {
		t.Errorf("author key = %v, want %v", author.Key(), user.Key())
	}
}

func TestBelongsToMany(t *testing.T) {
	ctx := context.Background()

	post, err := postType.Create(ctx, entity.Document{"title": "tagged"})
	if err != nil {
		t.Fatalf("Create post: %v", err)
	}
	tag, err := tagType.Create(ctx, entity.Document{"label": "go"})
	if err != nil {
		t.Fatalf("Create tag: %v", err)
	}

	// Join rows are plain documents in the join collection.
	conn, err := dynamo.NewResolver(dynamo.New(ddbClient, dynamo.Config{TablePrefix: prefix})).Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	_, err = conn.Query().Collection("post_tag").Save(ctx, entity.Document{
		"post_id": post.Key(),
		"tag_id":  tag.Key(),
	})
	if err != nil {
		t.Fatalf("Save join row: %v", err)
	}

	got, err := post.Get(ctx, "tags")
	if err != nil {
		t.Fatalf("Get(tags): %v", err)
	}
	tags := got.(entity.Collection)
	if len(tags) != 1 || tags[0].Key() != tag.Key() {
		t.Errorf("tags = %v, want [%v]", tags.Keys(), tag.Key())
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	post, err := postType.Create(ctx, entity.Document{"title": "doomed"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := post.Delete(ctx)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	found, err := postType.Find(ctx, post.Key())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found != nil {
		t.Error("deleted post should not be found")
	}
}

func TestCreatingListenerCancels(t *testing.T) {
	ctx := context.Background()

	commentType.Creating(func(payload any) any {
		e := payload.(*entity.Entity)
		if v, _ := e.Field("body"); v == "spam" {
			return false
		}
		return nil
	})

	spam := commentType.New()
	spam.Set("body", "spam")
	saved, err := spam.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved || spam.Exists() {
		t.Error("creating listener should have cancelled the insert")
	}

	ok := commentType.New()
	ok.Set("body", "fine")
	saved, err = ok.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !saved || !ok.Exists() {
		t.Error("non-spam comment should persist")
	}
}
