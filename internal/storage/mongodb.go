// mongodb.go - MongoDB connection and repositories

package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bosocmputer/display_audit_gemini/configs"
	"github.com/bosocmputer/display_audit_gemini/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var mongoClient *mongo.Client
var mongoDB *mongo.Database

const queryTimeout = 5 * time.Second

// InitMongoDB initializes the MongoDB connection and indexes
func InitMongoDB() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(configs.MONGO_URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	mongoClient = client
	mongoDB = client.Database(configs.MONGO_DB_NAME)

	if err := ensureIndexes(ctx, mongoDB); err != nil {
		return err
	}

	log.Println("✅ Connected to MongoDB successfully!")
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	_, err := db.Collection("stores").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "store_code", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("failed to create stores index: %w", err)
	}

	_, err = db.Collection("tasks").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "task_code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create tasks index: %w", err)
	}

	_, err = db.Collection("audit_results").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "task_id", Value: 1}, {Key: "audit_date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit_results index: %w", err)
	}
	return nil
}

// GetMongoDB returns the MongoDB database instance
func GetMongoDB() *mongo.Database {
	return mongoDB
}

// CloseMongoDB closes the MongoDB connection
func CloseMongoDB() {
	if mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
		log.Println("MongoDB connection closed")
	}
}

// Repository exposes the typed persistence operations the handlers and the
// audit pipeline use. All methods honor the caller's context with a bounded
// per-query timeout.
type Repository struct {
	db *mongo.Database
}

// NewRepository wraps a database handle.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{db: db}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// --- Stores ---

func (r *Repository) ListStores(ctx context.Context) ([]Store, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.db.Collection("stores").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer cursor.Close(ctx)

	stores := []Store{}
	if err := cursor.All(ctx, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *Repository) GetStore(ctx context.Context, id primitive.ObjectID) (*Store, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var store Store
	err := r.db.Collection("stores").FindOne(ctx, bson.M{"_id": id}).Decode(&store)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: store %s", common.ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("failed to query store: %w", err)
	}
	return &store, nil
}

// GetStoreByCode looks a store up by its external code (e.g. "BVI").
func (r *Repository) GetStoreByCode(ctx context.Context, code string) (*Store, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var store Store
	err := r.db.Collection("stores").FindOne(ctx, bson.M{"store_code": code}).Decode(&store)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: store code %s", common.ErrNotFound, code)
		}
		return nil, fmt.Errorf("failed to query store by code: %w", err)
	}
	return &store, nil
}

func (r *Repository) CreateStore(ctx context.Context, store *Store) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	store.ID = primitive.NewObjectID()
	store.CreatedAt = time.Now()
	if _, err := r.db.Collection("stores").InsertOne(ctx, store); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: store code %s already exists", common.ErrConflict, store.Code)
		}
		return fmt.Errorf("%w: failed to create store: %v", common.ErrPersistence, err)
	}
	return nil
}

func (r *Repository) UpdateStore(ctx context.Context, id primitive.ObjectID, update bson.M) (*Store, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var store Store
	err := r.db.Collection("stores").FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&store)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: store %s", common.ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("%w: failed to update store: %v", common.ErrPersistence, err)
	}
	return &store, nil
}

func (r *Repository) DeleteStore(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Collection("stores").DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("%w: failed to delete store: %v", common.ErrPersistence, err)
	}
	return nil
}

// --- Categories ---

func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.db.Collection("categories").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer cursor.Close(ctx)

	categories := []Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category *Category) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	category.ID = primitive.NewObjectID()
	category.CreatedAt = time.Now()
	if _, err := r.db.Collection("categories").InsertOne(ctx, category); err != nil {
		return fmt.Errorf("%w: failed to create category: %v", common.ErrPersistence, err)
	}
	return nil
}

func (r *Repository) UpdateCategory(ctx context.Context, id primitive.ObjectID, update bson.M) (*Category, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var category Category
	err := r.db.Collection("categories").FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&category)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: category %s", common.ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("%w: failed to update category: %v", common.ErrPersistence, err)
	}
	return &category, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Collection("categories").DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("%w: failed to delete category: %v", common.ErrPersistence, err)
	}
	return nil
}

// --- Tasks ---

func (r *Repository) ListTasks(ctx context.Context) ([]Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.db.Collection("tasks").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *Repository) GetTask(ctx context.Context, id primitive.ObjectID) (*Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var task Task
	err := r.db.Collection("tasks").FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: task %s", common.ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return &task, nil
}

func (r *Repository) CreateTask(ctx context.Context, task *Task) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = now
	task.UpdatedAt = now
	if _, err := r.db.Collection("tasks").InsertOne(ctx, task); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: task code %s already exists", common.ErrConflict, task.Code)
		}
		return fmt.Errorf("%w: failed to create task: %v", common.ErrPersistence, err)
	}
	return nil
}

func (r *Repository) UpdateTask(ctx context.Context, id primitive.ObjectID, update bson.M) (*Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	update["updated_at"] = time.Now()

	var task Task
	err := r.db.Collection("tasks").FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: task %s", common.ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("%w: failed to update task: %v", common.ErrPersistence, err)
	}
	return &task, nil
}

// DeleteTask removes a task and cascades to its audit results; the task owns
// them.
func (r *Repository) DeleteTask(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Collection("audit_results").DeleteMany(ctx, bson.M{"task_id": id}); err != nil {
		return fmt.Errorf("%w: failed to delete task results: %v", common.ErrPersistence, err)
	}
	if _, err := r.db.Collection("tasks").DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("%w: failed to delete task: %v", common.ErrPersistence, err)
	}
	return nil
}

// RecomputeTaskProgress recounts the task's non-pending results and stores the
// count. Always a full recount, never an increment, so concurrent uploads
// self-heal on the next recompute.
func (r *Repository) RecomputeTaskProgress(ctx context.Context, taskID primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	completed, err := r.db.Collection("audit_results").CountDocuments(ctx, bson.M{
		"task_id": taskID,
		"status":  bson.M{"$ne": ResultStatusPending},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to count task results: %v", common.ErrPersistence, err)
	}

	_, err = r.db.Collection("tasks").UpdateOne(ctx,
		bson.M{"_id": taskID},
		bson.M{"$set": bson.M{"completed_stores": completed, "updated_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("%w: failed to update task progress: %v", common.ErrPersistence, err)
	}
	return nil
}

// --- Audit results ---

func (r *Repository) ListAuditResults(ctx context.Context) ([]AuditResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.db.Collection("audit_results").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "audit_date", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query audit results: %w", err)
	}
	defer cursor.Close(ctx)

	results := []AuditResult{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// ListAuditResultsByTask returns a task's results, most recent audit first.
// With no per-(task,store) uniqueness constraint, "most recent first" is the
// read semantics for repeated uploads of the same store.
func (r *Repository) ListAuditResultsByTask(ctx context.Context, taskID primitive.ObjectID) ([]AuditResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.db.Collection("audit_results").Find(ctx,
		bson.M{"task_id": taskID},
		options.Find().SetSort(bson.D{{Key: "audit_date", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query audit results: %w", err)
	}
	defer cursor.Close(ctx)

	results := []AuditResult{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Repository) CreateAuditResult(ctx context.Context, result *AuditResult) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result.ID = primitive.NewObjectID()
	result.CreatedAt = time.Now()
	if result.AuditDate.IsZero() {
		result.AuditDate = result.CreatedAt
	}
	if _, err := r.db.Collection("audit_results").InsertOne(ctx, result); err != nil {
		return fmt.Errorf("%w: failed to create audit result: %v", common.ErrPersistence, err)
	}
	return nil
}
