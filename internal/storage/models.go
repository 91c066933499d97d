// models.go - Persistent document shapes

package storage

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task lifecycle statuses.
const (
	TaskStatusDraft     = "draft"
	TaskStatusActive    = "active"
	TaskStatusCompleted = "completed"
)

// ResultStatusPending marks an audit result created without AI analysis
// (batch path), awaiting later scoring.
const ResultStatusPending = "pending"

// Store is a physical retail location. Read-only from the pipeline's
// perspective.
type Store struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code      string             `bson:"store_code" json:"storeId"` // e.g. "S001", "BVI"; unique, used for batch filename matching
	Name      string             `bson:"name" json:"name"`
	Location  string             `bson:"location" json:"location"`
	Manager   string             `bson:"manager,omitempty" json:"manager,omitempty"`
	Active    bool               `bson:"active" json:"active"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// Category groups tasks by campaign type.
type Category struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}

// Task is an audit campaign comparing many stores against one standard image.
// CompletedStores is derived: the pipeline recomputes it from audit results
// and nothing else writes it.
type Task struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Code             string              `bson:"task_code" json:"taskId"` // e.g. "T-2025-001"; unique
	Title            string              `bson:"title" json:"title"`
	Description      string              `bson:"description,omitempty" json:"description,omitempty"`
	CategoryID       *primitive.ObjectID `bson:"category_id,omitempty" json:"categoryId,omitempty"`
	DueDate          *time.Time          `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	Status           string              `bson:"status" json:"status"`
	StandardImageURL string              `bson:"standard_image_url,omitempty" json:"standardImageUrl,omitempty"`
	TotalStores      int                 `bson:"total_stores" json:"totalStores"`
	CompletedStores  int                 `bson:"completed_stores" json:"completedStores"`
	CreatedAt        time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updatedAt"`
}

// AuditResult is one comparison outcome for a (task, store) pair. AIAnalysis
// and Issues hold serialized JSON; they are written once at creation and never
// updated. Score is nil only while status is pending.
type AuditResult struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TaskID         primitive.ObjectID `bson:"task_id" json:"taskId"`
	StoreID        primitive.ObjectID `bson:"store_id" json:"storeId"`
	ActualImageURL string             `bson:"actual_image_url" json:"actualImageUrl"`
	Score          *int               `bson:"score,omitempty" json:"score,omitempty"`
	Status         string             `bson:"status" json:"status"`
	AIAnalysis     string             `bson:"ai_analysis,omitempty" json:"aiAnalysis,omitempty"`
	Issues         string             `bson:"issues,omitempty" json:"issues,omitempty"`
	AuditDate      time.Time          `bson:"audit_date" json:"auditDate"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
}
