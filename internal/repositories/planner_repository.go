package repositories

import (
	"context"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PlannerRepository defines the interface for planner task operations
type PlannerRepository interface {
	CreateTask(ctx context.Context, task *models.PlannerTask) error
	GetTasks(ctx context.Context, userID primitive.ObjectID) ([]models.PlannerTask, error)
	UpdateTask(ctx context.Context, id, userID primitive.ObjectID, req models.PlannerTaskRequest) (*models.PlannerTask, error)
	DeleteTask(ctx context.Context, id, userID primitive.ObjectID) error
	DeleteTasksByUser(ctx context.Context, userID primitive.ObjectID) error
}

// MongoPlannerRepository implements PlannerRepository for MongoDB
type MongoPlannerRepository struct {
	store ownedStore[models.PlannerTask]
}

func NewMongoPlannerRepository(db *mongo.Database) *MongoPlannerRepository {
	return &MongoPlannerRepository{store: newOwnedStore[models.PlannerTask](db, "planners")}
}

func (r *MongoPlannerRepository) CreateTask(ctx context.Context, task *models.PlannerTask) error {
	task.ID = primitive.NewObjectID()
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	return r.store.insert(ctx, task)
}

func (r *MongoPlannerRepository) GetTasks(ctx context.Context, userID primitive.ObjectID) ([]models.PlannerTask, error) {
	return r.store.list(ctx, userID, nil)
}

func (r *MongoPlannerRepository) UpdateTask(ctx context.Context, id, userID primitive.ObjectID, req models.PlannerTaskRequest) (*models.PlannerTask, error) {
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	set := bson.M{
		"title":       req.Title,
		"description": req.Description,
		"priority":    priority,
		"completed":   req.Completed,
		"updated_at":  time.Now(),
	}
	update := bson.M{"$set": set}
	if req.DueDate != nil {
		set["due_date"] = req.DueDate
	} else {
		update["$unset"] = bson.M{"due_date": ""}
	}
	return r.store.update(ctx, id, userID, update)
}

func (r *MongoPlannerRepository) DeleteTask(ctx context.Context, id, userID primitive.ObjectID) error {
	return r.store.delete(ctx, id, userID)
}

func (r *MongoPlannerRepository) DeleteTasksByUser(ctx context.Context, userID primitive.ObjectID) error {
	return r.store.deleteAllOwnedBy(ctx, userID)
}
