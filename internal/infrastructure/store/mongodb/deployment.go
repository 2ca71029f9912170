package mongodb

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"diagram2code/internal/domain/entity"
	"diagram2code/internal/domain/repository"
	"diagram2code/internal/infrastructure/metrics"
)

type MongoDeploymentRepo struct {
	col *mongo.Collection
}

func NewMongoDeploymentRepo(ctx context.Context, db *mongo.Database) repository.DeploymentRepository {
	col := db.Collection("deployments")

	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{bson.E{Key: "conversion_id", Value: 1}}},
		{Keys: bson.D{bson.E{Key: "stack_name", Value: 1}}, Options: options.Index().SetUnique(true)},
	})

	return &MongoDeploymentRepo{col: col}
}

func (r *MongoDeploymentRepo) Create(ctx context.Context, d *entity.Deployment) error {
	metrics.IncStoreOp(storeName, "put")

	if _, err := r.col.InsertOne(ctx, d); err != nil {
		metrics.IncError("mongo_deployment_repo", "create_error")
		return fmt.Errorf("insert deployment %s: %w", d.ID, err)
	}
	return nil
}

func (r *MongoDeploymentRepo) Update(ctx context.Context, d *entity.Deployment) error {
	metrics.IncStoreOp(storeName, "put")

	d.UpdatedAt = time.Now()
	res, err := r.col.ReplaceOne(ctx, bson.M{"id": d.ID}, d)
	if err != nil {
		metrics.IncError("mongo_deployment_repo", "update_error")
		return fmt.Errorf("replace deployment %s: %w", d.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("deployment %s: %w", d.ID, entity.ErrNotFound)
	}
	return nil
}

func (r *MongoDeploymentRepo) ListByConversion(ctx context.Context, conversionID string) ([]*entity.Deployment, error) {
	metrics.IncStoreOp(storeName, "list")

	opts := options.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"conversion_id": conversionID}, opts)
	if err != nil {
		metrics.IncError("mongo_deployment_repo", "list_error")
		return nil, fmt.Errorf("list deployments for %s: %w", conversionID, err)
	}
	defer func() {
		err := cur.Close(ctx)
		if err != nil {
			log.Printf("close cursor err: %s", err)
		}
	}()

	deployments := []*entity.Deployment{}
	if err := cur.All(ctx, &deployments); err != nil {
		metrics.IncError("mongo_deployment_repo", "list_decode_error")
		return nil, fmt.Errorf("decode deployments: %w", err)
	}
	return deployments, nil
}

func (r *MongoDeploymentRepo) DeleteByConversion(ctx context.Context, conversionID string) error {
	metrics.IncStoreOp(storeName, "delete")

	if _, err := r.col.DeleteMany(ctx, bson.M{"conversion_id": conversionID}); err != nil {
		metrics.IncError("mongo_deployment_repo", "delete_error")
		return fmt.Errorf("delete deployments for %s: %w", conversionID, err)
	}
	return nil
}
