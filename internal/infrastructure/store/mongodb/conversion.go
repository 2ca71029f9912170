package mongodb

import (
	"context"
	"errors"
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

const storeName = "mongo"

type MongoConversionRepo struct {
	col *mongo.Collection
}

func NewMongoConversionRepo(ctx context.Context, db *mongo.Database) repository.ConversionRepository {
	col := db.Collection("conversions")

	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{bson.E{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{bson.E{Key: "created_at", Value: -1}}},
	})

	return &MongoConversionRepo{col: col}
}

func (r *MongoConversionRepo) Create(ctx context.Context, c *entity.Conversion) error {
	metrics.IncStoreOp(storeName, "put")

	if _, err := r.col.InsertOne(ctx, c); err != nil {
		metrics.IncError("mongo_conversion_repo", "create_error")
		return fmt.Errorf("insert conversion %s: %w", c.ID, err)
	}
	return nil
}

func (r *MongoConversionRepo) GetByID(ctx context.Context, id string) (*entity.Conversion, error) {
	metrics.IncStoreOp(storeName, "get")

	var c entity.Conversion
	err := r.col.FindOne(ctx, bson.M{"id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("conversion %s: %w", id, entity.ErrNotFound)
		}
		metrics.IncError("mongo_conversion_repo", "get_error")
		return nil, fmt.Errorf("find conversion %s: %w", id, err)
	}
	return &c, nil
}

func (r *MongoConversionRepo) List(ctx context.Context) ([]*entity.Conversion, error) {
	metrics.IncStoreOp(storeName, "list")

	opts := options.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.D{}, opts)
	if err != nil {
		metrics.IncError("mongo_conversion_repo", "list_error")
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer func() {
		err := cur.Close(ctx)
		if err != nil {
			log.Printf("close cursor err: %s", err)
		}
	}()

	conversions := []*entity.Conversion{}
	for cur.Next(ctx) {
		var c entity.Conversion
		if err := cur.Decode(&c); err != nil {
			metrics.IncError("mongo_conversion_repo", "list_decode_error")
			return nil, fmt.Errorf("decode conversion: %w", err)
		}
		conversions = append(conversions, &c)
	}
	if err := cur.Err(); err != nil {
		metrics.IncError("mongo_conversion_repo", "list_cursor_error")
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return conversions, nil
}

func (r *MongoConversionRepo) Update(ctx context.Context, c *entity.Conversion) error {
	metrics.IncStoreOp(storeName, "put")

	c.UpdatedAt = time.Now()
	res, err := r.col.ReplaceOne(ctx, bson.M{"id": c.ID}, c)
	if err != nil {
		metrics.IncError("mongo_conversion_repo", "update_error")
		return fmt.Errorf("replace conversion %s: %w", c.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("conversion %s: %w", c.ID, entity.ErrNotFound)
	}
	return nil
}

func (r *MongoConversionRepo) Delete(ctx context.Context, id string) error {
	metrics.IncStoreOp(storeName, "delete")

	res, err := r.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		metrics.IncError("mongo_conversion_repo", "delete_error")
		return fmt.Errorf("delete conversion %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("conversion %s: %w", id, entity.ErrNotFound)
	}
	return nil
}
