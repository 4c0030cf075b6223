package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/beka-birhanu/maze-swarm/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrRunNotFound = errors.New("run report not found")

// RunRepo archives the reports of simulation runs, from submission to their end.
type RunRepo struct {
	collection *mongo.Collection
}

func NewRunRepo(client *mongo.Client, dbName, collectionName string) *RunRepo {
	return &RunRepo{collection: client.Database(dbName).Collection(collectionName)}
}

// EnsureIndexes indexes reports by operator, newest first.
func (r *RunRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "operatorId", Value: 1}, {Key: "startedAt", Value: -1}},
	})
	return err
}

// Save stores the report, replacing an earlier one with the same id.
func (r *RunRepo) Save(ctx context.Context, report *domain.RunReport) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": report.ID}, report, opts); err != nil {
		return fmt.Errorf("saving run %s: %w", report.ID, err)
	}
	return nil
}

func (r *RunRepo) ByID(ctx context.Context, id uuid.UUID) (*domain.RunReport, error) {
	var report domain.RunReport
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&report); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	return &report, nil
}

// ByOperator lists the newest reports of an operator.
func (r *RunRepo) ByOperator(ctx context.Context, operatorID uuid.UUID, limit int64) ([]domain.RunReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"operatorId": operatorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []domain.RunReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("decoding runs: %w", err)
	}
	return reports, nil
}

func (r *RunRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrRunNotFound
	}
	return nil
}
