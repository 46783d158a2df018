package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/convenios/prioridades/internal/priority"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores priorities and documents in two collections. Records are
// addressed by their string "id" field; Mongo's own _id is left to the driver.
type MongoRepo struct {
	priorities *mongo.Collection
	documents  *mongo.Collection
}

// NewMongoRepo wires the repo to db and ensures its indexes.
func NewMongoRepo(ctx context.Context, db *mongo.Database) (*MongoRepo, error) {
	r := &MongoRepo{
		priorities: db.Collection("priorities"),
		documents:  db.Collection("documents"),
	}
	if _, err := r.priorities.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}); err != nil {
		return nil, fmt.Errorf("priorities indexes: %w", err)
	}
	if _, err := r.documents.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "prioridade_id", Value: 1}, {Key: "posicao", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("documents indexes: %w", err)
	}
	return r, nil
}

// Create inserts the priority and then its documents. Standalone servers have
// no multi-document transactions, so a failed document insert is undone by
// deleting whatever was written.
func (m *MongoRepo) Create(ctx context.Context, p *priority.Priority, docs []*priority.Document) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if _, err := m.priorities.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert priority: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		d.PriorityID = p.ID
		if d.CreatedAt.IsZero() {
			d.CreatedAt = p.CreatedAt
		}
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = d.CreatedAt
		}
		batch = append(batch, d)
	}
	if _, err := m.documents.InsertMany(ctx, batch); err != nil {
		// compensate on a fresh context: ctx may be the reason we failed
		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = m.documents.DeleteMany(cctx, bson.M{"prioridade_id": p.ID})
		_, _ = m.priorities.DeleteOne(cctx, bson.M{"id": p.ID})
		return fmt.Errorf("insert documents: %w", err)
	}
	return nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*priority.Priority, error) {
	var p priority.Priority
	if err := m.priorities.FindOne(ctx, bson.M{"id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (m *MongoRepo) ListByOwner(ctx context.Context, ownerID string) ([]*priority.Priority, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: -1}})
	cur, err := m.priorities.Find(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*priority.Priority{}
	for cur.Next(ctx) {
		var p priority.Priority
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}

func (m *MongoRepo) ListDocuments(ctx context.Context, priorityID string) ([]*priority.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "posicao", Value: 1}})
	cur, err := m.documents.Find(ctx, bson.M{"prioridade_id": priorityID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*priority.Document{}
	for cur.Next(ctx) {
		var d priority.Document
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

func (m *MongoRepo) GetDocument(ctx context.Context, id string) (*priority.Document, error) {
	var d priority.Document
	if err := m.documents.FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) UpdateDocumentStatus(ctx context.Context, id string, status priority.DocumentStatus) error {
	set := bson.M{"status": status, "updated_at": time.Now().UTC()}
	res, err := m.documents.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
