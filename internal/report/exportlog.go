package report

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Export is the persisted record of an archived report.
type Export struct {
	ReportID   string    `bson:"reportId" json:"reportId"`
	PriorityID string    `bson:"priorityId" json:"priorityId"`
	OwnerID    string    `bson:"ownerId" json:"ownerId"`
	Format     Format    `bson:"format" json:"format"`
	Key        string    `bson:"key" json:"key"`
	Size       int64     `bson:"size" json:"size"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	URL        string    `bson:"-" json:"url,omitempty"`
}

// ExportLog records archived reports.
type ExportLog interface {
	Save(ctx context.Context, e *Export) error
	// ListByPriority returns the exports of a priority, newest first.
	ListByPriority(ctx context.Context, priorityID string) ([]*Export, error)
}

// MongoExportLog stores exports in the report_exports collection.
type MongoExportLog struct {
	col *mongo.Collection
}

func NewMongoExportLog(ctx context.Context, db *mongo.Database) (*MongoExportLog, error) {
	col := db.Collection("report_exports")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reportId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "priorityId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create report_exports indexes: %w", err)
	}
	return &MongoExportLog{col: col}, nil
}

// Save upserts e by report id.
func (m *MongoExportLog) Save(ctx context.Context, e *Export) error {
	filter := bson.M{"reportId": e.ReportID}
	opts := options.Update().SetUpsert(true)
	if _, err := m.col.UpdateOne(ctx, filter, bson.M{"$set": e}, opts); err != nil {
		return fmt.Errorf("save report export: %w", err)
	}
	return nil
}

func (m *MongoExportLog) ListByPriority(ctx context.Context, priorityID string) ([]*Export, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{"priorityId": priorityID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*Export, 0)
	for cur.Next(ctx) {
		var e Export
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, cur.Err()
}

// MemoryExportLog keeps exports in process memory.
type MemoryExportLog struct {
	mu      sync.RWMutex
	exports map[string]*Export
}

func NewMemoryExportLog() *MemoryExportLog {
	return &MemoryExportLog{exports: make(map[string]*Export)}
}

func (m *MemoryExportLog) Save(ctx context.Context, e *Export) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.exports[e.ReportID] = &cp
	return nil
}

func (m *MemoryExportLog) ListByPriority(ctx context.Context, priorityID string) ([]*Export, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Export, 0)
	for _, e := range m.exports {
		if e.PriorityID == priorityID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
