package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/convenios/prioridades/internal/priority"
)

// MemoryRepo keeps everything in process memory. It backs the unit tests and
// is the fallback when no database is reachable.
type MemoryRepo struct {
	mu         sync.RWMutex
	priorities map[string]*priority.Priority
	documents  map[string]*priority.Document
	byPriority map[string][]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		priorities: make(map[string]*priority.Priority),
		documents:  make(map[string]*priority.Document),
		byPriority: make(map[string][]string),
	}
}

func (m *MemoryRepo) Create(ctx context.Context, p *priority.Priority, docs []*priority.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		return fmt.Errorf("create priority: empty id")
	}
	if _, ok := m.priorities[p.ID]; ok {
		return fmt.Errorf("create priority %s: already exists", p.ID)
	}
	// validate every document before writing anything
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if d.ID == "" || seen[d.ID] {
			return fmt.Errorf("create document %q: empty or duplicate id", d.ID)
		}
		if _, ok := m.documents[d.ID]; ok {
			return fmt.Errorf("create document %s: already exists", d.ID)
		}
		seen[d.ID] = true
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	cp := *p
	m.priorities[p.ID] = &cp
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.CreatedAt.IsZero() {
			d.CreatedAt = p.CreatedAt
		}
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = d.CreatedAt
		}
		dc := *d
		dc.PriorityID = p.ID
		m.documents[d.ID] = &dc
		ids = append(ids, d.ID)
	}
	m.byPriority[p.ID] = ids
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*priority.Priority, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.priorities[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]*priority.Priority, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*priority.Priority, 0)
	for _, p := range m.priorities {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepo) ListDocuments(ctx context.Context, priorityID string) ([]*priority.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byPriority[priorityID]
	out := make([]*priority.Document, 0, len(ids))
	for _, id := range ids {
		dc := *m.documents[id]
		out = append(out, &dc)
	}
	return out, nil
}

func (m *MemoryRepo) GetDocument(ctx context.Context, id string) (*priority.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.documents[id]; ok {
		dc := *d
		return &dc, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) UpdateDocumentStatus(ctx context.Context, id string, status priority.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	return nil
}
