package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/convenios/prioridades/internal/priority"
)

const (
	firestorePriorities = "prioridades"
	firestoreDocuments  = "documentos"
)

// priorityRecord is the Firestore shape of a priority. Dates are kept as
// "YYYY-MM-DD" strings so they never pick up a timezone.
type priorityRecord struct {
	Protocol    string    `firestore:"protocolo"`
	Number      string    `firestore:"numero_prioridade"`
	Description string    `firestore:"descricao"`
	ReleaseDate string    `firestore:"data_liberacao"`
	Deadline    string    `firestore:"prazo_maximo"`
	OwnerID     string    `firestore:"user_id"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

type documentRecord struct {
	PriorityID string    `firestore:"prioridade_id"`
	Name       string    `firestore:"nome_documento"`
	Status     string    `firestore:"status"`
	Position   int       `firestore:"posicao"`
	CreatedAt  time.Time `firestore:"created_at"`
	UpdatedAt  time.Time `firestore:"updated_at"`
}

// FirestoreRepo implements Repository on Cloud Firestore. The record id is
// the Firestore document id.
type FirestoreRepo struct {
	client *firestore.Client
}

func NewFirestoreRepo(client *firestore.Client) *FirestoreRepo {
	return &FirestoreRepo{client: client}
}

func (r *FirestoreRepo) Create(ctx context.Context, p *priority.Priority, docs []*priority.Document) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	for _, d := range docs {
		d.PriorityID = p.ID
		if d.CreatedAt.IsZero() {
			d.CreatedAt = p.CreatedAt
		}
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = d.CreatedAt
		}
	}
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(r.client.Collection(firestorePriorities).Doc(p.ID), toPriorityRecord(p)); err != nil {
			return err
		}
		for _, d := range docs {
			if err := tx.Create(r.client.Collection(firestoreDocuments).Doc(d.ID), toDocumentRecord(d)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create priority %s: %w", p.ID, err)
	}
	return nil
}

func (r *FirestoreRepo) Get(ctx context.Context, id string) (*priority.Priority, error) {
	snap, err := r.client.Collection(firestorePriorities).Doc(id).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromPrioritySnapshot(snap)
}

func (r *FirestoreRepo) ListByOwner(ctx context.Context, ownerID string) ([]*priority.Priority, error) {
	snaps, err := r.client.Collection(firestorePriorities).
		Where("user_id", "==", ownerID).
		OrderBy("created_at", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]*priority.Priority, 0, len(snaps))
	for _, s := range snaps {
		p, err := fromPrioritySnapshot(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *FirestoreRepo) ListDocuments(ctx context.Context, priorityID string) ([]*priority.Document, error) {
	snaps, err := r.client.Collection(firestoreDocuments).
		Where("prioridade_id", "==", priorityID).
		OrderBy("posicao", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]*priority.Document, 0, len(snaps))
	for _, s := range snaps {
		d, err := fromDocumentSnapshot(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *FirestoreRepo) GetDocument(ctx context.Context, id string) (*priority.Document, error) {
	snap, err := r.client.Collection(firestoreDocuments).Doc(id).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromDocumentSnapshot(snap)
}

func (r *FirestoreRepo) UpdateDocumentStatus(ctx context.Context, id string, status priority.DocumentStatus) error {
	ref := r.client.Collection(firestoreDocuments).Doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if snap != nil && !snap.Exists() {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(status)},
			{Path: "updated_at", Value: time.Now().UTC()},
		})
	})
}

func toPriorityRecord(p *priority.Priority) priorityRecord {
	return priorityRecord{
		Protocol:    p.Protocol,
		Number:      p.Number,
		Description: p.Description,
		ReleaseDate: p.ReleaseDate.String(),
		Deadline:    p.Deadline.String(),
		OwnerID:     p.OwnerID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toDocumentRecord(d *priority.Document) documentRecord {
	return documentRecord{
		PriorityID: d.PriorityID,
		Name:       d.Name,
		Status:     string(d.Status),
		Position:   d.Position,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func fromPrioritySnapshot(s *firestore.DocumentSnapshot) (*priority.Priority, error) {
	var rec priorityRecord
	if err := s.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode priority %s: %w", s.Ref.ID, err)
	}
	p := &priority.Priority{
		ID:          s.Ref.ID,
		Protocol:    rec.Protocol,
		Number:      rec.Number,
		Description: rec.Description,
		OwnerID:     rec.OwnerID,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if err := p.ReleaseDate.UnmarshalText([]byte(rec.ReleaseDate)); err != nil {
		return nil, err
	}
	if err := p.Deadline.UnmarshalText([]byte(rec.Deadline)); err != nil {
		return nil, err
	}
	return p, nil
}

func fromDocumentSnapshot(s *firestore.DocumentSnapshot) (*priority.Document, error) {
	var rec documentRecord
	if err := s.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", s.Ref.ID, err)
	}
	st, err := priority.ParseDocumentStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", s.Ref.ID, err)
	}
	return &priority.Document{
		ID:         s.Ref.ID,
		PriorityID: rec.PriorityID,
		Name:       rec.Name,
		Status:     st,
		Position:   rec.Position,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}
