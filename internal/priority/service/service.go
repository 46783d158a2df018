package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/convenios/prioridades/internal/authz"
	"github.com/convenios/prioridades/internal/events"
	"github.com/convenios/prioridades/internal/priority"
	"github.com/convenios/prioridades/internal/priority/repository"
	"github.com/convenios/prioridades/pkg/logger"
	"github.com/convenios/prioridades/pkg/metrics"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = priority.ErrInvalidInput
)

// listConcurrency bounds the document loads running at once during List.
const listConcurrency = 8

// Authorizer is satisfied by *authz.Authorizer.
type Authorizer interface {
	IsAuthorized(userID string, action authz.Action, res authz.Resource) (bool, error)
}

// Service implements the priority use cases on top of a Repository.
type Service struct {
	repo      repository.Repository
	authz     Authorizer
	publisher events.Publisher
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// New returns a Service. az must not be nil.
func New(repo repository.Repository, az Authorizer, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		authz:     az,
		publisher: events.NopPublisher{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now is the reference instant used for every urgency computation.
func (s *Service) Now() time.Time { return s.now() }

// Urgency classifies deadline against the service clock.
func (s *Service) Urgency(deadline priority.Date) priority.Urgency {
	return priority.DeadlineUrgency(deadline, s.now())
}

// Register validates in and stores a new priority owned by ownerID with one
// document per name, all starting as missing.
func (s *Service) Register(ctx context.Context, ownerID string, in priority.RegisterInput) (*priority.View, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(ownerID, authz.ActionRegister, authz.Resource{}); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &priority.Priority{
		ID:          s.newID(),
		Protocol:    in.Protocol,
		Number:      in.Number,
		Description: in.Description,
		ReleaseDate: in.ReleaseDate,
		Deadline:    in.Deadline,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	names := in.DocumentNames()
	docs := make([]*priority.Document, 0, len(names))
	for i, name := range names {
		docs = append(docs, &priority.Document{
			ID:         s.newID(),
			PriorityID: p.ID,
			Name:       name,
			Status:     priority.StatusMissing,
			Position:   i,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if err := s.repo.Create(ctx, p, docs); err != nil {
		return nil, fmt.Errorf("register priority: %w", err)
	}
	metrics.PrioritiesRegistered.Inc()
	logger.Infof("priority %s registered by %s with %d documents", p.ID, ownerID, len(docs))
	s.publish(ctx, events.SubjectPriorityRegistered, events.PriorityRegistered{
		PriorityID: p.ID,
		OwnerID:    ownerID,
		Protocol:   p.Protocol,
		Deadline:   p.Deadline,
		Documents:  len(docs),
		At:         now,
	})
	return priority.NewView(p, docs, s.now()), nil
}

// List returns the owner's priorities matching search, newest first, each
// with its documents and indicators.
func (s *Service) List(ctx context.Context, ownerID, search string) ([]*priority.View, error) {
	if err := s.authorize(ownerID, authz.ActionList, authz.Resource{}); err != nil {
		return nil, err
	}
	all, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list priorities: %w", err)
	}
	matched := make([]*priority.Priority, 0, len(all))
	for _, p := range all {
		if p.Matches(search) {
			matched = append(matched, p)
		}
	}

	today := s.now()
	views := make([]*priority.View, len(matched))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, p := range matched {
		g.Go(func() error {
			docs, err := s.repo.ListDocuments(gctx, p.ID)
			if err != nil {
				return fmt.Errorf("list documents of %s: %w", p.ID, err)
			}
			views[i] = priority.NewView(p, docs, today)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// Get returns one priority with documents and indicators.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*priority.View, error) {
	return s.view(ctx, ownerID, id, authz.ActionView)
}

// GetForReport is Get checked against the export permission.
func (s *Service) GetForReport(ctx context.Context, ownerID, id string) (*priority.View, error) {
	return s.view(ctx, ownerID, id, authz.ActionExportReport)
}

func (s *Service) view(ctx context.Context, ownerID, id string, action authz.Action) (*priority.View, error) {
	p, err := s.load(ctx, ownerID, id, action)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.ListDocuments(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list documents of %s: %w", p.ID, err)
	}
	return priority.NewView(p, docs, s.now()), nil
}

// UpdateDocumentStatus sets the status of a single document.
func (s *Service) UpdateDocumentStatus(ctx context.Context, ownerID, docID string, status priority.DocumentStatus) (*priority.Document, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, priority.ErrInvalidStatus)
	}
	d, err := s.repo.GetDocument(ctx, docID)
	if err != nil {
		return nil, notFound(err, "document", docID)
	}
	p, err := s.load(ctx, ownerID, d.PriorityID, authz.ActionUpdateDocuments)
	if err != nil {
		return nil, err
	}
	if err := s.setStatus(ctx, p, d, status); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDocumentStatuses saves several statuses of one priority at once, as
// the edit dialog does. Every document must belong to the priority; nothing
// is written when one does not.
func (s *Service) UpdateDocumentStatuses(ctx context.Context, ownerID, priorityID string, statuses map[string]priority.DocumentStatus) (*priority.View, error) {
	for id, st := range statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: document %s: %v", ErrInvalidInput, id, priority.ErrInvalidStatus)
		}
	}
	p, err := s.load(ctx, ownerID, priorityID, authz.ActionUpdateDocuments)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.ListDocuments(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list documents of %s: %w", p.ID, err)
	}
	byID := make(map[string]*priority.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: document %s does not belong to priority %s", ErrInvalidInput, id, p.ID)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return byID[ids[i]].Position < byID[ids[j]].Position })
	for _, id := range ids {
		if err := s.setStatus(ctx, p, byID[id], statuses[id]); err != nil {
			return nil, err
		}
	}
	return priority.NewView(p, docs, s.now()), nil
}

// setStatus persists status on d and updates d in place. Unchanged statuses
// are not written.
func (s *Service) setStatus(ctx context.Context, p *priority.Priority, d *priority.Document, status priority.DocumentStatus) error {
	if d.Status == status {
		return nil
	}
	if err := s.repo.UpdateDocumentStatus(ctx, d.ID, status); err != nil {
		return notFound(err, "document", d.ID)
	}
	from := d.Status
	now := s.now().UTC()
	d.Status = status
	d.UpdatedAt = now
	metrics.DocumentStatusUpdates.WithLabelValues(string(status)).Inc()
	logger.Debugf("document %s of priority %s: %s -> %s", d.ID, p.ID, from, status)
	s.publish(ctx, events.SubjectDocumentStatusChange, events.DocumentStatusChanged{
		DocumentID: d.ID,
		PriorityID: p.ID,
		OwnerID:    p.OwnerID,
		From:       from,
		To:         status,
		At:         now,
	})
	return nil
}

func (s *Service) load(ctx context.Context, ownerID, id string, action authz.Action) (*priority.Priority, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "priority", id)
	}
	if err := s.authorize(ownerID, action, authz.Resource{ID: p.ID, OwnerID: p.OwnerID}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) authorize(userID string, action authz.Action, res authz.Resource) error {
	ok, err := s.authz.IsAuthorized(userID, action, res)
	if err != nil {
		return fmt.Errorf("authorize %s: %w", action, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrForbidden, action)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, subject string, ev interface{}) {
	if err := s.publisher.Publish(ctx, subject, ev); err != nil {
		logger.Warnf("publish %s: %v", subject, err)
	}
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return err
}
