package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convenios/prioridades/internal/authz"
	"github.com/convenios/prioridades/internal/events"
	"github.com/convenios/prioridades/internal/priority"
	"github.com/convenios/prioridades/internal/priority/repository"
)

var refNow = time.Date(2024, time.March, 8, 10, 0, 0, 0, time.UTC)

type recorder struct {
	mu       sync.Mutex
	subjects []string
	events   []interface{}
	err      error
}

func (r *recorder) Publish(ctx context.Context, subject string, ev interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) Close() {}

func newTestService(t *testing.T, repo repository.Repository) (*Service, *recorder) {
	t.Helper()
	az, err := authz.NewAuthorizer()
	require.NoError(t, err)
	rec := &recorder{}
	n := 0
	var mu sync.Mutex
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	return New(repo, az,
		WithClock(func() time.Time { return refNow }),
		WithPublisher(rec),
		WithIDGenerator(ids),
	), rec
}

func input(protocol string, deadline string, docs ...string) priority.RegisterInput {
	return priority.RegisterInput{
		Protocol:    protocol,
		Number:      "N-" + protocol,
		Description: "Obra " + protocol,
		Deadline:    priority.MustParseDate(deadline),
		Documents:   docs,
	}
}

func TestRegister(t *testing.T) {
	svc, rec := newTestService(t, repository.NewMemoryRepo())
	v, err := svc.Register(context.Background(), "alice", input("P1", "2024-03-12", "Ofício", "  ", "Projeto"))
	require.NoError(t, err)

	assert.Equal(t, "alice", v.OwnerID)
	require.Len(t, v.Documents, 2)
	for i, d := range v.Documents {
		assert.Equal(t, priority.StatusMissing, d.Status)
		assert.Equal(t, v.ID, d.PriorityID)
		assert.Equal(t, i, d.Position)
	}
	assert.Equal(t, 0, v.Progress.Percentage)
	assert.Equal(t, 2, v.Progress.Missing)
	assert.Equal(t, priority.KindUrgent, v.Urgency.Kind)
	assert.Equal(t, "4 dias", v.Urgency.Label)
	assert.Equal(t, []string{events.SubjectPriorityRegistered}, rec.subjects)
}

func TestRegisterInvalid(t *testing.T) {
	svc, rec := newTestService(t, repository.NewMemoryRepo())
	_, err := svc.Register(context.Background(), "alice", priority.RegisterInput{Protocol: "P"})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, rec.subjects)
}

func TestRegisterWithoutPrincipalForbidden(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemoryRepo())
	_, err := svc.Register(context.Background(), "", input("P1", "2024-03-12"))
	require.ErrorIs(t, err, ErrForbidden)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	svc, rec := newTestService(t, repository.NewMemoryRepo())
	rec.err = errors.New("nats down")
	_, err := svc.Register(context.Background(), "alice", input("P1", "2024-03-12", "A"))
	require.NoError(t, err)
}

func TestListNewestFirstAndSearch(t *testing.T) {
	repo := repository.NewMemoryRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	clock := refNow
	svc.now = func() time.Time { clock = clock.Add(time.Minute); return clock }
	_, err := svc.Register(ctx, "alice", input("Escola", "2024-04-30", "A"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice", input("Ponte", "2024-03-01", "A", "B"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", input("Escola Bob", "2024-04-30"))
	require.NoError(t, err)

	all, err := svc.List(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ponte", all[0].Protocol)
	assert.Equal(t, "Escola", all[1].Protocol)
	assert.Len(t, all[0].Documents, 2)
	assert.Equal(t, priority.KindOverdue, all[0].Urgency.Kind)

	found, err := svc.List(ctx, "alice", "ESCOLA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Escola", found[0].Protocol)

	none, err := svc.List(ctx, "carol", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListManyPriorities(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemoryRepo())
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_, err := svc.Register(ctx, "alice", input(fmt.Sprintf("P%02d", i), "2024-06-01", "A", "B"))
		require.NoError(t, err)
	}
	views, err := svc.List(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, views, 25)
	for _, v := range views {
		require.NotNil(t, v)
		assert.Len(t, v.Documents, 2)
	}
}

func TestGetOwnership(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemoryRepo())
	ctx := context.Background()
	v, err := svc.Register(ctx, "alice", input("P1", "2024-03-20", "A"))
	require.NoError(t, err)

	got, err := svc.Get(ctx, "alice", v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, priority.KindWarning, got.Urgency.Kind)

	_, err = svc.Get(ctx, "bob", v.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.GetForReport(ctx, "bob", v.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, "alice", "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateDocumentStatus(t *testing.T) {
	svc, rec := newTestService(t, repository.NewMemoryRepo())
	ctx := context.Background()
	v, err := svc.Register(ctx, "alice", input("P1", "2024-03-20", "A", "B"))
	require.NoError(t, err)
	docID := v.Documents[0].ID

	d, err := svc.UpdateDocumentStatus(ctx, "alice", docID, priority.StatusRegistered)
	require.NoError(t, err)
	assert.Equal(t, priority.StatusRegistered, d.Status)

	got, err := svc.Get(ctx, "alice", v.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Progress.Percentage)

	require.Len(t, rec.events, 2)
	ev, ok := rec.events[1].(events.DocumentStatusChanged)
	require.True(t, ok)
	assert.Equal(t, priority.StatusMissing, ev.From)
	assert.Equal(t, priority.StatusRegistered, ev.To)

	// unchanged status is not published again
	_, err = svc.UpdateDocumentStatus(ctx, "alice", docID, priority.StatusRegistered)
	require.NoError(t, err)
	assert.Len(t, rec.events, 2)

	_, err = svc.UpdateDocumentStatus(ctx, "bob", docID, priority.StatusMissing)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.UpdateDocumentStatus(ctx, "alice", "nope", priority.StatusMissing)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateDocumentStatus(ctx, "alice", docID, priority.DocumentStatus("pronto"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateDocumentStatuses(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemoryRepo())
	ctx := context.Background()
	v, err := svc.Register(ctx, "alice", input("P1", "2024-03-20", "A", "B", "C", "D"))
	require.NoError(t, err)
	other, err := svc.Register(ctx, "alice", input("P2", "2024-03-20", "X"))
	require.NoError(t, err)

	got, err := svc.UpdateDocumentStatuses(ctx, "alice", v.ID, map[string]priority.DocumentStatus{
		v.Documents[0].ID: priority.StatusRegistered,
		v.Documents[1].ID: priority.StatusRegistered,
		v.Documents[2].ID: priority.StatusInProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, got.Progress.Percentage)
	assert.Equal(t, 1, got.Progress.InProgress)

	_, err = svc.UpdateDocumentStatuses(ctx, "alice", v.ID, map[string]priority.DocumentStatus{
		v.Documents[3].ID:     priority.StatusRegistered,
		other.Documents[0].ID: priority.StatusRegistered,
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	// nothing from the rejected batch was written
	after, err := svc.Get(ctx, "alice", v.ID)
	require.NoError(t, err)
	assert.Equal(t, priority.StatusMissing, after.Documents[3].Status)

	_, err = svc.UpdateDocumentStatuses(ctx, "bob", v.ID, map[string]priority.DocumentStatus{})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUrgencyUsesClock(t *testing.T) {
	svc, _ := newTestService(t, repository.NewMemoryRepo())
	u := svc.Urgency(priority.MustParseDate("2024-03-23"))
	assert.Equal(t, 15, u.DaysRemaining)
	assert.Equal(t, priority.KindWarning, u.Kind)
	assert.Equal(t, refNow, svc.Now())
}
