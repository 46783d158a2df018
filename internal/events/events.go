// Package events publishes domain events about priorities.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/convenios/prioridades/internal/priority"
)

const (
	SubjectPriorityRegistered   = "priority.registered"
	SubjectDocumentStatusChange = "document.status_changed"
)

// PriorityRegistered is emitted once a priority and its documents are stored.
type PriorityRegistered struct {
	PriorityID string        `json:"priorityId"`
	OwnerID    string        `json:"ownerId"`
	Protocol   string        `json:"protocolo"`
	Deadline   priority.Date `json:"prazo_maximo"`
	Documents  int           `json:"documents"`
	At         time.Time     `json:"at"`
}

// DocumentStatusChanged is emitted for every document whose status changed.
type DocumentStatusChanged struct {
	DocumentID string                  `json:"documentId"`
	PriorityID string                  `json:"priorityId"`
	OwnerID    string                  `json:"ownerId"`
	From       priority.DocumentStatus `json:"from"`
	To         priority.DocumentStatus `json:"to"`
	At         time.Time               `json:"at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, subject string, event interface{}) error
	Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, subject string, event interface{}) error { return nil }
func (NopPublisher) Close() {}

// conn is the subset of *nats.Conn used by NATSPublisher.
type conn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher publishes JSON encoded events under a subject prefix.
type NATSPublisher struct {
	nc     conn
	prefix string
}

// NewNATSPublisher connects to url. prefix is prepended to every subject.
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("prioridades"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newNATSPublisher(nc, prefix), nil
}

func newNATSPublisher(nc conn, prefix string) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the full subject for name.
func (p *NATSPublisher) Subject(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(p.Subject(subject), data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	_ = p.nc.Drain()
}
