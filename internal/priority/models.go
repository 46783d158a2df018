package priority

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput is returned when a registration request is incomplete.
var ErrInvalidInput = errors.New("invalid input")

// Priority is an administrative case tracked by the dashboard. Field names
// on the wire and in storage follow the hosted schema (prioridades table).
type Priority struct {
	ID          string    `json:"id" bson:"id"`
	Protocol    string    `json:"protocolo" bson:"protocolo"`
	Number      string    `json:"numero_prioridade" bson:"numero_prioridade"`
	Description string    `json:"descricao" bson:"descricao"`
	ReleaseDate Date      `json:"data_liberacao" bson:"data_liberacao"`
	Deadline    Date      `json:"prazo_maximo" bson:"prazo_maximo"`
	OwnerID     string    `json:"user_id" bson:"user_id"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Matches reports whether term occurs, case-insensitively, in the protocol,
// the priority number or the description. An empty term matches everything.
func (p *Priority) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Protocol), term) ||
		strings.Contains(strings.ToLower(p.Number), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

// Document is a named requirement attached to a Priority (documentos table).
type Document struct {
	ID         string         `json:"id" bson:"id"`
	PriorityID string         `json:"prioridade_id" bson:"prioridade_id"`
	Name       string         `json:"nome_documento" bson:"nome_documento"`
	Status     DocumentStatus `json:"status" bson:"status"`
	Position   int            `json:"posicao" bson:"posicao"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" bson:"updated_at"`
}

// RegisterInput is what a user supplies when registering a priority.
type RegisterInput struct {
	Protocol    string   `json:"protocolo" yaml:"protocolo"`
	Number      string   `json:"numero_prioridade" yaml:"numero_prioridade"`
	Description string   `json:"descricao" yaml:"descricao"`
	ReleaseDate Date     `json:"data_liberacao" yaml:"data_liberacao"`
	Deadline    Date     `json:"prazo_maximo" yaml:"prazo_maximo"`
	Documents   []string `json:"documentos" yaml:"documentos"`
}

// Validate checks the required fields. The deadline is not compared with the
// release date.
func (in RegisterInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Protocol) == "" {
		missing = append(missing, "protocolo")
	}
	if strings.TrimSpace(in.Number) == "" {
		missing = append(missing, "numero_prioridade")
	}
	if in.Deadline.IsZero() {
		missing = append(missing, "prazo_maximo")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// DocumentNames returns the trimmed, non-empty document names in order.
func (in RegisterInput) DocumentNames() []string {
	out := make([]string, 0, len(in.Documents))
	for _, n := range in.Documents {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// View is a priority together with its documents and derived indicators, as
// served to the dashboard and the report exporter.
type View struct {
	*Priority
	Documents []*Document `json:"documentos"`
	Progress  Progress    `json:"progress"`
	Urgency   Urgency     `json:"urgency"`
}

// NewView computes the indicators of p against the reference date today.
func NewView(p *Priority, docs []*Document, today time.Time) *View {
	if docs == nil {
		docs = []*Document{}
	}
	return &View{
		Priority:  p,
		Documents: docs,
		Progress:  ProgressOf(docs),
		Urgency:   DeadlineUrgency(p.Deadline, today),
	}
}
