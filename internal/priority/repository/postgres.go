package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/convenios/prioridades/internal/priority"
	"github.com/google/uuid"
)

// postgresSchema mirrors the hosted tables the dashboard was first built on,
// plus a position column to keep documents in registration order.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS prioridades (
	id                uuid PRIMARY KEY,
	protocolo         text NOT NULL,
	numero_prioridade text NOT NULL,
	descricao         text NOT NULL DEFAULT '',
	data_liberacao    date,
	prazo_maximo      date NOT NULL,
	user_id           text NOT NULL,
	created_at        timestamptz NOT NULL DEFAULT now(),
	updated_at        timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS prioridades_user_created_idx ON prioridades (user_id, created_at DESC);
CREATE TABLE IF NOT EXISTS documentos (
	id             uuid PRIMARY KEY,
	prioridade_id  uuid NOT NULL REFERENCES prioridades (id),
	nome_documento text NOT NULL,
	status         text NOT NULL DEFAULT 'sem_documento'
	               CHECK (status IN ('sem_documento', 'em_elaboracao', 'cadastrado')),
	created_at     timestamptz NOT NULL DEFAULT now(),
	updated_at     timestamptz NOT NULL DEFAULT now()
);
ALTER TABLE documentos ADD COLUMN IF NOT EXISTS posicao integer NOT NULL DEFAULT 0;
CREATE INDEX IF NOT EXISTS documentos_prioridade_idx ON documentos (prioridade_id, posicao);
`

const (
	priorityColumns = `id, protocolo, numero_prioridade, descricao, data_liberacao, prazo_maximo, user_id, created_at, updated_at`
	documentColumns = `id, prioridade_id, nome_documento, status, posicao, created_at, updated_at`
)

// PostgresRepo implements Repository on PostgreSQL through database/sql and
// lib/pq. Ids are uuids; lookups with a malformed id are reported as missing.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// EnsureSchema creates the tables when they do not exist yet.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Create(ctx context.Context, p *priority.Priority, docs []*priority.Document) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO prioridades (`+priorityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Protocol, p.Number, p.Description, p.ReleaseDate, p.Deadline, p.OwnerID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert priority: %w", err)
	}
	if len(docs) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO documentos (`+documentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`)
		if err != nil {
			return fmt.Errorf("prepare documents: %w", err)
		}
		defer stmt.Close()
		for _, d := range docs {
			d.PriorityID = p.ID
			if d.CreatedAt.IsZero() {
				d.CreatedAt = p.CreatedAt
			}
			if d.UpdatedAt.IsZero() {
				d.UpdatedAt = d.CreatedAt
			}
			if _, err := stmt.ExecContext(ctx, d.ID, d.PriorityID, d.Name, string(d.Status), d.Position, d.CreatedAt, d.UpdatedAt); err != nil {
				return fmt.Errorf("insert document %q: %w", d.Name, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*priority.Priority, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+priorityColumns+` FROM prioridades WHERE id = $1`, id)
	p, err := scanPriority(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepo) ListByOwner(ctx context.Context, ownerID string) ([]*priority.Priority, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+priorityColumns+` FROM prioridades WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*priority.Priority{}
	for rows.Next() {
		p, err := scanPriority(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListDocuments(ctx context.Context, priorityID string) ([]*priority.Document, error) {
	if _, err := uuid.Parse(priorityID); err != nil {
		return []*priority.Document{}, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documentos WHERE prioridade_id = $1 ORDER BY posicao, created_at`, priorityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*priority.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetDocument(ctx context.Context, id string) (*priority.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documentos WHERE id = $1`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (r *PostgresRepo) UpdateDocumentStatus(ctx context.Context, id string, status priority.DocumentStatus) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE documentos SET status = $1, updated_at = $2 WHERE id = $3`, string(status), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPriority(s rowScanner) (*priority.Priority, error) {
	var p priority.Priority
	if err := s.Scan(&p.ID, &p.Protocol, &p.Number, &p.Description, &p.ReleaseDate, &p.Deadline, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanDocument(s rowScanner) (*priority.Document, error) {
	var d priority.Document
	var status string
	if err := s.Scan(&d.ID, &d.PriorityID, &d.Name, &status, &d.Position, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	st, err := priority.ParseDocumentStatus(status)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", d.ID, err)
	}
	d.Status = st
	return &d, nil
}
