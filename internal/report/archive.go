package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/convenios/prioridades/internal/storage"
)

// NewReportID generates a report id in format RPT-{nanoid(10)}.
func NewReportID() (string, error) {
	id, err := gonanoid.New(10)
	if err != nil {
		return "", err
	}
	return "RPT-" + id, nil
}

// ObjectKey is where a rendered report is archived.
func ObjectKey(priorityID, reportID string, f Format) string {
	return fmt.Sprintf("reports/%s/%s.%s", priorityID, reportID, f.Extension())
}

// Archiver uploads rendered reports and records them in the export log.
type Archiver struct {
	store     storage.ObjectStore
	log       ExportLog
	urlExpiry time.Duration
	now       func() time.Time
}

func NewArchiver(store storage.ObjectStore, log ExportLog, urlExpiry time.Duration) *Archiver {
	if urlExpiry <= 0 {
		urlExpiry = time.Hour
	}
	return &Archiver{store: store, log: log, urlExpiry: urlExpiry, now: time.Now}
}

// Archive renders r in format f, uploads it and returns the export record
// with a time limited download URL.
func (a *Archiver) Archive(ctx context.Context, ownerID string, r *Report, f Format) (*Export, error) {
	var buf bytes.Buffer
	if err := Render(&buf, r, f); err != nil {
		return nil, err
	}
	id, err := NewReportID()
	if err != nil {
		return nil, fmt.Errorf("generate report id: %w", err)
	}
	e := &Export{
		ReportID:   id,
		PriorityID: r.PriorityID,
		OwnerID:    ownerID,
		Format:     f,
		Key:        ObjectKey(r.PriorityID, id, f),
		Size:       int64(buf.Len()),
		CreatedAt:  a.now().UTC(),
	}
	if err := a.store.UploadFile(ctx, e.Key, &buf, e.Size, f.ContentType()); err != nil {
		return nil, fmt.Errorf("upload report: %w", err)
	}
	if err := a.log.Save(ctx, e); err != nil {
		return nil, err
	}
	url, err := a.store.GetPresignedURL(ctx, e.Key, a.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign report url: %w", err)
	}
	e.URL = url
	return e, nil
}

// History lists the archived exports of a priority.
func (a *Archiver) History(ctx context.Context, priorityID string) ([]*Export, error) {
	return a.log.ListByPriority(ctx, priorityID)
}
