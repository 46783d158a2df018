package report

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convenios/prioridades/internal/priority"
	"github.com/convenios/prioridades/internal/storage"
)

var header = []string{"PREFEITURA", "SECRETARIA"}

func sampleView(t *testing.T, docs int) *priority.View {
	t.Helper()
	p := &priority.Priority{
		ID:          "p1",
		Protocol:    "12345/2024",
		Number:      "PRI 001/2024",
		Description: "Pavimentação da rua principal",
		ReleaseDate: priority.MustParseDate("2024-01-15"),
		Deadline:    priority.MustParseDate("2024-03-18"),
	}
	var list []*priority.Document
	for i := 0; i < docs; i++ {
		st := priority.StatusMissing
		if i%2 == 0 {
			st = priority.StatusRegistered
		}
		list = append(list, &priority.Document{ID: "d", Name: "Documento obrigatório", Status: st})
	}
	today := time.Date(2024, time.March, 8, 9, 0, 0, 0, time.UTC)
	return priority.NewView(p, list, today)
}

func TestBuild(t *testing.T) {
	gen := time.Date(2024, time.March, 8, 14, 5, 9, 0, time.UTC)
	r := Build(sampleView(t, 2), header, gen)

	assert.Equal(t, "15/01/2024", r.ReleaseDate)
	assert.Equal(t, "18/03/2024", r.Deadline)
	assert.Equal(t, "Atenção", r.Situation)
	assert.Equal(t, "10 dias", r.DaysRemaining)
	assert.Equal(t, 50, r.Percentage)
	require.Len(t, r.Rows, 2)
	assert.Equal(t, 1, r.Rows[0].Number)
	assert.Equal(t, "Cadastrado", r.Rows[0].Status)
	assert.Equal(t, "Sem Documento", r.Rows[1].Status)
	assert.Equal(t, "Gerado em: 08/03/2024 às 14:05:09", r.Footer())
	assert.Equal(t, "Prioridade_PRI_001_2024.pdf", r.FileName(FormatPDF))
}

func TestBuildOverdueAndMissingRelease(t *testing.T) {
	v := sampleView(t, 0)
	v.ReleaseDate = priority.Date{}
	v.Urgency = priority.DeadlineUrgency(v.Deadline, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	r := Build(v, header, time.Now())
	assert.Equal(t, "-", r.ReleaseDate)
	assert.Equal(t, "Vencido", r.Situation)
	assert.Equal(t, "Vencido", r.DaysRemaining)
	assert.Empty(t, r.Rows)
}

func TestRenderText(t *testing.T) {
	r := Build(sampleView(t, 3), header, time.Date(2024, time.March, 8, 14, 5, 9, 0, time.UTC))
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, r))
	out := buf.String()
	for _, want := range []string{
		"PREFEITURA", Title, "Protocolo: 12345/2024", "Prazo Máximo: 18/03/2024",
		"Situação Atual: Atenção", "Progresso (67%)", "1. Documento obrigatório",
		"Cadastrado", "Gerado em: 08/03/2024 às 14:05:09",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, NoDocuments)
}

func TestRenderTextEmptyDocuments(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, Build(sampleView(t, 0), header, time.Now())))
	assert.Contains(t, buf.String(), NoDocuments)
	assert.Contains(t, buf.String(), "Progresso (0%)")
}

func TestPageDescriptionPaginates(t *testing.T) {
	short := buildDescription(Build(sampleView(t, 1), header, time.Now()))
	require.Len(t, short.Pages, 1)
	last := short.Pages["1"].Content.Text
	assert.Equal(t, "Página 1 de 1", last[len(last)-1].Value)

	long := buildDescription(Build(sampleView(t, 120), header, time.Now()))
	require.Greater(t, len(long.Pages), 1)
	n := len(long.Pages)
	for i := 1; i <= n; i++ {
		p, ok := long.Pages[strconv.Itoa(i)]
		require.True(t, ok)
		assert.Equal(t, header[0], p.Content.Text[0].Value, "header repeated on page %d", i)
		for _, tb := range p.Content.Text {
			assert.GreaterOrEqual(t, tb.Pos[1], 0.0)
			assert.LessOrEqual(t, tb.Pos[1], pageHeight)
		}
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{""}, wrap("", 10))
	assert.Equal(t, []string{"um dois", "tres"}, wrap("um dois tres", 8))
	assert.Equal(t, []string{"abcde", "fgh"}, wrap("abcdefgh", 5))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	f, err = ParseFormat("TXT")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)
	_, err = ParseFormat("docx")
	require.Error(t, err)
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) UploadFile(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	m.types[key] = contentType
	return nil
}

func (m *memStore) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStore) GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://files.local/" + key, nil
}

func TestArchive(t *testing.T) {
	store := newMemStore()
	log := NewMemoryExportLog()
	a := NewArchiver(store, log, 0)
	r := Build(sampleView(t, 2), header, time.Now())

	e, err := a.Archive(context.Background(), "alice", r, FormatText)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(e.ReportID, "RPT-"))
	assert.Len(t, e.ReportID, 14)
	assert.Equal(t, "reports/p1/"+e.ReportID+".txt", e.Key)
	assert.Equal(t, "https://files.local/"+e.Key, e.URL)
	assert.Equal(t, "text/plain; charset=utf-8", store.types[e.Key])
	assert.Equal(t, int64(len(store.objects[e.Key])), e.Size)

	rc, err := store.DownloadFile(context.Background(), e.Key)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Contains(t, string(body), Title)

	hist, err := a.History(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, e.ReportID, hist[0].ReportID)
	assert.Equal(t, "alice", hist[0].OwnerID)
}

func TestMemoryExportLogNewestFirst(t *testing.T) {
	l := NewMemoryExportLog()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, l.Save(context.Background(), &Export{ReportID: "a", PriorityID: "p", CreatedAt: base}))
	require.NoError(t, l.Save(context.Background(), &Export{ReportID: "b", PriorityID: "p", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, l.Save(context.Background(), &Export{ReportID: "c", PriorityID: "q", CreatedAt: base}))
	got, err := l.ListByPriority(context.Background(), "p")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ReportID)
}
