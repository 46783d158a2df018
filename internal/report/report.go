// Package report turns a priority view into the follow-up report handed to
// the municipal office, rendered as plain text or PDF.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/convenios/prioridades/internal/priority"
)

const (
	Title          = "RELATÓRIO DE ACOMPANHAMENTO"
	SectionData    = "Dados da Prioridade"
	SectionStatus  = "Status e Execução"
	SectionDocs    = "Documentos Cadastrados"
	NoDocuments    = "Nenhum documento vinculado a esta prioridade."
	displayLayout  = "02/01/2006"
	footerLayout   = "02/01/2006 às 15:04:05"
	emptyFieldText = "-"
)

// Format selects a renderer.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
)

// ParseFormat accepts pdf, text or txt. Empty means pdf.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return "pdf"
}

func (f Format) ContentType() string {
	if f == FormatText {
		return "text/plain; charset=utf-8"
	}
	return "application/pdf"
}

// Row is one numbered document line.
type Row struct {
	Number   int
	Name     string
	Status   string
	Severity priority.Severity
}

// Report holds every value printed on the report, already formatted.
type Report struct {
	PriorityID    string
	Header        []string
	Protocol      string
	Number        string
	ReleaseDate   string
	Deadline      string
	Description   string
	Situation     string
	DaysRemaining string
	Percentage    int
	Rows          []Row
	GeneratedAt   time.Time
}

// Build assembles the report for v. generatedAt is printed in the footer in
// its own location.
func Build(v *priority.View, header []string, generatedAt time.Time) *Report {
	r := &Report{
		PriorityID:    v.ID,
		Header:        header,
		Protocol:      v.Protocol,
		Number:        v.Number,
		ReleaseDate:   displayDate(v.ReleaseDate),
		Deadline:      displayDate(v.Deadline),
		Description:   v.Description,
		Situation:     v.Urgency.Situation(),
		DaysRemaining: daysRemaining(v.Urgency),
		Percentage:    v.Progress.Percentage,
		GeneratedAt:   generatedAt,
	}
	for i, d := range v.Documents {
		r.Rows = append(r.Rows, Row{
			Number:   i + 1,
			Name:     d.Name,
			Status:   d.Status.Label(),
			Severity: d.Status.Severity(),
		})
	}
	return r
}

// Footer returns the generation stamp printed on every page.
func (r *Report) Footer() string {
	return "Gerado em: " + r.GeneratedAt.Format(footerLayout)
}

// FileName is the suggested download name.
func (r *Report) FileName(f Format) string {
	name := strings.Map(func(c rune) rune {
		if c == '/' || c == '\\' || c == ' ' {
			return '_'
		}
		return c
	}, r.Number)
	return fmt.Sprintf("Prioridade_%s.%s", name, f.Extension())
}

func displayDate(d priority.Date) string {
	if d.IsZero() {
		return emptyFieldText
	}
	return d.Format(displayLayout)
}

func daysRemaining(u priority.Urgency) string {
	if u.Kind == priority.KindOverdue {
		return u.Label
	}
	return fmt.Sprintf("%d dias", u.DaysRemaining)
}
