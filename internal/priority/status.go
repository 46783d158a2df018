package priority

import (
	"errors"
	"fmt"
)

// DocumentStatus is the completion state of a Document. The string values
// are the storage tokens shared with existing data and must not change.
type DocumentStatus string

const (
	StatusMissing    DocumentStatus = "sem_documento"
	StatusInProgress DocumentStatus = "em_elaboracao"
	StatusRegistered DocumentStatus = "cadastrado"
)

// ErrInvalidStatus is returned for any token outside the three statuses.
var ErrInvalidStatus = errors.New("invalid document status")

// Statuses lists every status in display order.
var Statuses = []DocumentStatus{StatusRegistered, StatusInProgress, StatusMissing}

// ParseDocumentStatus maps a storage token to its status.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	st := DocumentStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusMissing, StatusInProgress, StatusRegistered:
		return true
	}
	return false
}

// Label is the human readable name shown in the dashboard and reports.
func (s DocumentStatus) Label() string {
	switch s {
	case StatusMissing:
		return "Sem Documento"
	case StatusInProgress:
		return "Em Elaboração"
	case StatusRegistered:
		return "Cadastrado"
	}
	return string(s)
}

// Severity is the alert colour conventionally associated with the status.
func (s DocumentStatus) Severity() Severity {
	switch s {
	case StatusRegistered:
		return SeverityGreen
	case StatusInProgress:
		return SeverityYellow
	}
	return SeverityRed
}

func (s DocumentStatus) String() string { return string(s) }

func (s DocumentStatus) MarshalText() ([]byte, error) { return []byte(s), nil }

func (s *DocumentStatus) UnmarshalText(b []byte) error {
	st, err := ParseDocumentStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Progress summarises a document set.
type Progress struct {
	Total      int `json:"total"`
	Missing    int `json:"sem_documento"`
	InProgress int `json:"em_elaboracao"`
	Registered int `json:"cadastrado"`
	Percentage int `json:"percentage"`
}

// ProgressOf counts docs by status.
func ProgressOf(docs []*Document) Progress {
	var p Progress
	for _, d := range docs {
		switch d.Status {
		case StatusRegistered:
			p.Registered++
		case StatusInProgress:
			p.InProgress++
		default:
			p.Missing++
		}
	}
	p.Total = len(docs)
	p.Percentage = percentage(p.Registered, p.Total)
	return p
}

// CompletionPercentage is the share of docs marked registered, rounded to
// the nearest integer with halves rounded up. An empty set yields 0.
func CompletionPercentage(docs []*Document) int {
	registered := 0
	for _, d := range docs {
		if d.Status == StatusRegistered {
			registered++
		}
	}
	return percentage(registered, len(docs))
}

func percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	// integer form of round(100*part/total) for non-negative operands
	return (200*part + total) / (2 * total)
}
