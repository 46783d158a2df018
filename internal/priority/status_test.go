package priority

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docsWith(statuses ...DocumentStatus) []*Document {
	out := make([]*Document, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, &Document{Name: "doc", Status: s})
	}
	return out
}

func TestCompletionPercentage_Empty(t *testing.T) {
	require.Equal(t, 0, CompletionPercentage(nil))
	require.Equal(t, 0, CompletionPercentage([]*Document{}))
}

func TestCompletionPercentage_Scenarios(t *testing.T) {
	cases := []struct {
		name string
		docs []*Document
		want int
	}{
		{"half registered", docsWith(StatusRegistered, StatusRegistered, StatusInProgress, StatusMissing), 50},
		{"all registered", docsWith(StatusRegistered, StatusRegistered, StatusRegistered), 100},
		{"none registered", docsWith(StatusInProgress, StatusMissing), 0},
		{"one third rounds down", docsWith(StatusRegistered, StatusMissing, StatusMissing), 33},
		{"two thirds rounds up", docsWith(StatusRegistered, StatusRegistered, StatusMissing), 67},
		{"one eighth half rounds up", docsWith(StatusRegistered, StatusMissing, StatusMissing, StatusMissing, StatusMissing, StatusMissing, StatusMissing, StatusMissing), 13},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompletionPercentage(tc.docs))
		})
	}
}

func TestCompletionPercentage_BoundedAndMonotonic(t *testing.T) {
	for total := 1; total <= 40; total++ {
		docs := docsWith()
		for i := 0; i < total; i++ {
			docs = append(docs, &Document{Status: StatusMissing})
		}
		prev := CompletionPercentage(docs)
		require.Equal(t, 0, prev)
		for i := 0; i < total; i++ {
			docs[i].Status = StatusRegistered
			got := CompletionPercentage(docs)
			require.GreaterOrEqual(t, got, prev, "total=%d registered=%d", total, i+1)
			require.GreaterOrEqual(t, got, 0)
			require.LessOrEqual(t, got, 100)
			prev = got
		}
		require.Equal(t, 100, prev)
	}
}

func TestProgressOf(t *testing.T) {
	p := ProgressOf(docsWith(StatusRegistered, StatusRegistered, StatusInProgress, StatusMissing))
	assert.Equal(t, Progress{Total: 4, Missing: 1, InProgress: 1, Registered: 2, Percentage: 50}, p)
	assert.Equal(t, Progress{}, ProgressOf(nil))
}

func TestParseDocumentStatus(t *testing.T) {
	for _, tok := range []string{"sem_documento", "em_elaboracao", "cadastrado"} {
		st, err := ParseDocumentStatus(tok)
		require.NoError(t, err)
		require.Equal(t, tok, st.String())
	}
	_, err := ParseDocumentStatus("registered")
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, err = ParseDocumentStatus("")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDocumentStatus_JSONUsesStorageTokens(t *testing.T) {
	b, err := json.Marshal(&Document{ID: "d1", Status: StatusInProgress})
	require.NoError(t, err)
	require.Contains(t, string(b), `"status":"em_elaboracao"`)

	var d Document
	require.NoError(t, json.Unmarshal([]byte(`{"id":"d2","status":"cadastrado"}`), &d))
	require.Equal(t, StatusRegistered, d.Status)

	err = json.Unmarshal([]byte(`{"id":"d3","status":"done"}`), &d)
	require.Error(t, err)
}

func TestDocumentStatus_Labels(t *testing.T) {
	assert.Equal(t, "Sem Documento", StatusMissing.Label())
	assert.Equal(t, "Em Elaboração", StatusInProgress.Label())
	assert.Equal(t, "Cadastrado", StatusRegistered.Label())
	assert.Equal(t, SeverityGreen, StatusRegistered.Severity())
	assert.Equal(t, SeverityYellow, StatusInProgress.Severity())
	assert.Equal(t, SeverityRed, StatusMissing.Severity())
}
