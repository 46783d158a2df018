package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriority_Matches(t *testing.T) {
	p := &Priority{Protocol: "PROT-2024/001", Number: "P-17", Description: "Pavimentação da Rua Central"}
	assert.True(t, p.Matches(""))
	assert.True(t, p.Matches("prot-2024"))
	assert.True(t, p.Matches("p-17"))
	assert.True(t, p.Matches("RUA CENTRAL"))
	assert.False(t, p.Matches("escola"))
}

func TestRegisterInput_Validate(t *testing.T) {
	in := RegisterInput{Protocol: "1", Number: "2", Deadline: NewDate(2024, time.May, 1)}
	require.NoError(t, in.Validate())

	err := RegisterInput{Protocol: " "}.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Contains(t, err.Error(), "protocolo")
	require.Contains(t, err.Error(), "numero_prioridade")
	require.Contains(t, err.Error(), "prazo_maximo")

	// no ordering constraint between release date and deadline
	in.ReleaseDate = NewDate(2024, time.June, 1)
	require.NoError(t, in.Validate())
}

func TestRegisterInput_DocumentNames(t *testing.T) {
	in := RegisterInput{Documents: []string{" Ofício ", "", "  ", "Plano de trabalho"}}
	require.Equal(t, []string{"Ofício", "Plano de trabalho"}, in.DocumentNames())
}

func TestNewView(t *testing.T) {
	today := time.Date(2024, time.March, 8, 9, 0, 0, 0, time.UTC)
	p := &Priority{ID: "p1", Deadline: NewDate(2024, time.March, 12)}
	v := NewView(p, nil, today)
	require.NotNil(t, v.Documents)
	require.Equal(t, 0, v.Progress.Percentage)
	require.Equal(t, KindUrgent, v.Urgency.Kind)
	require.Equal(t, 4, v.Urgency.DaysRemaining)
}
