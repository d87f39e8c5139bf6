package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/landscaping-app/backend/internal/domain"
)

func TestSolveGateCapsConcurrentSolves(t *testing.T) {
	gate := NewSolveGate(2)

	release1, err := gate.Acquire()
	require.NoError(t, err)
	release2, err := gate.Acquire()
	require.NoError(t, err)

	_, err = gate.Acquire()
	var busy *domain.BusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, 2, busy.Cap)

	release1()
	release3, err := gate.Acquire()
	require.NoError(t, err)

	release2()
	release3()
}

func TestSolveGateDefaultsCap(t *testing.T) {
	gate := NewSolveGate(0)
	assert.Equal(t, 2, gate.cap)
}
