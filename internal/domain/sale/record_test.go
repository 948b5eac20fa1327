package sale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lines = []Line{
	{ProductID: "steak", Name: "Beef Steak", Unit: "kg", UnitPrice: 800, Quantity: 2, Total: 1600},
	{ProductID: "ribs", Name: "Beef Ribs", Unit: "kg", UnitPrice: 650, Quantity: 1, Total: 650},
}

func TestNewRecordComputesTotal(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r, err := NewRecord("TMC250301000001", lines, "Jane", "Peter", "cash", "CSH1", at)
	require.NoError(t, err)

	assert.Equal(t, int64(2250), r.Total)
	assert.True(t, r.Succeeded)
	assert.Empty(t, r.FailureReason)
	assert.Equal(t, at, r.CompletedAt)
}

func TestNewRecordValidation(t *testing.T) {
	at := time.Now()

	_, err := NewRecord("n", lines, "Jane", "", "cash", "", at)
	assert.ErrorIs(t, err, ErrStaffRequired)

	_, err = NewRecord("n", nil, "Jane", "Peter", "cash", "", at)
	assert.ErrorIs(t, err, ErrEmptySale)
}

func TestNewFailureRecordHasNoLines(t *testing.T) {
	r := NewFailureRecord("TMC250301000002", 2250, "Jane", "Peter", "mpesa", "", "Timeout", time.Now())

	assert.False(t, r.Succeeded)
	assert.Empty(t, r.Lines)
	assert.Equal(t, "Timeout", r.FailureReason)
	assert.Equal(t, int64(2250), r.Total)
}

func TestCloneIsDeep(t *testing.T) {
	r, err := NewRecord("n", lines, "Jane", "Peter", "cash", "", time.Now())
	require.NoError(t, err)

	clone := r.Clone()
	clone.Lines[0].Quantity = 99
	assert.Equal(t, 2, r.Lines[0].Quantity)
}
