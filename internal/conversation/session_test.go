package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darling/internal/domain"
)

func TestSessionStartsIdleWithNothingPending(t *testing.T) {
	t.Parallel()

	session := NewSession()
	assert.Equal(t, domain.ConversationIdle, session.State())
	assert.False(t, session.Active())
	assert.False(t, session.Pending().IsSet())
}

func TestWakeOnlyFiresFromIdle(t *testing.T) {
	t.Parallel()

	session := NewSession()
	require.NoError(t, session.Wake())
	assert.True(t, session.Active())

	err := session.Wake()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, domain.ConversationActive, transitionErr.From)
	assert.Equal(t, domain.ConversationActive, transitionErr.To)
	assert.True(t, session.Active())
}

func TestEndOnlyFiresFromActive(t *testing.T) {
	t.Parallel()

	session := NewSession()
	assert.ErrorIs(t, session.End(), ErrInvalidTransition)

	require.NoError(t, session.Wake())
	require.NoError(t, session.End())
	assert.Equal(t, domain.ConversationIdle, session.State())

	require.NoError(t, session.Wake(), "machine is re-entrant")
}

func TestPendingOverwriteAndReset(t *testing.T) {
	t.Parallel()

	session := NewSession()
	session.SetPending(domain.PendingAction{Kind: domain.PendingAdd})
	session.SetPending(domain.PendingAction{Kind: domain.PendingDelete})
	assert.Equal(t, domain.PendingDelete, session.Pending().Kind)

	require.NoError(t, session.Wake())
	session.Reset()
	assert.False(t, session.Active())
	assert.False(t, session.Pending().IsSet())
}
