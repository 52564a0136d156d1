package dedup_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sudarma/go-commerce-bus/internal/bus"
	"github.com/sudarma/go-commerce-bus/internal/dedup"
)

type mapMarker struct {
	seen map[string]bool
}

func (m *mapMarker) Seen(_ context.Context, id string) (bool, error) { return m.seen[id], nil }
func (m *mapMarker) Mark(_ context.Context, id string) error {
	m.seen[id] = true
	return nil
}

func TestWrapSkipsDuplicates(t *testing.T) {
	calls := 0
	h := dedup.Wrap(&mapMarker{seen: map[string]bool{}}, zap.NewNop(), func(context.Context, bus.Message) error {
		calls++
		return nil
	})

	m := bus.Message{ID: "m1", Topic: "t"}
	require.NoError(t, h(context.Background(), m))
	require.NoError(t, h(context.Background(), m))
	assert.Equal(t, 1, calls)
}

func TestWrapDoesNotMarkFailedAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	h := dedup.Wrap(&mapMarker{seen: map[string]bool{}}, zap.NewNop(), func(context.Context, bus.Message) error {
		calls++
		if calls == 1 {
			return boom
		}
		return nil
	})

	m := bus.Message{ID: "m1", Topic: "t"}
	require.ErrorIs(t, h(context.Background(), m), boom)
	// redelivery after a failure must reprocess
	require.NoError(t, h(context.Background(), m))
	require.NoError(t, h(context.Background(), m))
	assert.Equal(t, 2, calls)
}

func TestWrapWithoutMarkerProcessesEveryDelivery(t *testing.T) {
	calls := 0
	h := dedup.Wrap(nil, zap.NewNop(), func(context.Context, bus.Message) error {
		calls++
		return nil
	})

	m := bus.Message{ID: "m1", Topic: "t"}
	require.NoError(t, h(context.Background(), m))
	require.NoError(t, h(context.Background(), m))
	assert.Equal(t, 2, calls)
}

func TestWrapProcessesMessagesWithoutID(t *testing.T) {
	calls := 0
	h := dedup.Wrap(&mapMarker{seen: map[string]bool{}}, zap.NewNop(), func(context.Context, bus.Message) error {
		calls++
		return nil
	})

	m := bus.Message{Topic: "t"}
	require.NoError(t, h(context.Background(), m))
	require.NoError(t, h(context.Background(), m))
	assert.Equal(t, 2, calls)
}
