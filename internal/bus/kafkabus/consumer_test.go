package kafkabus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sudarma/go-commerce-bus/internal/bus"
)

// fakeReader serves a fixed slice of messages, then blocks until the
// context is canceled, mirroring how a real reader behaves on an idle
// partition.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	next      int
	committed []int64
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if f.next < len(f.msgs) {
		m := f.msgs[f.next]
		f.next++
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) committedOffsets() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func msg(offset int64, key string) kafka.Message {
	return kafka.Message{Topic: "t", Offset: offset, Key: []byte(key), Value: []byte(`{}`)}
}

func TestCommitOnlyAfterHandlerSuccess(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{msg(0, "ok-1"), msg(1, "bad"), msg(2, "ok-2")}}
	c := &Consumer{r: r, topic: "t", workers: 1, log: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m bus.Message) error {
			if m.Key == "bad" {
				return errors.New("handler rejected message")
			}
			return nil
		})
	}()

	// the two successful messages are committed, the failed one never is
	require.Eventually(t, func() bool {
		return len(r.committedOffsets()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{0, 2}, r.committedOffsets())
	assert.True(t, r.closed)
}

func TestNothingCommittedWhenEveryHandlerFails(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{msg(0, "a"), msg(1, "b")}}
	c := &Consumer{r: r, topic: "t", workers: 2, log: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	handled := make(chan string, 2)
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m bus.Message) error {
			handled <- m.Key
			return errors.New("poison")
		})
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-handled:
		case <-time.After(2 * time.Second):
			t.Fatal("handler was not invoked for every message")
		}
	}
	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, r.committedOffsets())
}
