package activitylog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"satvault/internal/vault/models"
)

type fakePublisher struct {
	mu       sync.Mutex
	keys     []string
	payloads [][]byte
	fail     bool
}

func (f *fakePublisher) Publish(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.keys = append(f.keys, key)
	f.payloads = append(f.payloads, value)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestAsyncSink_DeliversKeyedEvents(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewAsyncSink(pub, 8, quietLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sink.Run(ctx) }()

	entry, err := models.NewActivityLogEntry("alice", models.ActionCreated, "vault created", time.Now())
	require.NoError(t, err)
	sink.Publish(context.Background(), entry)

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, "alice", pub.keys[0])
	var event Event
	require.NoError(t, json.Unmarshal(pub.payloads[0], &event))
	assert.Equal(t, "created", event.Action)
	assert.Equal(t, entry.ID.String(), event.ID)
}

func TestAsyncSink_DropsWhenFull(t *testing.T) {
	sink := NewAsyncSink(&fakePublisher{}, 1, quietLogger)
	entry, err := models.NewActivityLogEntry("alice", models.ActionCreated, "", time.Now())
	require.NoError(t, err)

	sink.Publish(context.Background(), entry)
	sink.Publish(context.Background(), entry)

	assert.Equal(t, int64(1), sink.Dropped())
}

func TestAsyncSink_SurvivesPublishFailure(t *testing.T) {
	pub := &fakePublisher{fail: true}
	sink := NewAsyncSink(pub, 4, quietLogger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sink.Run(ctx) }()

	entry, err := models.NewActivityLogEntry("alice", models.ActionCreated, "", time.Now())
	require.NoError(t, err)
	sink.Publish(ctx, entry)
	sink.Publish(ctx, entry)

	require.Eventually(t, func() bool { return len(sink.inbox) == 0 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, pub.count())
}
