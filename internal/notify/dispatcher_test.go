package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	got  []Message
	fail error
}

func (r *recordingNotifier) Notify(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.got = append(r.got, msg)
	return nil
}

func (r *recordingNotifier) messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message{}, r.got...)
}

func TestDispatchDelivers(t *testing.T) {
	rec := &recordingNotifier{}
	d := NewDispatcher(rec, slog.Default(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	require.True(t, d.Dispatch(Message{Kind: KindNominationSubmitted, SubjectID: "n-1"}))

	require.Eventually(t, func() bool {
		return len(rec.messages()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "n-1", rec.messages()[0].SubjectID)
}

func TestDispatchFullQueueReturnsFalse(t *testing.T) {
	// No Run loop draining, so the buffer fills.
	d := NewDispatcher(&recordingNotifier{}, slog.Default(), 1)

	assert.True(t, d.Dispatch(Message{SubjectID: "first"}))
	assert.False(t, d.Dispatch(Message{SubjectID: "second"}))
}

func TestDeliveryFailureSurfacesOnErrorChannel(t *testing.T) {
	rec := &recordingNotifier{fail: errors.New("broker down")}
	d := NewDispatcher(rec, slog.Default(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	require.True(t, d.Dispatch(Message{SubjectID: "n-1"}))

	select {
	case err := <-d.Errors():
		assert.ErrorContains(t, err, "broker down")
	case <-time.After(time.Second):
		t.Fatal("expected delivery failure on error channel")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	d := NewDispatcher(&recordingNotifier{}, slog.Default(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Run(ctx), context.Canceled)
}
