package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
)

func TestSubscribe_RejectsNilHandler(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	assert.Error(t, svc.Subscribe(interfaces.EventJobQueued, nil))
}

func TestPublishSync_DeliversToTypedAndWildcard(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var mu sync.Mutex
	var got []string
	record := func(name string) interfaces.EventHandler {
		return func(ctx context.Context, e interfaces.Event) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name+":"+string(e.Type))
			return nil
		}
	}

	require.NoError(t, svc.Subscribe(interfaces.EventJobCompleted, record("typed")))
	require.NoError(t, svc.Subscribe(interfaces.EventAll, record("all")))
	require.NoError(t, svc.Subscribe(interfaces.EventJobFailed, record("other")))

	require.NoError(t, svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobCompleted}))

	assert.ElementsMatch(t, []string{"typed:job_completed", "all:job_completed"}, got)
}

func TestPublishSync_JoinsErrorsAndSurvivesPanics(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	boom := errors.New("boom")

	require.NoError(t, svc.Subscribe(interfaces.EventJobQueued, func(ctx context.Context, e interfaces.Event) error {
		return boom
	}))
	require.NoError(t, svc.Subscribe(interfaces.EventJobQueued, func(ctx context.Context, e interfaces.Event) error {
		panic("handler bug")
	}))

	err := svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobQueued})
	assert.ErrorIs(t, err, boom)
}

func TestPublish_IsAsynchronous(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	delivered := make(chan interfaces.Event, 1)

	require.NoError(t, svc.Subscribe(interfaces.EventJobProgress, func(ctx context.Context, e interfaces.Event) error {
		delivered <- e
		return nil
	}))

	payload := interfaces.JobEventPayload{JobID: "j1", Progress: 35}
	require.NoError(t, svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventJobProgress, Payload: payload}))

	select {
	case e := <-delivered:
		assert.Equal(t, payload, e.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestClose_DropsSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	called := false
	require.NoError(t, svc.Subscribe(interfaces.EventAll, func(ctx context.Context, e interfaces.Event) error {
		called = true
		return nil
	}))
	require.NoError(t, svc.Close())
	require.NoError(t, svc.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobFailed}))
	assert.False(t, called)
}
